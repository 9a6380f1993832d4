// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the message-driven commit pipeline of
// spec.md §4.H: intake -> dependency-aware scheduler -> executor ->
// commit sink, with a batch tracker for client-facing completion.
//
// Grounded on the teacher's pkg/ingestion/batcher.go (batch sizing) and
// pkg/ingestion/metrics.go (sync.Once-guarded Prometheus registration),
// generalized from a single ingestion-only pipeline into a general
// dependency-scheduled execution runtime that also carries the
// compiler's output into commits.
package ingest

import "github.com/kraklabs/naviscope/internal/plugin"

// DependencyKind discriminates DependencyRef's two variants.
type DependencyKind uint8

const (
	// DependsOnMessage means the referenced message must have completed.
	DependsOnMessage DependencyKind = iota
	// DependsOnResource means a named resource must be at or above
	// MinVersion.
	DependsOnResource
)

// DependencyRef is one entry in a Message's dependency set.
type DependencyRef struct {
	Kind        DependencyKind
	MessageID   string
	ResourceKey string
	MinVersion  uint64
}

// Message is one unit of work flowing through the pipeline.
type Message struct {
	ID        string
	Topic     string
	Group     string
	Version   uint64
	DependsOn []DependencyRef
	Epoch     uint64
	Payload   any
	Metadata  map[string]string
}

// Status is an executor's verdict on one message.
type Status uint8

const (
	StatusDone Status = iota
	StatusDeferred
	StatusRetryableError
	StatusFatalError
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusDeferred:
		return "deferred"
	case StatusRetryableError:
		return "retryable_error"
	case StatusFatalError:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// Result is what executing a Message produces.
type Result struct {
	MsgID            string
	Status           Status
	Operations       []plugin.GraphOp
	NextDependencies []DependencyRef
	Err              error

	// Epoch/Group are carried from the originating Message so the
	// commit sink and batch tracker never need to look the message back
	// up once it has left the scheduler.
	Epoch uint64
	Group string
}

// ExecuteFunc performs the work a Message represents. Implementations
// live in internal/engine, where the compiler/scanner are wired in;
// this package only knows the Message/Result shapes.
type ExecuteFunc func(msg Message) Result
