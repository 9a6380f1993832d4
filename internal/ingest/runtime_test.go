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

package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/naviscope/internal/plugin"
)

func TestRuntimeCommitsInSubmissionOrderPerGroup(t *testing.T) {
	execute := func(msg Message) Result {
		return Result{
			MsgID:  msg.ID,
			Status: StatusDone,
			Operations: []plugin.GraphOp{
				{Kind: plugin.OpRemovePath, Path: msg.ID},
			},
		}
	}

	var committed []plugin.GraphOp
	var mu sync.Mutex
	commit := func(epoch uint64, ops []plugin.GraphOp) error {
		mu.Lock()
		defer mu.Unlock()
		committed = append(committed, ops...)
		return nil
	}

	flow := DefaultFlowControl()
	flow.IdleSleep = 5 * time.Millisecond
	rt := New(flow, execute, commit, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.Run(ctx)
	}()

	ids := []string{"one", "two", "three"}
	done := rt.Tracker().Register(ids)
	for _, id := range ids {
		require.NoError(t, rt.Submit(ctx, Message{ID: id, Group: "g", Epoch: 1}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never completed")
	}

	n, err := rt.CommitEpoch(1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mu.Lock()
	require.Len(t, committed, 3)
	assert.Equal(t, "one", committed[0].Path)
	assert.Equal(t, "two", committed[1].Path)
	assert.Equal(t, "three", committed[2].Path)
	mu.Unlock()

	cancel()
	wg.Wait()
}

func TestRuntimeHoldsBlockedMessageUntilDependencySatisfied(t *testing.T) {
	var mu sync.Mutex
	var order []string
	execute := func(msg Message) Result {
		mu.Lock()
		order = append(order, msg.ID)
		mu.Unlock()
		return Result{MsgID: msg.ID, Status: StatusDone}
	}
	commit := func(uint64, []plugin.GraphOp) error { return nil }

	flow := DefaultFlowControl()
	flow.IdleSleep = 5 * time.Millisecond
	rt := New(flow, execute, commit, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.Run(ctx)
	}()

	done := rt.Tracker().Register([]string{"child", "parent"})
	require.NoError(t, rt.Submit(ctx, Message{
		ID:        "child",
		DependsOn: []DependencyRef{{Kind: DependsOnMessage, MessageID: "parent"}},
	}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, rt.Submit(ctx, Message{ID: "parent"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never completed")
	}

	mu.Lock()
	require.Len(t, order, 2)
	assert.Equal(t, "parent", order[0])
	assert.Equal(t, "child", order[1])
	mu.Unlock()

	cancel()
	wg.Wait()
}

func TestRuntimeFatalErrorStillAccountsForBatch(t *testing.T) {
	execute := func(msg Message) Result {
		return Result{MsgID: msg.ID, Status: StatusFatalError, Err: assert.AnError}
	}
	commit := func(uint64, []plugin.GraphOp) error { return nil }

	flow := DefaultFlowControl()
	flow.IdleSleep = 5 * time.Millisecond
	rt := New(flow, execute, commit, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.Run(ctx)
	}()

	done := rt.Tracker().Register([]string{"bad"})
	require.NoError(t, rt.Submit(ctx, Message{ID: "bad"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never completed")
	}

	cancel()
	wg.Wait()
}
