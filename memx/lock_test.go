/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vgoto/cores"
)

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond)
	ctx := context.Background()

	guard, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, locker.Locked("k"))

	_, err = locker.Acquire(ctx, "k")
	require.ErrorIs(t, err, cores.ErrLockTimeout)

	// other keys are independent
	other, err := locker.Acquire(ctx, "other")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, guard.Release(ctx))
	require.NoError(t, guard.Release(ctx))
	assert.False(t, locker.Locked("k"))

	guard, err = locker.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx))
}

func TestMemoryLockerForgetsReleasedKeys(t *testing.T) {
	locker := NewMemoryLocker(20 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		guard, err := locker.Acquire(ctx, fmt.Sprintf("lock:goto:nurl.ink/%d", i))
		require.NoError(t, err)
		require.NoError(t, guard.Release(ctx))
	}
	assert.Zero(t, locker.Keys())

	// a timed out waiter leaves nothing behind once the holder releases
	guard, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, "k")
	require.ErrorIs(t, err, cores.ErrLockTimeout)
	assert.Equal(t, 1, locker.Keys())

	require.NoError(t, guard.Release(ctx))
	assert.Zero(t, locker.Keys())
}

func TestMemoryLockerWaiterKeepsSlot(t *testing.T) {
	locker := NewMemoryLocker(time.Second)
	ctx := context.Background()

	guard, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan cores.Guard)
	go func() {
		next, err := locker.Acquire(ctx, "k")
		if err != nil {
			close(acquired)
			return
		}
		acquired <- next
	}()

	// the release must hand the slot to the waiter, not drop it
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, guard.Release(ctx))

	next, ok := <-acquired
	require.True(t, ok)
	assert.True(t, locker.Locked("k"))
	require.NoError(t, next.Release(ctx))
	assert.Zero(t, locker.Keys())
}

func TestMemoryLockerCancel(t *testing.T) {
	locker := NewMemoryLocker(time.Minute)

	guard, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer func() { _ = guard.Release(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBloomFilterAndVisitors(t *testing.T) {
	ctx := context.Background()

	filter := NewMemoryBloomFilter(1000, 0.001)
	require.NoError(t, filter.Add(ctx, "nurl.ink/a"))
	contains, _ := filter.MayContain(ctx, "nurl.ink/a")
	assert.True(t, contains)
	contains, _ = filter.MayContain(ctx, "nurl.ink/b")
	assert.False(t, contains)

	visitors := NewMemoryVisitorSet()
	added, _ := visitors.Add(ctx, "stats:uv:nurl.ink/a", "u1")
	assert.True(t, added)
	added, _ = visitors.Add(ctx, "stats:uv:nurl.ink/a", "u1")
	assert.False(t, added)
	added, _ = visitors.Add(ctx, "stats:uv:nurl.ink/b", "u1")
	assert.True(t, added)
}
