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
	"sync"
	"time"

	"github.com/vogo/vgoto/cores"
)

const defaultLockWait = 10 * time.Second

// MemoryLocker implements cores.Locker for a single process. Each key is a one-slot channel,
// kept only while someone holds or waits for it.
type MemoryLocker struct {
	mutex sync.Mutex
	slots map[string]*lockSlot
	wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a locker whose Acquire waits at most wait; zero uses the default.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &MemoryLocker{
		slots: make(map[string]*lockSlot),
		wait:  wait,
	}
}

func (l *MemoryLocker) ref(key string) *lockSlot {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	slot, exists := l.slots[key]
	if !exists {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryLocker) unref(key string, slot *lockSlot) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// Acquire implements cores.Locker.Acquire
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (cores.Guard, error) {
	slot := l.ref(key)

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	select {
	case slot.ch <- struct{}{}:
		return &memoryGuard{locker: l, key: key, slot: slot}, nil
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, cores.LockWaitError(ctx)
	}
}

// Locked reports whether key is currently held.
func (l *MemoryLocker) Locked(key string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	slot, exists := l.slots[key]
	return exists && len(slot.ch) == 1
}

// Keys returns how many keys are held or waited for.
func (l *MemoryLocker) Keys() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.slots)
}

type memoryGuard struct {
	once   sync.Once
	locker *MemoryLocker
	key    string
	slot   *lockSlot
}

func (g *memoryGuard) Release(context.Context) error {
	g.once.Do(func() {
		<-g.slot.ch
		g.locker.unref(g.key, g.slot)
	})
	return nil
}
