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

package cores

import (
	"context"
	"errors"

	"github.com/vogo/vogo/vlog"
)

// Locker is a distributed mutual exclusion keyed by resource name.
// Acquire waits until ctx is done or the locker's own bound passes, then fails with ErrLockTimeout.
type Locker interface {
	Acquire(ctx context.Context, key string) (Guard, error)
}

type Guard interface {
	Release(ctx context.Context) error
}

// LockWaitError maps the end of a lock wait to ErrLockTimeout, keeping cancellation as is.
func LockWaitError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return ErrLockTimeout
}

// withGuard runs fn and releases guard on every exit path, panics included.
func withGuard(ctx context.Context, key string, guard Guard, fn func() error) error {
	defer func() {
		if err := guard.Release(context.WithoutCancel(ctx)); err != nil {
			vlog.Errorf("release lock failed, key: %s, err: %v", key, err)
		}
	}()

	return fn()
}
