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

package redisx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vogo/vgoto/cores"
)

const (
	DefaultLockLease         = 30 * time.Second
	DefaultLockRetryInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements cores.Locker with SET NX and a lease.
type RedisLocker struct {
	redis         *redis.Client
	keyPrefix     string
	lease         time.Duration
	retryInterval time.Duration
}

type LockerOption func(l *RedisLocker)

func WithLockKeyPrefix(prefix string) LockerOption {
	return func(l *RedisLocker) {
		l.keyPrefix = prefix
	}
}

// WithLockLease sets how long a lock survives a holder that never releases it.
func WithLockLease(lease time.Duration) LockerOption {
	return func(l *RedisLocker) {
		l.lease = lease
	}
}

func WithLockRetryInterval(interval time.Duration) LockerOption {
	return func(l *RedisLocker) {
		l.retryInterval = interval
	}
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(redisClient *redis.Client, opts ...LockerOption) *RedisLocker {
	l := &RedisLocker{
		redis:         redisClient,
		lease:         DefaultLockLease,
		retryInterval: DefaultLockRetryInterval,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Acquire implements cores.Locker.Acquire, retrying until ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (cores.Guard, error) {
	key = l.keyPrefix + key
	token := uuid.NewString()

	for {
		if ctx.Err() != nil {
			return nil, cores.LockWaitError(ctx)
		}

		ok, err := l.redis.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, cores.LockWaitError(ctx)
			}
			return nil, err
		}

		if ok {
			return &redisGuard{redis: l.redis, key: key, token: token}, nil
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, cores.LockWaitError(ctx)
		case <-timer.C:
		}
	}
}

type redisGuard struct {
	redis *redis.Client
	key   string
	token string
}

func (g *redisGuard) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, g.redis, []string{g.key}, g.token).Err()
}
