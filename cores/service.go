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
	"time"
)

const (
	defaultDomain         = "nurl.ink"
	defaultLockWait       = 3 * time.Second
	defaultCreateLockWait = 10 * time.Second
	defaultNotFoundPage   = "/page/notfound"

	// DefaultMaxCodeLength is the longest code HashToBase62 produces.
	DefaultMaxCodeLength = 6
)

type ShortLinkService struct {
	Repo      ShortLinkRepository
	Cache     PositiveCache
	NullCache NegativeCache
	Filter    ExistenceFilter
	Locker    Locker
	Stats     *StatsRecorder

	domain         string
	whitelist      Whitelist
	generator      *ShortCodeGenerator
	random         func() string
	now            func() time.Time
	lockWait       time.Duration
	createLockWait time.Duration
	local          *localCache
	flow           *FlowRules
	authToken      string
	notFoundPage   string
	maxCodeLength  int
}

type ServiceOption func(s *ShortLinkService)

// WithDomain sets the domain new short links are created under.
func WithDomain(domain string) ServiceOption {
	return func(s *ShortLinkService) {
		s.domain = domain
	}
}

func WithWhitelist(wl Whitelist) ServiceOption {
	return func(s *ShortLinkService) {
		s.whitelist = wl
	}
}

func WithStatsRecorder(recorder *StatsRecorder) ServiceOption {
	return func(s *ShortLinkService) {
		s.Stats = recorder
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *ShortLinkService) {
		s.now = now
	}
}

// WithRandom replaces the random value mixed into every generated code.
func WithRandom(random func() string) ServiceOption {
	return func(s *ShortLinkService) {
		s.random = random
	}
}

// WithLockWait bounds the wait for redirect reload and group update locks.
func WithLockWait(wait time.Duration) ServiceOption {
	return func(s *ShortLinkService) {
		s.lockWait = wait
	}
}

// WithCreateLockWait bounds the wait for the serialized creation lock.
func WithCreateLockWait(wait time.Duration) ServiceOption {
	return func(s *ShortLinkService) {
		s.createLockWait = wait
	}
}

// WithLocalCache enables an in-process LRU in front of the positive cache.
func WithLocalCache(size int, ttl time.Duration) ServiceOption {
	return func(s *ShortLinkService) {
		if size > 0 && ttl > 0 {
			s.local = newLocalCache(size, ttl)
		}
	}
}

func WithFlowRules(flow *FlowRules) ServiceOption {
	return func(s *ShortLinkService) {
		s.flow = flow
	}
}

func WithAuthToken(token string) ServiceOption {
	return func(s *ShortLinkService) {
		s.authToken = token
	}
}

func WithNotFoundPage(page string) ServiceOption {
	return func(s *ShortLinkService) {
		s.notFoundPage = page
	}
}

// WithMaxCodeLength sets the longest code Resolve looks up; longer paths are not found at once.
func WithMaxCodeLength(length int) ServiceOption {
	return func(s *ShortLinkService) {
		if length > 0 {
			s.maxCodeLength = length
		}
	}
}

func NewShortLinkService(repo ShortLinkRepository,
	cache PositiveCache,
	nullCache NegativeCache,
	filter ExistenceFilter,
	locker Locker,
	opts ...ServiceOption,
) *ShortLinkService {
	svc := &ShortLinkService{
		Repo:      repo,
		Cache:     cache,
		NullCache: nullCache,
		Filter:    filter,
		Locker:    locker,

		domain:         defaultDomain,
		now:            time.Now,
		lockWait:       defaultLockWait,
		createLockWait: defaultCreateLockWait,
		notFoundPage:   defaultNotFoundPage,
		maxCodeLength:  DefaultMaxCodeLength,
	}

	for _, opt := range opts {
		opt(svc)
	}

	svc.generator = NewShortCodeGenerator(svc.domain, svc.random)

	return svc
}

func (s *ShortLinkService) Domain() string {
	return s.domain
}

// Stop flushes pending visit records and stops background work.
func (s *ShortLinkService) Stop() {
	if s.Stats != nil {
		s.Stats.Stop()
	}
}

// lockWithin acquires key waiting at most wait and runs fn while holding it.
func (s *ShortLinkService) lockWithin(ctx context.Context, key string, wait time.Duration, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	guard, err := s.Locker.Acquire(lockCtx, key)
	if err != nil {
		return err
	}

	return withGuard(ctx, key, guard, fn)
}
