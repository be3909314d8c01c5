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

package mem

import (
	"time"

	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vgoto/memx"
)

const (
	filterInsertions = 100_000
	filterFpp        = 0.001
)

// MemoryShortLinkService is a memory-based implementation of ShortLinkService.
// Every collaborator is exposed so callers can inspect or seed it.
type MemoryShortLinkService struct {
	*cores.ShortLinkService
	Repo      *memx.MemoryShortLinkRepository
	Cache     *memx.MemoryLinkCache
	NullCache *memx.MemoryNullCache
	Filter    *memx.MemoryBloomFilter
	Locker    *memx.MemoryLocker
	Visitors  *memx.MemoryVisitorSet
	Sink      *memx.MemoryStatsSink
}

// NewMemoryShortLinkService creates a new MemoryShortLinkService with in-memory implementations
// of every collaborator. A nil now uses time.Now. Sent visits are consumed synchronously.
func NewMemoryShortLinkService(now func() time.Time, opts ...cores.ServiceOption) *MemoryShortLinkService {
	if now == nil {
		now = time.Now
	}

	repo := memx.NewMemoryShortLinkRepository()
	cache := memx.NewMemoryLinkCache(now)
	nullCache := memx.NewMemoryNullCache(now)
	filter := memx.NewMemoryBloomFilter(filterInsertions, filterFpp)
	locker := memx.NewMemoryLocker(0)
	visitors := memx.NewMemoryVisitorSet()
	sink := memx.NewMemoryStatsSink()

	recorder := cores.NewStatsRecorder(visitors, sink, cores.WithStatsClock(now))

	opts = append([]cores.ServiceOption{cores.WithClock(now), cores.WithStatsRecorder(recorder)}, opts...)

	coreService := cores.NewShortLinkService(repo, cache, nullCache, filter, locker, opts...)
	if coreService.Stats != recorder {
		recorder.Stop()
	}
	sink.SetConsumer(coreService.ConsumeVisit)

	return &MemoryShortLinkService{
		ShortLinkService: coreService,
		Repo:             repo,
		Cache:            cache,
		NullCache:        nullCache,
		Filter:           filter,
		Locker:           locker,
		Visitors:         visitors,
		Sink:             sink,
	}
}
