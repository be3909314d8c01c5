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

	"github.com/bits-and-blooms/bloom/v3"
)

// MemoryBloomFilter implements cores.ExistenceFilter with an in-process bloom filter.
type MemoryBloomFilter struct {
	mutex  sync.RWMutex
	filter *bloom.BloomFilter
}

func NewMemoryBloomFilter(expectedInsertions uint, falsePositiveRate float64) *MemoryBloomFilter {
	return &MemoryBloomFilter{
		filter: bloom.NewWithEstimates(expectedInsertions, falsePositiveRate),
	}
}

func (f *MemoryBloomFilter) MayContain(_ context.Context, key string) (bool, error) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	return f.filter.TestString(key), nil
}

func (f *MemoryBloomFilter) Add(_ context.Context, key string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.filter.AddString(key)
	return nil
}
