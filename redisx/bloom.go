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
	"math"

	"github.com/redis/go-redis/v9"
	"github.com/spaolacci/murmur3"
)

const (
	DefaultBloomKey               = "short-link:bloom-filter"
	DefaultBloomExpectedInsertion = 100_000_000
	DefaultBloomFalsePositiveRate = 0.001

	// redis bitmaps are limited to 2^32 bits
	maxBloomBits = 1 << 32
)

// RedisBloomFilter implements cores.ExistenceFilter over a Redis bitmap,
// so every instance of the service shares one filter.
type RedisBloomFilter struct {
	redis  *redis.Client
	key    string
	bits   uint64
	hashes uint64
}

// NewRedisBloomFilter sizes the bitmap for the expected insertions at the given false positive rate.
func NewRedisBloomFilter(redisClient *redis.Client, key string, expectedInsertions uint64, falsePositiveRate float64) *RedisBloomFilter {
	if key == "" {
		key = DefaultBloomKey
	}
	if expectedInsertions == 0 {
		expectedInsertions = DefaultBloomExpectedInsertion
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultBloomFalsePositiveRate
	}

	bits := optimalBits(expectedInsertions, falsePositiveRate)

	return &RedisBloomFilter{
		redis:  redisClient,
		key:    key,
		bits:   bits,
		hashes: optimalHashes(expectedInsertions, bits),
	}
}

// optimalBits returns m = -n*ln(p) / (ln2)^2
func optimalBits(n uint64, p float64) uint64 {
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	if m < 64 {
		m = 64
	}
	if m > maxBloomBits {
		m = maxBloomBits
	}
	return m
}

// optimalHashes returns k = m/n * ln2
func optimalHashes(n, m uint64) uint64 {
	k := uint64(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return k
}

func (f *RedisBloomFilter) offsets(key string) []int64 {
	h1, h2 := murmur3.Sum128([]byte(key))

	offsets := make([]int64, f.hashes)
	for i := uint64(0); i < f.hashes; i++ {
		offsets[i] = int64((h1 + i*h2) % f.bits)
	}
	return offsets
}

// MayContain implements cores.ExistenceFilter.MayContain
func (f *RedisBloomFilter) MayContain(ctx context.Context, key string) (bool, error) {
	offsets := f.offsets(key)

	pipe := f.redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(offsets))
	for i, offset := range offsets {
		cmds[i] = pipe.GetBit(ctx, f.key, offset)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Add implements cores.ExistenceFilter.Add
func (f *RedisBloomFilter) Add(ctx context.Context, key string) error {
	pipe := f.redis.Pipeline()
	for _, offset := range f.offsets(key) {
		pipe.SetBit(ctx, f.key, offset, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}
