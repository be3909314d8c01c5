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
	"github.com/redis/go-redis/v9"
	"github.com/vogo/vgoto/cores"
)

// RedisShortLinkService wires the Redis caches, filter, locker and stats stream around a link store.
type RedisShortLinkService struct {
	*cores.ShortLinkService
	redis *redis.Client
}

// NewRedisShortLinkService creates a new RedisShortLinkService.
// Visits are published to the default stats stream unless a stats recorder option overrides it.
func NewRedisShortLinkService(redisClient *redis.Client, repo cores.ShortLinkRepository, opts ...cores.ServiceOption) *RedisShortLinkService {
	cache := NewGotoCache(redisClient)
	nullCache := NewGotoNullCache(redisClient)
	filter := NewRedisBloomFilter(redisClient, DefaultBloomKey, DefaultBloomExpectedInsertion, DefaultBloomFalsePositiveRate)
	locker := NewRedisLocker(redisClient)

	recorder := cores.NewStatsRecorder(NewRedisVisitorSet(redisClient, ""), NewStreamStatsSink(redisClient, DefaultStatsStream, 0))

	opts = append([]cores.ServiceOption{cores.WithStatsRecorder(recorder)}, opts...)

	coreService := cores.NewShortLinkService(repo, cache, nullCache, filter, locker, opts...)
	if coreService.Stats != recorder {
		recorder.Stop()
	}

	return &RedisShortLinkService{
		ShortLinkService: coreService,
		redis:            redisClient,
	}
}

// NewStatsConsumer creates a stream consumer that feeds visits into ConsumeVisit.
func (s *RedisShortLinkService) NewStatsConsumer(consumer string) *StreamStatsConsumer {
	return NewStreamStatsConsumer(s.redis, DefaultStatsStream, DefaultStatsGroup, consumer, s.ConsumeVisit)
}
