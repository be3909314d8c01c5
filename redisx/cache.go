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
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogo/vgoto/cores"
)

const nullCacheValue = "-"

// GotoCache implements cores.PositiveCache with Redis string keys.
type GotoCache struct {
	redis     *redis.Client
	keyPrefix string
}

type CacheOption func(c *GotoCache)

func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(c *GotoCache) {
		c.keyPrefix = prefix
	}
}

// NewGotoCache creates a new GotoCache
func NewGotoCache(redisClient *redis.Client, opts ...CacheOption) *GotoCache {
	c := &GotoCache{
		redis: redisClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *GotoCache) key(fullShortUrl string) string {
	return c.keyPrefix + fmt.Sprintf(cores.GotoShortLinkKey, fullShortUrl)
}

// Get implements cores.PositiveCache.Get
func (c *GotoCache) Get(ctx context.Context, fullShortUrl string) (string, bool, error) {
	value, err := c.redis.Get(ctx, c.key(fullShortUrl)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}

	return value, true, nil
}

// Set implements cores.PositiveCache.Set
func (c *GotoCache) Set(ctx context.Context, fullShortUrl, originUrl string, ttl time.Duration) error {
	return setWithTTL(ctx, c.redis, c.key(fullShortUrl), originUrl, ttl)
}

// Remove implements cores.PositiveCache.Remove
func (c *GotoCache) Remove(ctx context.Context, fullShortUrl string) error {
	return c.redis.Del(ctx, c.key(fullShortUrl)).Err()
}

// GotoNullCache implements cores.NegativeCache with Redis string keys.
type GotoNullCache struct {
	redis     *redis.Client
	keyPrefix string
}

// NewGotoNullCache creates a new GotoNullCache, sharing the cache key prefix option.
func NewGotoNullCache(redisClient *redis.Client, opts ...CacheOption) *GotoNullCache {
	c := NewGotoCache(redisClient, opts...)
	return &GotoNullCache{
		redis:     redisClient,
		keyPrefix: c.keyPrefix,
	}
}

func (c *GotoNullCache) key(fullShortUrl string) string {
	return c.keyPrefix + fmt.Sprintf(cores.GotoIsNullShortLinkKey, fullShortUrl)
}

// IsAbsent implements cores.NegativeCache.IsAbsent
func (c *GotoNullCache) IsAbsent(ctx context.Context, fullShortUrl string) (bool, error) {
	count, err := c.redis.Exists(ctx, c.key(fullShortUrl)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkAbsent implements cores.NegativeCache.MarkAbsent
func (c *GotoNullCache) MarkAbsent(ctx context.Context, fullShortUrl string, ttl time.Duration) error {
	return setWithTTL(ctx, c.redis, c.key(fullShortUrl), nullCacheValue, ttl)
}

// ClearAbsent implements cores.NegativeCache.ClearAbsent
func (c *GotoNullCache) ClearAbsent(ctx context.Context, fullShortUrl string) error {
	return c.redis.Del(ctx, c.key(fullShortUrl)).Err()
}

// setWithTTL maps cores.PermanentTTL to no expiration and a non-positive ttl to a delete.
func setWithTTL(ctx context.Context, client *redis.Client, key, value string, ttl time.Duration) error {
	switch {
	case ttl == cores.PermanentTTL:
		return client.Set(ctx, key, value, 0).Err()
	case ttl <= 0:
		return client.Del(ctx, key).Err()
	default:
		return client.Set(ctx, key, value, ttl).Err()
	}
}
