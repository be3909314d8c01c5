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
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vogo/vlog"
)

const (
	DefaultStatsStream = "short-link:stats-stream"
	DefaultStatsGroup  = "short-link:stats-group"

	fieldFullShortUrl = "fullShortUrl"
	fieldGid          = "gid"
	fieldStatsRecord  = "statsRecord"

	defaultStreamBatch   = 64
	defaultStreamBlock   = 2 * time.Second
	defaultReclaimIdle   = 30 * time.Second
	streamReclaimStartID = "0-0"
)

// StreamStatsSink implements cores.StatsSink by appending to a Redis stream.
type StreamStatsSink struct {
	redis  *redis.Client
	stream string
	maxLen int64
}

// NewStreamStatsSink creates a sink; a positive maxLen trims the stream approximately.
func NewStreamStatsSink(redisClient *redis.Client, stream string, maxLen int64) *StreamStatsSink {
	if stream == "" {
		stream = DefaultStatsStream
	}
	return &StreamStatsSink{
		redis:  redisClient,
		stream: stream,
		maxLen: maxLen,
	}
}

func (s *StreamStatsSink) Send(ctx context.Context, msg *cores.StatsMessage) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			fieldFullShortUrl: msg.FullShortUrl,
			fieldGid:          msg.Gid,
			fieldStatsRecord:  msg.StatsRecord,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	return s.redis.XAdd(ctx, args).Err()
}

// StatsHandler consumes one stats message.
type StatsHandler func(ctx context.Context, msg *cores.StatsMessage) error

// StreamStatsConsumer reads a Redis stream through a consumer group.
// Entries are acknowledged only after the handler succeeds. Entries left pending longer than
// the reclaim idle time, by this consumer or a dead one, are claimed and handled again.
type StreamStatsConsumer struct {
	redis       *redis.Client
	stream      string
	group       string
	consumer    string
	handler     StatsHandler
	batch       int64
	block       time.Duration
	reclaimIdle time.Duration
}

func NewStreamStatsConsumer(redisClient *redis.Client, stream, group, consumer string, handler StatsHandler) *StreamStatsConsumer {
	if stream == "" {
		stream = DefaultStatsStream
	}
	if group == "" {
		group = DefaultStatsGroup
	}
	return &StreamStatsConsumer{
		redis:       redisClient,
		stream:      stream,
		group:       group,
		consumer:    consumer,
		handler:     handler,
		batch:       defaultStreamBatch,
		block:       defaultStreamBlock,
		reclaimIdle: defaultReclaimIdle,
	}
}

// SetBlock sets how long one poll waits for new entries.
func (c *StreamStatsConsumer) SetBlock(block time.Duration) {
	c.block = block
}

// SetReclaimIdle sets how long an entry stays pending before Reclaim retries it.
func (c *StreamStatsConsumer) SetReclaimIdle(idle time.Duration) {
	c.reclaimIdle = idle
}

// EnsureGroup creates the stream and its consumer group if missing.
func (c *StreamStatsConsumer) EnsureGroup(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Poll reads one batch and returns the number of acknowledged entries.
func (c *StreamStatsConsumer) Poll(ctx context.Context) (int, error) {
	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batch,
		Block:    c.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		n, handleErr := c.handle(ctx, stream.Messages)
		acked += n
		if handleErr != nil {
			return acked, handleErr
		}
	}

	return acked, nil
}

// Reclaim claims entries pending longer than the reclaim idle time and handles them again.
// It returns the number of acknowledged entries.
func (c *StreamStatsConsumer) Reclaim(ctx context.Context) (int, error) {
	acked := 0
	start := streamReclaimStartID

	for {
		entries, next, err := c.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			MinIdle:  c.reclaimIdle,
			Start:    start,
			Count:    c.batch,
			Consumer: c.consumer,
		}).Result()
		if err != nil {
			return acked, err
		}

		n, err := c.handle(ctx, entries)
		acked += n
		if err != nil {
			return acked, err
		}

		if next == "" || next == streamReclaimStartID {
			return acked, nil
		}
		start = next
	}
}

// handle passes entries to the handler and acknowledges the handled and the undecodable ones.
// Failed entries stay pending for Reclaim.
func (c *StreamStatsConsumer) handle(ctx context.Context, entries []redis.XMessage) (int, error) {
	acked := 0
	for _, entry := range entries {
		msg, decodeErr := decodeStreamEntry(entry)
		if decodeErr != nil {
			vlog.Errorf("drop stats stream entry, id: %s, err: %v", entry.ID, decodeErr)
		} else if handleErr := c.handler(ctx, msg); handleErr != nil {
			vlog.Errorf("handle stats stream entry failed, id: %s, err: %v", entry.ID, handleErr)
			continue
		}

		if ackErr := c.redis.XAck(ctx, c.stream, c.group, entry.ID).Err(); ackErr != nil {
			return acked, ackErr
		}
		acked++
	}
	return acked, nil
}

// Run polls until ctx is cancelled.
func (c *StreamStatsConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	vlog.Infof("stats stream consumer started, stream: %s, group: %s, consumer: %s", c.stream, c.group, c.consumer)

	var lastReclaim time.Time
	for {
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(lastReclaim) >= c.reclaimIdle {
			if n, err := c.Reclaim(ctx); err != nil {
				vlog.Errorf("reclaim stats stream failed, err: %v", err)
			} else if n > 0 {
				vlog.Infof("reclaimed stats stream entries, count: %d", n)
			}
			lastReclaim = time.Now()
		}

		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			vlog.Errorf("poll stats stream failed, err: %v", err)
			time.Sleep(time.Second)
		}
	}
}

func decodeStreamEntry(entry redis.XMessage) (*cores.StatsMessage, error) {
	record, ok := entry.Values[fieldStatsRecord].(string)
	if !ok {
		return nil, fmt.Errorf("missing field %s", fieldStatsRecord)
	}

	fullShortUrl, _ := entry.Values[fieldFullShortUrl].(string)
	gid, _ := entry.Values[fieldGid].(string)

	return &cores.StatsMessage{
		FullShortUrl: fullShortUrl,
		Gid:          gid,
		StatsRecord:  record,
	}, nil
}
