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
	"slices"
	"sync"

	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vogo/vlog"
)

// defaultRetainLimit caps how many recent messages a sink keeps for inspection.
const defaultRetainLimit = 1024

// MemoryStatsSink implements cores.StatsSink by keeping the most recent messages in memory.
// With a consumer set, every message is also handed to it synchronously.
type MemoryStatsSink struct {
	mutex    sync.Mutex
	messages []*cores.StatsMessage
	limit    int
	consumer func(ctx context.Context, msg *cores.StatsMessage) error
}

func NewMemoryStatsSink() *MemoryStatsSink {
	return &MemoryStatsSink{limit: defaultRetainLimit}
}

// SetConsumer routes sent messages to fn, e.g. ShortLinkService.ConsumeVisit.
func (s *MemoryStatsSink) SetConsumer(fn func(ctx context.Context, msg *cores.StatsMessage) error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.consumer = fn
}

func (s *MemoryStatsSink) Send(ctx context.Context, msg *cores.StatsMessage) error {
	s.mutex.Lock()
	if len(s.messages) == s.limit {
		s.messages = slices.Delete(s.messages, 0, 1)
	}
	s.messages = append(s.messages, msg)
	consumer := s.consumer
	s.mutex.Unlock()

	if consumer != nil {
		if err := consumer(ctx, msg); err != nil {
			vlog.Errorf("consume stats message failed, url: %s, err: %v", msg.FullShortUrl, err)
		}
	}
	return nil
}

// Messages returns the retained messages, oldest first.
func (s *MemoryStatsSink) Messages() []*cores.StatsMessage {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]*cores.StatsMessage(nil), s.messages...)
}
