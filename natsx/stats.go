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

package natsx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vogo/vlog"
)

const (
	DefaultStatsStreamName = "SHORT_LINK_STATS"
	DefaultStatsSubject    = "short-link.stats"
	DefaultStatsQueue      = "short-link-stats-group"

	statsAckWait = 30 * time.Second
)

// EnsureStatsStream creates the stats stream when it does not exist.
func EnsureStatsStream(js nats.JetStreamContext, name, subject string) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
	})
	return err
}

// JetStreamStatsSink implements cores.StatsSink by publishing to JetStream.
type JetStreamStatsSink struct {
	js      nats.JetStreamContext
	subject string
}

func NewJetStreamStatsSink(js nats.JetStreamContext, subject string) *JetStreamStatsSink {
	if subject == "" {
		subject = DefaultStatsSubject
	}
	return &JetStreamStatsSink{
		js:      js,
		subject: subject,
	}
}

// Send waits for the publish ack.
func (s *JetStreamStatsSink) Send(ctx context.Context, msg *cores.StatsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = s.js.Publish(s.subject, data, nats.Context(ctx))
	return err
}

// SubscribeStats delivers stats messages to handler through a durable queue group.
// Every instance binds to the one durable named after the queue, so each message is handled once
// across instances; instance only names the subscriber in logs.
// A message is acked after the handler succeeds and redelivered otherwise.
func SubscribeStats(js nats.JetStreamContext, subject, queue, instance string,
	handler func(ctx context.Context, msg *cores.StatsMessage) error,
) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultStatsSubject
	}
	if queue == "" {
		queue = DefaultStatsQueue
	}

	sub, err := js.QueueSubscribe(subject, queue, func(m *nats.Msg) {
		var msg cores.StatsMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			vlog.Errorf("drop undecodable stats message, err: %v", err)
			_ = m.Term()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), statsAckWait)
		defer cancel()

		if err := handler(ctx, &msg); err != nil {
			vlog.Errorf("handle stats message failed, instance: %s, url: %s, err: %v", instance, msg.FullShortUrl, err)
			_ = m.Nak()
			return
		}

		if err := m.Ack(); err != nil {
			vlog.Warnf("ack stats message failed, url: %s, err: %v", msg.FullShortUrl, err)
		}
	},
		nats.Durable(queue),
		nats.ManualAck(),
		nats.AckWait(statsAckWait),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe stats: %w", err)
	}

	vlog.Infof("stats subscription started, subject: %s, queue: %s, instance: %s", subject, queue, instance)

	return sub, nil
}
