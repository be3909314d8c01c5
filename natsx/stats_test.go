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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vgoto/cores"
)

func newTestJetStream(t *testing.T) nats.JetStreamContext {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := nc.JetStream()
	require.NoError(t, err)

	require.NoError(t, EnsureStatsStream(js, DefaultStatsStreamName, DefaultStatsSubject))
	require.NoError(t, EnsureStatsStream(js, DefaultStatsStreamName, DefaultStatsSubject))

	return js
}

type statsCollector struct {
	mutex    sync.Mutex
	received map[string]int
	failOnce map[string]bool
}

func newStatsCollector(failOnce ...string) *statsCollector {
	c := &statsCollector{received: make(map[string]int), failOnce: make(map[string]bool)}
	for _, url := range failOnce {
		c.failOnce[url] = true
	}
	return c
}

func (c *statsCollector) handle(_ context.Context, msg *cores.StatsMessage) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.failOnce[msg.FullShortUrl] {
		c.failOnce[msg.FullShortUrl] = false
		return errors.New("try later")
	}
	c.received[msg.FullShortUrl]++
	return nil
}

func (c *statsCollector) snapshot() map[string]int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	result := make(map[string]int, len(c.received))
	for k, v := range c.received {
		result[k] = v
	}
	return result
}

func TestStatsSharedAcrossInstances(t *testing.T) {
	js := newTestJetStream(t)
	ctx := context.Background()

	collector := newStatsCollector()

	subA, err := SubscribeStats(js, "", "", "host-a", collector.handle)
	require.NoError(t, err)
	defer func() { _ = subA.Unsubscribe() }()

	subB, err := SubscribeStats(js, "", "", "host-b", collector.handle)
	require.NoError(t, err)
	defer func() { _ = subB.Unsubscribe() }()

	sink := NewJetStreamStatsSink(js, "")
	for i := 0; i < 20; i++ {
		require.NoError(t, sink.Send(ctx, &cores.StatsMessage{
			FullShortUrl: fmt.Sprintf("nurl.ink/%d", i),
			Gid:          "g1",
			StatsRecord:  `{"uv":"u1"}`,
		}))
	}

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 20
	}, 5*time.Second, 20*time.Millisecond)

	// give a duplicate delivery time to show up
	time.Sleep(100 * time.Millisecond)
	for url, count := range collector.snapshot() {
		assert.Equal(t, 1, count, url)
	}
}

func TestStatsRedeliveredAfterFailure(t *testing.T) {
	js := newTestJetStream(t)
	ctx := context.Background()

	collector := newStatsCollector("nurl.ink/retry")

	sub, err := SubscribeStats(js, "", "", "host-a", collector.handle)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	sink := NewJetStreamStatsSink(js, "")
	require.NoError(t, sink.Send(ctx, &cores.StatsMessage{FullShortUrl: "nurl.ink/retry", StatsRecord: `{}`}))

	// undecodable data is dropped, not redelivered forever
	_, err = js.Publish(DefaultStatsSubject, []byte("{broken"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return collector.snapshot()["nurl.ink/retry"] == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		info, infoErr := js.StreamInfo(DefaultStatsStreamName)
		return infoErr == nil && info.State.Msgs == 0
	}, 5*time.Second, 20*time.Millisecond)
}
