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

package cores_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vgoto/mem"
)

const testDomain = "nurl.ink"

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, opts ...cores.ServiceOption) (*mem.MemoryShortLinkService, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	opts = append([]cores.ServiceOption{cores.WithDomain(testDomain)}, opts...)
	svc := mem.NewMemoryShortLinkService(clock.Now, opts...)

	// tests flush explicitly
	svc.Stats.Stop()
	svc.Stats = cores.NewStatsRecorder(svc.Visitors, svc.Sink,
		cores.WithStatsClock(clock.Now),
		cores.WithStatsFlushInterval(time.Hour))
	t.Cleanup(svc.Stop)

	return svc, clock
}

func codeOf(fullShortUrl string) string {
	return fullShortUrl[strings.LastIndex(fullShortUrl, "/")+1:]
}

func resolveRequest(fullShortUrl string, visit *cores.VisitInput) *cores.ResolveRequest {
	return &cores.ResolveRequest{Host: testDomain, Path: codeOf(fullShortUrl), Visit: visit}
}

// constantRandom makes every generated code for one origin url identical.
func constantRandom() string {
	return "fixed"
}
