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

package cores

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultCreateQPS      = 800
	DefaultCreateMaxQueue = 500 * time.Millisecond
	DefaultRedirectQPS    = 3000
)

// FlowRules guards the two public entry points. Creation queues for a token up to
// a bounded time; redirect fails fast.
type FlowRules struct {
	create         *rate.Limiter
	createMaxQueue time.Duration
	redirect       *rate.Limiter
}

func NewFlowRules(createQPS int, createMaxQueue time.Duration, redirectQPS int) *FlowRules {
	return &FlowRules{
		create:         rate.NewLimiter(rate.Limit(createQPS), createQPS),
		createMaxQueue: createMaxQueue,
		redirect:       rate.NewLimiter(rate.Limit(redirectQPS), redirectQPS),
	}
}

func DefaultFlowRules() *FlowRules {
	return NewFlowRules(DefaultCreateQPS, DefaultCreateMaxQueue, DefaultRedirectQPS)
}

// AllowCreate waits at most the queueing bound for a creation token.
func (f *FlowRules) AllowCreate(ctx context.Context) error {
	if f == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.createMaxQueue)
	defer cancel()

	if err := f.create.Wait(ctx); err != nil {
		return ErrFlowLimited
	}
	return nil
}

// AllowRedirect takes a redirect token without waiting.
func (f *FlowRules) AllowRedirect() error {
	if f == nil || f.redirect.Allow() {
		return nil
	}
	return ErrFlowLimited
}
