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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowRulesRedirectFailsFast(t *testing.T) {
	flow := NewFlowRules(10, 10*time.Millisecond, 2)

	require.NoError(t, flow.AllowRedirect())
	require.NoError(t, flow.AllowRedirect())
	assert.ErrorIs(t, flow.AllowRedirect(), ErrFlowLimited)
}

func TestFlowRulesCreateQueues(t *testing.T) {
	flow := NewFlowRules(1, 10*time.Millisecond, 10)
	ctx := context.Background()

	require.NoError(t, flow.AllowCreate(ctx))
	// the next token is a second away, beyond the queueing bound
	assert.ErrorIs(t, flow.AllowCreate(ctx), ErrFlowLimited)
}

func TestFlowRulesNil(t *testing.T) {
	var flow *FlowRules

	assert.NoError(t, flow.AllowRedirect())
	assert.NoError(t, flow.AllowCreate(context.Background()))
}
