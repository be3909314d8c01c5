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
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vgoto/cores"
)

func TestMemoryStatsSinkRetainsRecentMessages(t *testing.T) {
	sink := NewMemoryStatsSink()
	ctx := context.Background()

	var consumed atomic.Int64
	sink.SetConsumer(func(context.Context, *cores.StatsMessage) error {
		consumed.Add(1)
		return nil
	})

	for i := 0; i < 10000; i++ {
		require.NoError(t, sink.Send(ctx, &cores.StatsMessage{FullShortUrl: fmt.Sprintf("nurl.ink/%d", i)}))
	}

	assert.Equal(t, int64(10000), consumed.Load())

	messages := sink.Messages()
	require.Len(t, messages, defaultRetainLimit)
	assert.Equal(t, fmt.Sprintf("nurl.ink/%d", 10000-defaultRetainLimit), messages[0].FullShortUrl)
	assert.Equal(t, "nurl.ink/9999", messages[len(messages)-1].FullShortUrl)
}
