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
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vgoto/cores"
)

func TestCountByGroups(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, &cores.CreateRequest{OriginUrl: fmt.Sprintf("https://example.com/a/%d", i), Gid: "a"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, &cores.CreateRequest{OriginUrl: "https://example.com/b", Gid: "b"})
	require.NoError(t, err)

	counts, err := svc.CountByGroups(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, &cores.GroupLinkCount{Gid: "a", ShortLinkCount: 3}, counts[0])
	assert.Equal(t, &cores.GroupLinkCount{Gid: "b", ShortLinkCount: 1}, counts[1])
	assert.Equal(t, &cores.GroupLinkCount{Gid: "c", ShortLinkCount: 0}, counts[2])
}

func TestPageLinks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, &cores.CreateRequest{OriginUrl: fmt.Sprintf("https://example.com/p/%d", i), Gid: "g1"})
		require.NoError(t, err)
	}

	page, err := svc.PageLinks(ctx, "g1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, int64(10), page.Size)
	require.Len(t, page.Records, 10)
	assert.Equal(t, "https://example.com/p/11", page.Records[0].OriginUrl)

	page, err = svc.PageLinks(ctx, "g1", 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "https://example.com/p/0", page.Records[1].OriginUrl)

	page, err = svc.PageLinks(ctx, "g1", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Records)

	page, err = svc.PageLinks(ctx, "g1", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Current)
	assert.Equal(t, int64(100), page.Size)
}
