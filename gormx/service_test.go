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

package gormx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vgoto/memx"
)

func TestSingleNodeServiceResolvesAfterRestart(t *testing.T) {
	ctx := context.Background()
	repo := memx.NewMemoryShortLinkRepository()

	first, err := newSingleNodeService(ctx, repo, cores.WithDomain("nurl.ink"))
	require.NoError(t, err)

	created, err := first.Create(ctx, &cores.CreateRequest{OriginUrl: "https://example.com/restart", Gid: "g1"})
	require.NoError(t, err)
	first.Stop()

	second, err := newSingleNodeService(ctx, repo, cores.WithDomain("nurl.ink"))
	require.NoError(t, err)
	defer second.Stop()

	code := created.FullShortUrl[len("nurl.ink/"):]
	target, err := second.Resolve(ctx, &cores.ResolveRequest{Host: "nurl.ink", Path: code})
	require.NoError(t, err)
	assert.True(t, target.Found)
	assert.Equal(t, "https://example.com/restart", target.OriginUrl)
	assert.Equal(t, int64(1), repo.Calls.FindGoto.Load())
}

func TestSingleNodeServiceSkipsDeletedLinks(t *testing.T) {
	ctx := context.Background()
	repo := memx.NewMemoryShortLinkRepository()

	require.NoError(t, repo.InsertLink(ctx, &cores.ShortLink{FullShortUrl: "nurl.ink/live", Gid: "g1"}))
	require.NoError(t, repo.InsertLink(ctx, &cores.ShortLink{FullShortUrl: "nurl.ink/gone", Gid: "g1"}))
	_, err := repo.SoftDeleteLink(ctx, cores.LinkFilter{Gid: "g1", FullShortUrl: "nurl.ink/gone"}, 1000)
	require.NoError(t, err)

	filter := memx.NewMemoryBloomFilter(1000, 0.001)
	seeded, err := cores.SeedFilter(ctx, repo, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	contains, _ := filter.MayContain(ctx, "nurl.ink/live")
	assert.True(t, contains)
	contains, _ = filter.MayContain(ctx, "nurl.ink/gone")
	assert.False(t, contains)
}
