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
	"fmt"

	"github.com/vogo/vogo/vlog"
)

type ResolveRequest struct {
	Host string
	Port int
	Path string
	// Visit describes the visitor for stats; nil records nothing.
	Visit *VisitInput
}

// RedirectTarget is the outcome of a resolve. Found false is the not-found terminal state.
type RedirectTarget struct {
	Found        bool
	FullShortUrl string
	OriginUrl    string
	// Gid is known only when the target came from the durable store.
	Gid string
}

// Resolve maps host[:port]/path to its origin url. Lookups go through the positive cache,
// the existence filter, the negative cache and, last, a per-url locked reload from the durable store.
func (s *ShortLinkService) Resolve(ctx context.Context, req *ResolveRequest) (*RedirectTarget, error) {
	fullShortUrl := FullShortUrl(req.Host, req.Port, req.Path)
	notFound := &RedirectTarget{FullShortUrl: fullShortUrl}

	// check whether the code match the format
	if len(req.Path) > s.maxCodeLength {
		return notFound, nil
	}

	if originUrl, ok := s.local.get(fullShortUrl, s.now()); ok {
		return s.found(ctx, fullShortUrl, originUrl, "", req.Visit), nil
	}

	originUrl, ok, err := s.Cache.Get(ctx, fullShortUrl)
	if err != nil {
		return nil, fmt.Errorf("get short link cache: %w", err)
	}
	if ok {
		s.local.add(fullShortUrl, originUrl, PermanentTTL, s.now())
		return s.found(ctx, fullShortUrl, originUrl, "", req.Visit), nil
	}

	contains, err := s.Filter.MayContain(ctx, fullShortUrl)
	if err != nil {
		return nil, fmt.Errorf("check existence filter: %w", err)
	}
	if !contains {
		return notFound, nil
	}

	absent, err := s.NullCache.IsAbsent(ctx, fullShortUrl)
	if err != nil {
		return nil, fmt.Errorf("get short link null cache: %w", err)
	}
	if absent {
		return notFound, nil
	}

	var target *RedirectTarget
	err = s.lockWithin(ctx, fmt.Sprintf(LockGotoShortLinkKey, fullShortUrl), s.lockWait, func() error {
		target, err = s.reload(ctx, fullShortUrl)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !target.Found {
		return target, nil
	}

	return s.found(ctx, fullShortUrl, target.OriginUrl, target.Gid, req.Visit), nil
}

// reload runs under the per-url lock. A holder that waited behind another one
// finds the cache repopulated and skips the store.
func (s *ShortLinkService) reload(ctx context.Context, fullShortUrl string) (*RedirectTarget, error) {
	notFound := &RedirectTarget{FullShortUrl: fullShortUrl}

	originUrl, ok, err := s.Cache.Get(ctx, fullShortUrl)
	if err != nil {
		return nil, fmt.Errorf("get short link cache: %w", err)
	}
	if ok {
		return &RedirectTarget{Found: true, FullShortUrl: fullShortUrl, OriginUrl: originUrl}, nil
	}

	linkGoto, err := s.Repo.FindGoto(ctx, fullShortUrl)
	if err != nil {
		return nil, fmt.Errorf("find short link goto: %w", err)
	}
	if linkGoto == nil {
		s.markAbsent(ctx, fullShortUrl)
		return notFound, nil
	}

	link, err := s.Repo.FindLiveLink(ctx, LinkFilter{Gid: linkGoto.Gid, FullShortUrl: fullShortUrl})
	if err != nil {
		return nil, fmt.Errorf("find short link: %w", err)
	}

	now := s.now()
	if link == nil || link.IsExpired(now) {
		s.markAbsent(ctx, fullShortUrl)
		return notFound, nil
	}

	ttl := link.CacheTTL(now)
	if err = s.Cache.Set(ctx, fullShortUrl, link.OriginUrl, ttl); err != nil {
		vlog.Errorf("cache short link failed, url: %s, err: %v", fullShortUrl, err)
	}
	s.local.add(fullShortUrl, link.OriginUrl, ttl, now)

	return &RedirectTarget{
		Found:        true,
		FullShortUrl: fullShortUrl,
		OriginUrl:    link.OriginUrl,
		Gid:          link.Gid,
	}, nil
}

func (s *ShortLinkService) markAbsent(ctx context.Context, fullShortUrl string) {
	if err := s.NullCache.MarkAbsent(ctx, fullShortUrl, NullCacheTTL); err != nil {
		vlog.Errorf("mark short link absent failed, url: %s, err: %v", fullShortUrl, err)
	}
}

func (s *ShortLinkService) found(ctx context.Context, fullShortUrl, originUrl, gid string, visit *VisitInput) *RedirectTarget {
	if s.Stats != nil && visit != nil {
		s.Stats.Record(ctx, fullShortUrl, gid, visit)
	}

	return &RedirectTarget{
		Found:        true,
		FullShortUrl: fullShortUrl,
		OriginUrl:    originUrl,
		Gid:          gid,
	}
}
