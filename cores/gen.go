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

	"github.com/google/uuid"
)

// MaxGenerateAttempts caps how many candidates are tried for one origin url.
const MaxGenerateAttempts = 10

// CodeChecker tells whether a candidate full short url is already taken.
type CodeChecker interface {
	Taken(ctx context.Context, fullShortUrl string) (bool, error)
}

// FilterChecker is the optimistic strategy: it consults the existence filter only.
type FilterChecker struct {
	Filter ExistenceFilter
}

func (c FilterChecker) Taken(ctx context.Context, fullShortUrl string) (bool, error) {
	return c.Filter.MayContain(ctx, fullShortUrl)
}

// StoreChecker is the pessimistic strategy: it asks the durable store for a non-deleted row in the group.
type StoreChecker struct {
	Repo ShortLinkRepository
	Gid  string
}

func (c StoreChecker) Taken(ctx context.Context, fullShortUrl string) (bool, error) {
	return c.Repo.ExistsLink(ctx, c.Gid, fullShortUrl)
}

type ShortCodeGenerator struct {
	domain string
	random func() string
}

func NewShortCodeGenerator(domain string, random func() string) *ShortCodeGenerator {
	if random == nil {
		random = uuid.NewString
	}
	return &ShortCodeGenerator{
		domain: domain,
		random: random,
	}
}

// Generate returns a short code whose full short url the checker reports free.
func (g *ShortCodeGenerator) Generate(ctx context.Context, originUrl string, checker CodeChecker) (string, error) {
	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		code := HashToBase62(originUrl + g.random())

		taken, err := checker.Taken(ctx, g.FullShortUrl(code))
		if err != nil {
			return "", fmt.Errorf("check short code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrGenerationExhausted
}

func (g *ShortCodeGenerator) FullShortUrl(code string) string {
	return g.domain + "/" + code
}
