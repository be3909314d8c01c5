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
)

// LinkFilter selects live link rows. Rows that are deleted or disabled never match.
type LinkFilter struct {
	Gid          string
	FullShortUrl string
}

// LinkPatch holds the fields an in-place update may change.
// ValidDate is written as given, so a nil value clears the column.
type LinkPatch struct {
	OriginUrl     string
	Describe      string
	ValidDateType ValidDateType
	ValidDate     *time.Time
}

// LinkStatsDelta is the counter increment produced by one visit.
type LinkStatsDelta struct {
	Pv  int64
	Uv  int64
	Uip int64
}

// ShortLinkRepository is the durable store. Lookups return nil, nil when nothing matches.
// Inserts that break a uniqueness constraint return an error matching ErrUniqueViolation.
type ShortLinkRepository interface {
	// Transaction runs fn with a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(tx ShortLinkRepository) error) error

	InsertLink(ctx context.Context, link *ShortLink) error
	InsertGoto(ctx context.Context, linkGoto *ShortLinkGoto) error

	FindLiveLink(ctx context.Context, filter LinkFilter) (*ShortLink, error)
	FindGoto(ctx context.Context, fullShortUrl string) (*ShortLinkGoto, error)
	// ExistsLink reports whether a non-deleted row with the url exists in the group.
	ExistsLink(ctx context.Context, gid, fullShortUrl string) (bool, error)
	// ListLiveUrls calls fn with the full short url of every non-deleted row.
	ListLiveUrls(ctx context.Context, fn func(fullShortUrl string) error) error

	UpdateLink(ctx context.Context, filter LinkFilter, patch *LinkPatch) (int64, error)
	SoftDeleteLink(ctx context.Context, filter LinkFilter, delTime int64) (int64, error)
	DeleteGoto(ctx context.Context, gid, fullShortUrl string) error

	// MoveStatsToday reassigns same-day aggregate rows from one group to another.
	MoveStatsToday(ctx context.Context, fullShortUrl, fromGid, toGid string) error
	IncrLinkStats(ctx context.Context, filter LinkFilter, delta LinkStatsDelta) error
	UpsertStatsToday(ctx context.Context, stats *LinkStatsToday) error

	CountByGroups(ctx context.Context, gids []string) (map[string]int64, error)
	PageLinks(ctx context.Context, gid string, offset, limit int) ([]*ShortLink, int64, error)
}
