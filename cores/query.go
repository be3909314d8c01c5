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
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type GroupLinkCount struct {
	Gid            string `json:"gid"`
	ShortLinkCount int64  `json:"short_link_count"`
}

// CountByGroups counts the live links of every requested group; groups without links count zero.
func (s *ShortLinkService) CountByGroups(ctx context.Context, gids []string) ([]*GroupLinkCount, error) {
	counts, err := s.Repo.CountByGroups(ctx, gids)
	if err != nil {
		return nil, fmt.Errorf("count short links: %w", err)
	}

	result := make([]*GroupLinkCount, 0, len(gids))
	for _, gid := range gids {
		result = append(result, &GroupLinkCount{Gid: gid, ShortLinkCount: counts[gid]})
	}
	return result, nil
}

type LinkPage struct {
	Current int64        `json:"current"`
	Size    int64        `json:"size"`
	Total   int64        `json:"total"`
	Records []*ShortLink `json:"records"`
}

// PageLinks lists the live links of a group, newest first. Page numbers start at 1.
func (s *ShortLinkService) PageLinks(ctx context.Context, gid string, current, size int) (*LinkPage, error) {
	if current < 1 {
		current = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	links, total, err := s.Repo.PageLinks(ctx, gid, (current-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("page short links: %w", err)
	}

	return &LinkPage{
		Current: int64(current),
		Size:    int64(size),
		Total:   total,
		Records: links,
	}, nil
}
