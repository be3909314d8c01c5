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
	"time"
)

type UpdateRequest struct {
	FullShortUrl  string        `json:"full_short_url" validate:"required"`
	OriginGid     string        `json:"origin_gid" validate:"required"`
	Gid           string        `json:"gid" validate:"required"`
	OriginUrl     string        `json:"origin_url" validate:"required,url"`
	ValidDateType ValidDateType `json:"valid_date_type" validate:"oneof=0 1"`
	ValidDate     *time.Time    `json:"valid_date" validate:"required_if=ValidDateType 1"`
	Describe      string        `json:"describe"`
}

// Update patches a live link in place, or moves it to another group when the group changes.
// Counters are never written here: a move carries them over to the new row.
func (s *ShortLinkService) Update(ctx context.Context, req *UpdateRequest) error {
	if err := VerifyWhitelist(s.whitelist, req.OriginUrl); err != nil {
		return err
	}

	filter := LinkFilter{Gid: req.OriginGid, FullShortUrl: req.FullShortUrl}

	existing, err := s.Repo.FindLiveLink(ctx, filter)
	if err != nil {
		return fmt.Errorf("find short link: %w", err)
	}
	if existing == nil {
		return ErrLinkNotFound
	}

	validDate := req.ValidDate
	if req.ValidDateType == ValidDatePermanent {
		validDate = nil
	}

	if existing.Gid == req.Gid {
		rows, updateErr := s.Repo.UpdateLink(ctx, filter, &LinkPatch{
			OriginUrl:     req.OriginUrl,
			Describe:      req.Describe,
			ValidDateType: req.ValidDateType,
			ValidDate:     validDate,
		})
		if updateErr != nil {
			return fmt.Errorf("update short link: %w", updateErr)
		}
		if rows == 0 {
			return ErrLinkNotFound
		}
	} else {
		err = s.lockWithin(ctx, fmt.Sprintf(LockGidUpdateKey, req.FullShortUrl), s.lockWait, func() error {
			return s.Repo.Transaction(ctx, func(tx ShortLinkRepository) error {
				return s.moveGroup(ctx, tx, filter, req, validDate)
			})
		})
		if err != nil {
			return err
		}
	}

	return s.invalidateUpdated(ctx, existing, req, validDate)
}

// moveGroup soft deletes the row in the old group and recreates it, with its routing row, in the new group.
func (s *ShortLinkService) moveGroup(ctx context.Context, tx ShortLinkRepository, filter LinkFilter, req *UpdateRequest, validDate *time.Time) error {
	// re-read under the lock so counters are the latest ones
	current, err := tx.FindLiveLink(ctx, filter)
	if err != nil {
		return fmt.Errorf("find short link: %w", err)
	}
	if current == nil {
		return ErrLinkNotFound
	}

	now := s.now()

	rows, err := tx.SoftDeleteLink(ctx, filter, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("delete short link: %w", err)
	}
	if rows == 0 {
		return ErrLinkNotFound
	}

	moved := &ShortLink{
		Domain:        current.Domain,
		ShortUri:      current.ShortUri,
		FullShortUrl:  current.FullShortUrl,
		OriginUrl:     req.OriginUrl,
		Gid:           req.Gid,
		CreatedType:   current.CreatedType,
		ValidDateType: req.ValidDateType,
		ValidDate:     validDate,
		Describe:      req.Describe,
		EnableStatus:  current.EnableStatus,
		DelFlag:       DelFlagLive,
		Favicon:       current.Favicon,
		TotalPv:       current.TotalPv,
		TotalUv:       current.TotalUv,
		TotalUip:      current.TotalUip,
		CreateTime:    current.CreateTime,
		UpdateTime:    now,
	}
	if err = tx.InsertLink(ctx, moved); err != nil {
		return fmt.Errorf("insert moved short link: %w", err)
	}

	if err = tx.MoveStatsToday(ctx, current.FullShortUrl, current.Gid, req.Gid); err != nil {
		return fmt.Errorf("move today stats: %w", err)
	}

	if err = tx.DeleteGoto(ctx, current.Gid, current.FullShortUrl); err != nil {
		return fmt.Errorf("delete short link goto: %w", err)
	}

	if err = tx.InsertGoto(ctx, &ShortLinkGoto{Gid: req.Gid, FullShortUrl: current.FullShortUrl}); err != nil {
		return fmt.Errorf("insert short link goto: %w", err)
	}

	return nil
}

// invalidateUpdated drops the cached origin when it or the expiry changed, and clears the
// absent marker of a link that was expired and is valid again.
func (s *ShortLinkService) invalidateUpdated(ctx context.Context, existing *ShortLink, req *UpdateRequest, validDate *time.Time) error {
	expiryChanged := existing.ValidDateType != req.ValidDateType || !sameTime(existing.ValidDate, validDate)
	if !expiryChanged && existing.OriginUrl == req.OriginUrl {
		return nil
	}

	s.local.remove(req.FullShortUrl)
	if err := s.Cache.Remove(ctx, req.FullShortUrl); err != nil {
		return fmt.Errorf("invalidate short link cache: %w", err)
	}

	if !expiryChanged {
		return nil
	}

	now := s.now()
	if existing.IsExpired(now) && (req.ValidDateType == ValidDatePermanent || (validDate != nil && validDate.After(now))) {
		if err := s.NullCache.ClearAbsent(ctx, req.FullShortUrl); err != nil {
			return fmt.Errorf("clear short link null cache: %w", err)
		}
	}

	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
