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
	"errors"
	"fmt"
	"time"

	"github.com/vogo/vogo/vlog"
)

type CreateRequest struct {
	OriginUrl     string        `json:"origin_url" validate:"required,url"`
	Gid           string        `json:"gid" validate:"required"`
	CreatedType   CreatedType   `json:"created_type" validate:"oneof=0 1"`
	ValidDateType ValidDateType `json:"valid_date_type" validate:"oneof=0 1"`
	ValidDate     *time.Time    `json:"valid_date" validate:"required_if=ValidDateType 1"`
	Describe      string        `json:"describe"`
}

type CreateResult struct {
	FullShortUrl string `json:"full_short_url"`
	ShortUrl     string `json:"short_url"`
	OriginUrl    string `json:"origin_url"`
	Gid          string `json:"gid"`
}

// Create generates a code checked against the existence filter and stores the link with its routing row.
func (s *ShortLinkService) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if err := VerifyWhitelist(s.whitelist, req.OriginUrl); err != nil {
		return nil, err
	}

	code, err := s.generator.Generate(ctx, req.OriginUrl, FilterChecker{Filter: s.Filter})
	if err != nil {
		return nil, err
	}

	link, linkGoto := s.buildLink(req, code)

	if err = s.insertLink(ctx, link, linkGoto); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			if addErr := s.Filter.Add(ctx, link.FullShortUrl); addErr != nil {
				vlog.Errorf("add duplicate short link to filter failed, url: %s, err: %v", link.FullShortUrl, addErr)
			}
			vlog.Warnf("short link generated duplicate, url: %s", link.FullShortUrl)
			return nil, ErrDuplicateLink.WithMessage("short link %s generated duplicate", link.FullShortUrl)
		}
		return nil, err
	}

	if err = s.publishCreated(ctx, link); err != nil {
		return nil, err
	}

	return newCreateResult(link), nil
}

// CreateSerialized holds the deployment-wide creation lock while it generates and stores the link,
// checking candidates against the durable store.
func (s *ShortLinkService) CreateSerialized(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	if err := VerifyWhitelist(s.whitelist, req.OriginUrl); err != nil {
		return nil, err
	}

	var link *ShortLink

	err := s.lockWithin(ctx, LockCreateShortLinkKey, s.createLockWait, func() error {
		code, err := s.generator.Generate(ctx, req.OriginUrl, StoreChecker{Repo: s.Repo, Gid: req.Gid})
		if err != nil {
			return err
		}

		var linkGoto *ShortLinkGoto
		link, linkGoto = s.buildLink(req, code)

		if err = s.insertLink(ctx, link, linkGoto); err != nil {
			if errors.Is(err, ErrUniqueViolation) {
				vlog.Warnf("serialized short link generated duplicate, url: %s", link.FullShortUrl)
				return ErrDuplicateLink.WithMessage("short link %s generated duplicate", link.FullShortUrl)
			}
			return err
		}

		return s.publishCreated(ctx, link)
	})
	if err != nil {
		return nil, err
	}

	return newCreateResult(link), nil
}

type BatchCreateRequest struct {
	OriginUrls    []string      `json:"origin_urls" validate:"required,min=1,dive,required,url"`
	Describes     []string      `json:"describes"`
	Gid           string        `json:"gid" validate:"required"`
	CreatedType   CreatedType   `json:"created_type" validate:"oneof=0 1"`
	ValidDateType ValidDateType `json:"valid_date_type" validate:"oneof=0 1"`
	ValidDate     *time.Time    `json:"valid_date"`
}

type BatchLinkInfo struct {
	FullShortUrl string `json:"full_short_url"`
	OriginUrl    string `json:"origin_url"`
	Describe     string `json:"describe"`
}

type BatchCreateResult struct {
	Total int              `json:"total"`
	Links []*BatchLinkInfo `json:"links"`
}

// BatchCreate creates one link per origin url. Failed items are logged and skipped.
func (s *ShortLinkService) BatchCreate(ctx context.Context, req *BatchCreateRequest) *BatchCreateResult {
	result := &BatchCreateResult{Links: make([]*BatchLinkInfo, 0, len(req.OriginUrls))}

	for i, originUrl := range req.OriginUrls {
		describe := ""
		if i < len(req.Describes) {
			describe = req.Describes[i]
		}

		created, err := s.Create(ctx, &CreateRequest{
			OriginUrl:     originUrl,
			Gid:           req.Gid,
			CreatedType:   req.CreatedType,
			ValidDateType: req.ValidDateType,
			ValidDate:     req.ValidDate,
			Describe:      describe,
		})
		if err != nil {
			vlog.Errorf("batch create short link failed, origin url: %s, err: %v", originUrl, err)
			continue
		}

		result.Links = append(result.Links, &BatchLinkInfo{
			FullShortUrl: created.ShortUrl,
			OriginUrl:    created.OriginUrl,
			Describe:     describe,
		})
	}

	result.Total = len(result.Links)
	return result
}

func (s *ShortLinkService) buildLink(req *CreateRequest, code string) (*ShortLink, *ShortLinkGoto) {
	now := s.now()
	fullShortUrl := s.generator.FullShortUrl(code)

	validDate := req.ValidDate
	if req.ValidDateType == ValidDatePermanent {
		validDate = nil
	}

	link := &ShortLink{
		Domain:        s.domain,
		ShortUri:      code,
		FullShortUrl:  fullShortUrl,
		OriginUrl:     req.OriginUrl,
		Gid:           req.Gid,
		CreatedType:   req.CreatedType,
		ValidDateType: req.ValidDateType,
		ValidDate:     validDate,
		Describe:      req.Describe,
		EnableStatus:  EnableStatusEnabled,
		DelFlag:       DelFlagLive,
		CreateTime:    now,
		UpdateTime:    now,
	}

	linkGoto := &ShortLinkGoto{
		Gid:          req.Gid,
		FullShortUrl: fullShortUrl,
	}

	return link, linkGoto
}

func (s *ShortLinkService) insertLink(ctx context.Context, link *ShortLink, linkGoto *ShortLinkGoto) error {
	return s.Repo.Transaction(ctx, func(tx ShortLinkRepository) error {
		if err := tx.InsertLink(ctx, link); err != nil {
			return err
		}
		return tx.InsertGoto(ctx, linkGoto)
	})
}

// publishCreated warms the positive cache and registers the url in the existence filter.
// Cache failures are logged, filter failures are returned.
func (s *ShortLinkService) publishCreated(ctx context.Context, link *ShortLink) error {
	if err := s.Cache.Set(ctx, link.FullShortUrl, link.OriginUrl, link.CacheTTL(s.now())); err != nil {
		vlog.Errorf("cache created short link failed, url: %s, err: %v", link.FullShortUrl, err)
	}

	if err := s.Filter.Add(ctx, link.FullShortUrl); err != nil {
		return fmt.Errorf("register %s in existence filter: %w", link.FullShortUrl, err)
	}

	return nil
}

func newCreateResult(link *ShortLink) *CreateResult {
	return &CreateResult{
		FullShortUrl: link.FullShortUrl,
		ShortUrl:     "http://" + link.FullShortUrl,
		OriginUrl:    link.OriginUrl,
		Gid:          link.Gid,
	}
}
