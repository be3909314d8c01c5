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
	"fmt"

	"github.com/vogo/vgoto/cores"
	"github.com/vogo/vgoto/memx"
	"github.com/vogo/vogo/vlog"
	"gorm.io/gorm"
)

const (
	singleNodeFilterInsertions = 1_000_000
	singleNodeFilterFpp        = 0.001
)

// GormShortLinkService stores links with GORM and keeps caches, filter and locks in process.
// It fits a single node; use redisx with a GormShortLinkRepository when scaling out.
type GormShortLinkService struct {
	*cores.ShortLinkService
	db *gorm.DB
}

// NewGormShortLinkService creates a new GormShortLinkService.
// The in-process existence filter is seeded from the stored links before the service is returned.
// Visits are aggregated in process by ConsumeVisit.
func NewGormShortLinkService(ctx context.Context, db *gorm.DB, opts ...cores.ServiceOption) (*GormShortLinkService, error) {
	coreService, err := newSingleNodeService(ctx, NewGormShortLinkRepository(db), opts...)
	if err != nil {
		return nil, err
	}

	return &GormShortLinkService{
		ShortLinkService: coreService,
		db:               db,
	}, nil
}

func newSingleNodeService(ctx context.Context, repo cores.ShortLinkRepository, opts ...cores.ServiceOption) (*cores.ShortLinkService, error) {
	filter := memx.NewMemoryBloomFilter(singleNodeFilterInsertions, singleNodeFilterFpp)

	seeded, err := cores.SeedFilter(ctx, repo, filter)
	if err != nil {
		return nil, fmt.Errorf("seed existence filter: %w", err)
	}
	vlog.Infof("existence filter seeded with %d short links", seeded)

	cache := memx.NewMemoryLinkCache(nil)
	nullCache := memx.NewMemoryNullCache(nil)
	locker := memx.NewMemoryLocker(0)

	sink := memx.NewMemoryStatsSink()
	recorder := cores.NewStatsRecorder(memx.NewMemoryVisitorSet(), sink)

	opts = append([]cores.ServiceOption{cores.WithStatsRecorder(recorder)}, opts...)

	coreService := cores.NewShortLinkService(repo, cache, nullCache, filter, locker, opts...)
	if coreService.Stats != recorder {
		recorder.Stop()
	} else {
		sink.SetConsumer(coreService.ConsumeVisit)
	}

	return coreService, nil
}
