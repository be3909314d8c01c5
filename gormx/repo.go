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
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/vogo/vgoto/cores"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// mysqlDuplicateEntry is the MySQL error number for a duplicate key.
	mysqlDuplicateEntry = 1062

	liveUrlBatchSize = 1000
)

// GormShortLinkRepository implements cores.ShortLinkRepository interface with GORM
type GormShortLinkRepository struct {
	db *gorm.DB
}

// NewGormShortLinkRepository creates a new GormShortLinkRepository
func NewGormShortLinkRepository(db *gorm.DB) *GormShortLinkRepository {
	return &GormShortLinkRepository{
		db: db,
	}
}

// AutoMigrate creates or updates the link tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&LinkModel{}, &GotoModel{}, &StatsTodayModel{})
}

// translateError maps duplicate key errors to cores.ErrUniqueViolation.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry) {
		return fmt.Errorf("%w: %v", cores.ErrUniqueViolation, err)
	}

	return err
}

func (r *GormShortLinkRepository) live(ctx context.Context, filter cores.LinkFilter) *gorm.DB {
	return r.db.WithContext(ctx).Model(&LinkModel{}).
		Where("gid = ? AND full_short_url = ? AND enable_status = ? AND del_flag = ? AND del_time = 0",
			filter.Gid, filter.FullShortUrl, cores.EnableStatusEnabled, cores.DelFlagLive)
}

// Transaction implements cores.ShortLinkRepository.Transaction
func (r *GormShortLinkRepository) Transaction(ctx context.Context, fn func(tx cores.ShortLinkRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormShortLinkRepository{db: tx})
	})
}

// InsertLink implements cores.ShortLinkRepository.InsertLink
func (r *GormShortLinkRepository) InsertLink(ctx context.Context, link *cores.ShortLink) error {
	model := FromCore(link)

	now := time.Now()
	if model.CreateTime.IsZero() {
		model.CreateTime = now
	}
	model.UpdateTime = now

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}

	link.ID = model.ID
	link.CreateTime = model.CreateTime
	link.UpdateTime = model.UpdateTime

	return nil
}

// InsertGoto implements cores.ShortLinkRepository.InsertGoto
func (r *GormShortLinkRepository) InsertGoto(ctx context.Context, linkGoto *cores.ShortLinkGoto) error {
	model := &GotoModel{
		Gid:          linkGoto.Gid,
		FullShortUrl: linkGoto.FullShortUrl,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}

	linkGoto.ID = model.ID

	return nil
}

// FindLiveLink implements cores.ShortLinkRepository.FindLiveLink
func (r *GormShortLinkRepository) FindLiveLink(ctx context.Context, filter cores.LinkFilter) (*cores.ShortLink, error) {
	var model LinkModel
	if err := r.live(ctx, filter).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return model.ToCore(), nil
}

// FindGoto implements cores.ShortLinkRepository.FindGoto
func (r *GormShortLinkRepository) FindGoto(ctx context.Context, fullShortUrl string) (*cores.ShortLinkGoto, error) {
	var model GotoModel
	if err := r.db.WithContext(ctx).Where("full_short_url = ?", fullShortUrl).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &cores.ShortLinkGoto{
		ID:           model.ID,
		Gid:          model.Gid,
		FullShortUrl: model.FullShortUrl,
	}, nil
}

// ExistsLink implements cores.ShortLinkRepository.ExistsLink
func (r *GormShortLinkRepository) ExistsLink(ctx context.Context, gid, fullShortUrl string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LinkModel{}).
		Where("gid = ? AND full_short_url = ? AND del_flag = ?", gid, fullShortUrl, cores.DelFlagLive).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ListLiveUrls implements cores.ShortLinkRepository.ListLiveUrls
func (r *GormShortLinkRepository) ListLiveUrls(ctx context.Context, fn func(fullShortUrl string) error) error {
	var batch []LinkModel
	return r.db.WithContext(ctx).Model(&LinkModel{}).
		Select("id", "full_short_url").
		Where("del_flag = ?", cores.DelFlagLive).
		FindInBatches(&batch, liveUrlBatchSize, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(batch[i].FullShortUrl); err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// UpdateLink implements cores.ShortLinkRepository.UpdateLink.
// MySQL reports changed rows only, so a matched but unchanged row is counted separately.
func (r *GormShortLinkRepository) UpdateLink(ctx context.Context, filter cores.LinkFilter, patch *cores.LinkPatch) (int64, error) {
	result := r.live(ctx, filter).Updates(map[string]any{
		"origin_url":      patch.OriginUrl,
		"describe":        patch.Describe,
		"valid_date_type": patch.ValidDateType,
		"valid_date":      patch.ValidDate,
		"update_time":     time.Now(),
	})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		return result.RowsAffected, nil
	}

	var count int64
	if err := r.live(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// SoftDeleteLink implements cores.ShortLinkRepository.SoftDeleteLink
func (r *GormShortLinkRepository) SoftDeleteLink(ctx context.Context, filter cores.LinkFilter, delTime int64) (int64, error) {
	result := r.live(ctx, filter).Updates(map[string]any{
		"del_flag":    cores.DelFlagDeleted,
		"del_time":    delTime,
		"update_time": time.Now(),
	})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteGoto implements cores.ShortLinkRepository.DeleteGoto
func (r *GormShortLinkRepository) DeleteGoto(ctx context.Context, gid, fullShortUrl string) error {
	return r.db.WithContext(ctx).
		Where("gid = ? AND full_short_url = ?", gid, fullShortUrl).
		Delete(&GotoModel{}).Error
}

// MoveStatsToday implements cores.ShortLinkRepository.MoveStatsToday
func (r *GormShortLinkRepository) MoveStatsToday(ctx context.Context, fullShortUrl, fromGid, toGid string) error {
	return r.db.WithContext(ctx).Model(&StatsTodayModel{}).
		Where("full_short_url = ? AND gid = ?", fullShortUrl, fromGid).
		Updates(map[string]any{
			"gid":         toGid,
			"update_time": time.Now(),
		}).Error
}

// IncrLinkStats implements cores.ShortLinkRepository.IncrLinkStats
func (r *GormShortLinkRepository) IncrLinkStats(ctx context.Context, filter cores.LinkFilter, delta cores.LinkStatsDelta) error {
	return r.live(ctx, filter).Updates(map[string]any{
		"total_pv":  gorm.Expr("total_pv + ?", delta.Pv),
		"total_uv":  gorm.Expr("total_uv + ?", delta.Uv),
		"total_uip": gorm.Expr("total_uip + ?", delta.Uip),
	}).Error
}

// UpsertStatsToday implements cores.ShortLinkRepository.UpsertStatsToday
func (r *GormShortLinkRepository) UpsertStatsToday(ctx context.Context, stats *cores.LinkStatsToday) error {
	now := time.Now()
	model := &StatsTodayModel{
		Gid:          stats.Gid,
		FullShortUrl: stats.FullShortUrl,
		Date:         stats.Date,
		TodayPv:      stats.TodayPv,
		TodayUv:      stats.TodayUv,
		TodayUip:     stats.TodayUip,
		CreateTime:   now,
		UpdateTime:   now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "full_short_url"}, {Name: "gid"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"today_pv":    gorm.Expr("today_pv + ?", stats.TodayPv),
			"today_uv":    gorm.Expr("today_uv + ?", stats.TodayUv),
			"today_uip":   gorm.Expr("today_uip + ?", stats.TodayUip),
			"update_time": now,
		}),
	}).Create(model).Error
}

type groupCount struct {
	Gid            string
	ShortLinkCount int64
}

// CountByGroups implements cores.ShortLinkRepository.CountByGroups
func (r *GormShortLinkRepository) CountByGroups(ctx context.Context, gids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(gids))
	if len(gids) == 0 {
		return counts, nil
	}

	var rows []groupCount
	err := r.db.WithContext(ctx).Model(&LinkModel{}).
		Select("gid, count(*) AS short_link_count").
		Where("gid IN ? AND enable_status = ? AND del_flag = ? AND del_time = 0", gids, cores.EnableStatusEnabled, cores.DelFlagLive).
		Group("gid").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.Gid] = row.ShortLinkCount
	}

	return counts, nil
}

// PageLinks implements cores.ShortLinkRepository.PageLinks
func (r *GormShortLinkRepository) PageLinks(ctx context.Context, gid string, offset, limit int) ([]*cores.ShortLink, int64, error) {
	query := r.db.WithContext(ctx).Model(&LinkModel{}).
		Where("gid = ? AND enable_status = ? AND del_flag = ? AND del_time = 0", gid, cores.EnableStatusEnabled, cores.DelFlagLive).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []LinkModel
	if err := query.Order("create_time DESC, id DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	links := make([]*cores.ShortLink, len(models))
	for i := range models {
		links[i] = models[i].ToCore()
	}

	return links, total, nil
}
