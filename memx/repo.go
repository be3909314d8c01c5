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

package memx

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vogo/vgoto/cores"
)

// RepositoryCalls counts lookups that reach the store.
type RepositoryCalls struct {
	FindGoto     atomic.Int64
	FindLiveLink atomic.Int64
	ExistsLink   atomic.Int64
}

// MemoryShortLinkRepository implements cores.ShortLinkRepository interface with in-memory storage.
// Transactions run one at a time and undo only their own writes on error.
type MemoryShortLinkRepository struct {
	mutex   sync.RWMutex
	txMutex sync.Mutex
	links   []*cores.ShortLink
	gotos   map[string]*cores.ShortLinkGoto // full short url -> goto
	stats   []*cores.LinkStatsToday
	nextID  int64

	Calls RepositoryCalls
}

// NewMemoryShortLinkRepository creates a new MemoryShortLinkRepository
func NewMemoryShortLinkRepository() *MemoryShortLinkRepository {
	return &MemoryShortLinkRepository{
		gotos:  make(map[string]*cores.ShortLinkGoto),
		nextID: 1,
	}
}

// undoFunc reverts one write. It runs with the repository mutex held.
type undoFunc func()

// Transaction implements cores.ShortLinkRepository.Transaction
func (r *MemoryShortLinkRepository) Transaction(_ context.Context, fn func(tx cores.ShortLinkRepository) error) error {
	r.txMutex.Lock()
	defer r.txMutex.Unlock()

	tx := &memoryTx{MemoryShortLinkRepository: r}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memoryTx records an undo step for every write made through it.
type memoryTx struct {
	*MemoryShortLinkRepository
	undo []undoFunc
}

func (tx *memoryTx) Transaction(_ context.Context, fn func(tx cores.ShortLinkRepository) error) error {
	return fn(tx)
}

func (tx *memoryTx) record(undo undoFunc, err error) error {
	if err == nil && undo != nil {
		tx.undo = append(tx.undo, undo)
	}
	return err
}

func (tx *memoryTx) rollback() {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()

	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) InsertLink(_ context.Context, link *cores.ShortLink) error {
	return tx.record(tx.insertLink(link))
}

func (tx *memoryTx) InsertGoto(_ context.Context, linkGoto *cores.ShortLinkGoto) error {
	return tx.record(tx.insertGoto(linkGoto))
}

func (tx *memoryTx) UpdateLink(_ context.Context, filter cores.LinkFilter, patch *cores.LinkPatch) (int64, error) {
	rows, undo := tx.updateLink(filter, patch)
	return rows, tx.record(undo, nil)
}

func (tx *memoryTx) SoftDeleteLink(_ context.Context, filter cores.LinkFilter, delTime int64) (int64, error) {
	rows, undo := tx.softDeleteLink(filter, delTime)
	return rows, tx.record(undo, nil)
}

func (tx *memoryTx) DeleteGoto(_ context.Context, gid, fullShortUrl string) error {
	return tx.record(tx.deleteGoto(gid, fullShortUrl), nil)
}

func (tx *memoryTx) MoveStatsToday(_ context.Context, fullShortUrl, fromGid, toGid string) error {
	return tx.record(tx.moveStatsToday(fullShortUrl, fromGid, toGid), nil)
}

func (tx *memoryTx) IncrLinkStats(_ context.Context, filter cores.LinkFilter, delta cores.LinkStatsDelta) error {
	return tx.record(tx.incrLinkStats(filter, delta), nil)
}

func (tx *memoryTx) UpsertStatsToday(_ context.Context, stats *cores.LinkStatsToday) error {
	return tx.record(tx.upsertStatsToday(stats), nil)
}

// InsertLink implements cores.ShortLinkRepository.InsertLink
func (r *MemoryShortLinkRepository) InsertLink(_ context.Context, link *cores.ShortLink) error {
	_, err := r.insertLink(link)
	return err
}

func (r *MemoryShortLinkRepository) insertLink(link *cores.ShortLink) (undoFunc, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, l := range r.links {
		if l.FullShortUrl == link.FullShortUrl && l.DelTime == link.DelTime {
			return nil, fmt.Errorf("insert link %s: %w", link.FullShortUrl, cores.ErrUniqueViolation)
		}
	}

	link.ID = r.nextID
	r.nextID++
	stored := copyLink(link)
	r.links = append(r.links, stored)

	return func() {
		r.links = slices.DeleteFunc(r.links, func(l *cores.ShortLink) bool { return l == stored })
	}, nil
}

// InsertGoto implements cores.ShortLinkRepository.InsertGoto
func (r *MemoryShortLinkRepository) InsertGoto(_ context.Context, linkGoto *cores.ShortLinkGoto) error {
	_, err := r.insertGoto(linkGoto)
	return err
}

func (r *MemoryShortLinkRepository) insertGoto(linkGoto *cores.ShortLinkGoto) (undoFunc, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.gotos[linkGoto.FullShortUrl]; exists {
		return nil, fmt.Errorf("insert goto %s: %w", linkGoto.FullShortUrl, cores.ErrUniqueViolation)
	}

	linkGoto.ID = r.nextID
	r.nextID++
	stored := *linkGoto
	r.gotos[linkGoto.FullShortUrl] = &stored

	return func() {
		if r.gotos[stored.FullShortUrl] == &stored {
			delete(r.gotos, stored.FullShortUrl)
		}
	}, nil
}

func (r *MemoryShortLinkRepository) findLive(filter cores.LinkFilter) *cores.ShortLink {
	for _, l := range r.links {
		if l.Gid == filter.Gid && l.FullShortUrl == filter.FullShortUrl && l.DelTime == 0 && l.IsLive() {
			return l
		}
	}
	return nil
}

// FindLiveLink implements cores.ShortLinkRepository.FindLiveLink
func (r *MemoryShortLinkRepository) FindLiveLink(_ context.Context, filter cores.LinkFilter) (*cores.ShortLink, error) {
	r.Calls.FindLiveLink.Add(1)

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if link := r.findLive(filter); link != nil {
		return copyLink(link), nil
	}
	return nil, nil
}

// FindGoto implements cores.ShortLinkRepository.FindGoto
func (r *MemoryShortLinkRepository) FindGoto(_ context.Context, fullShortUrl string) (*cores.ShortLinkGoto, error) {
	r.Calls.FindGoto.Add(1)

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	g, exists := r.gotos[fullShortUrl]
	if !exists {
		return nil, nil
	}
	c := *g
	return &c, nil
}

// ExistsLink implements cores.ShortLinkRepository.ExistsLink
func (r *MemoryShortLinkRepository) ExistsLink(_ context.Context, gid, fullShortUrl string) (bool, error) {
	r.Calls.ExistsLink.Add(1)

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, l := range r.links {
		if l.Gid == gid && l.FullShortUrl == fullShortUrl && l.DelFlag == cores.DelFlagLive {
			return true, nil
		}
	}
	return false, nil
}

// ListLiveUrls implements cores.ShortLinkRepository.ListLiveUrls
func (r *MemoryShortLinkRepository) ListLiveUrls(_ context.Context, fn func(fullShortUrl string) error) error {
	r.mutex.RLock()
	urls := make([]string, 0, len(r.links))
	for _, l := range r.links {
		if l.DelFlag == cores.DelFlagLive {
			urls = append(urls, l.FullShortUrl)
		}
	}
	r.mutex.RUnlock()

	for _, u := range urls {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

// UpdateLink implements cores.ShortLinkRepository.UpdateLink
func (r *MemoryShortLinkRepository) UpdateLink(_ context.Context, filter cores.LinkFilter, patch *cores.LinkPatch) (int64, error) {
	rows, _ := r.updateLink(filter, patch)
	return rows, nil
}

func (r *MemoryShortLinkRepository) updateLink(filter cores.LinkFilter, patch *cores.LinkPatch) (int64, undoFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	link := r.findLive(filter)
	if link == nil {
		return 0, nil
	}

	before := *link

	link.OriginUrl = patch.OriginUrl
	link.Describe = patch.Describe
	link.ValidDateType = patch.ValidDateType
	link.ValidDate = patch.ValidDate

	return 1, func() {
		link.OriginUrl = before.OriginUrl
		link.Describe = before.Describe
		link.ValidDateType = before.ValidDateType
		link.ValidDate = before.ValidDate
	}
}

// SoftDeleteLink implements cores.ShortLinkRepository.SoftDeleteLink
func (r *MemoryShortLinkRepository) SoftDeleteLink(_ context.Context, filter cores.LinkFilter, delTime int64) (int64, error) {
	rows, _ := r.softDeleteLink(filter, delTime)
	return rows, nil
}

func (r *MemoryShortLinkRepository) softDeleteLink(filter cores.LinkFilter, delTime int64) (int64, undoFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	link := r.findLive(filter)
	if link == nil {
		return 0, nil
	}

	delFlag, prevDelTime := link.DelFlag, link.DelTime
	link.DelFlag = cores.DelFlagDeleted
	link.DelTime = delTime

	return 1, func() {
		link.DelFlag = delFlag
		link.DelTime = prevDelTime
	}
}

// DeleteGoto implements cores.ShortLinkRepository.DeleteGoto
func (r *MemoryShortLinkRepository) DeleteGoto(_ context.Context, gid, fullShortUrl string) error {
	r.deleteGoto(gid, fullShortUrl)
	return nil
}

func (r *MemoryShortLinkRepository) deleteGoto(gid, fullShortUrl string) undoFunc {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	g, exists := r.gotos[fullShortUrl]
	if !exists || g.Gid != gid {
		return nil
	}
	delete(r.gotos, fullShortUrl)

	return func() {
		if _, taken := r.gotos[fullShortUrl]; !taken {
			r.gotos[fullShortUrl] = g
		}
	}
}

// MoveStatsToday implements cores.ShortLinkRepository.MoveStatsToday
func (r *MemoryShortLinkRepository) MoveStatsToday(_ context.Context, fullShortUrl, fromGid, toGid string) error {
	r.moveStatsToday(fullShortUrl, fromGid, toGid)
	return nil
}

func (r *MemoryShortLinkRepository) moveStatsToday(fullShortUrl, fromGid, toGid string) undoFunc {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var moved []*cores.LinkStatsToday
	for _, s := range r.stats {
		if s.FullShortUrl == fullShortUrl && s.Gid == fromGid {
			s.Gid = toGid
			moved = append(moved, s)
		}
	}
	if len(moved) == 0 {
		return nil
	}

	return func() {
		for _, s := range moved {
			s.Gid = fromGid
		}
	}
}

// IncrLinkStats implements cores.ShortLinkRepository.IncrLinkStats
func (r *MemoryShortLinkRepository) IncrLinkStats(_ context.Context, filter cores.LinkFilter, delta cores.LinkStatsDelta) error {
	r.incrLinkStats(filter, delta)
	return nil
}

func (r *MemoryShortLinkRepository) incrLinkStats(filter cores.LinkFilter, delta cores.LinkStatsDelta) undoFunc {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	link := r.findLive(filter)
	if link == nil {
		return nil
	}

	link.TotalPv += delta.Pv
	link.TotalUv += delta.Uv
	link.TotalUip += delta.Uip

	return func() {
		link.TotalPv -= delta.Pv
		link.TotalUv -= delta.Uv
		link.TotalUip -= delta.Uip
	}
}

// UpsertStatsToday implements cores.ShortLinkRepository.UpsertStatsToday
func (r *MemoryShortLinkRepository) UpsertStatsToday(_ context.Context, stats *cores.LinkStatsToday) error {
	r.upsertStatsToday(stats)
	return nil
}

func (r *MemoryShortLinkRepository) upsertStatsToday(stats *cores.LinkStatsToday) undoFunc {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, s := range r.stats {
		if s.FullShortUrl == stats.FullShortUrl && s.Gid == stats.Gid && s.Date.Equal(stats.Date) {
			s.TodayPv += stats.TodayPv
			s.TodayUv += stats.TodayUv
			s.TodayUip += stats.TodayUip

			row, delta := s, *stats
			return func() {
				row.TodayPv -= delta.TodayPv
				row.TodayUv -= delta.TodayUv
				row.TodayUip -= delta.TodayUip
			}
		}
	}

	stored := *stats
	stored.ID = r.nextID
	r.nextID++
	r.stats = append(r.stats, &stored)

	return func() {
		r.stats = slices.DeleteFunc(r.stats, func(s *cores.LinkStatsToday) bool { return s == &stored })
	}
}

// CountByGroups implements cores.ShortLinkRepository.CountByGroups
func (r *MemoryShortLinkRepository) CountByGroups(_ context.Context, gids []string) (map[string]int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	counts := make(map[string]int64, len(gids))
	for _, l := range r.links {
		if l.DelTime == 0 && l.IsLive() && slices.Contains(gids, l.Gid) {
			counts[l.Gid]++
		}
	}
	return counts, nil
}

// PageLinks implements cores.ShortLinkRepository.PageLinks
func (r *MemoryShortLinkRepository) PageLinks(_ context.Context, gid string, offset, limit int) ([]*cores.ShortLink, int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matched []*cores.ShortLink
	for i := len(r.links) - 1; i >= 0; i-- {
		l := r.links[i]
		if l.Gid == gid && l.DelTime == 0 && l.IsLive() {
			matched = append(matched, copyLink(l))
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*cores.ShortLink{}, total, nil
	}
	end := min(offset+limit, len(matched))

	return matched[offset:end], total, nil
}

// StatsToday returns the same-day aggregate rows of a link.
func (r *MemoryShortLinkRepository) StatsToday(fullShortUrl string) []*cores.LinkStatsToday {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*cores.LinkStatsToday
	for _, s := range r.stats {
		if s.FullShortUrl == fullShortUrl {
			c := *s
			result = append(result, &c)
		}
	}
	return result
}

// Links returns every stored row of a full short url, deleted ones included.
func (r *MemoryShortLinkRepository) Links(fullShortUrl string) []*cores.ShortLink {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*cores.ShortLink
	for _, l := range r.links {
		if l.FullShortUrl == fullShortUrl {
			result = append(result, copyLink(l))
		}
	}
	return result
}

func copyLink(link *cores.ShortLink) *cores.ShortLink {
	c := *link
	if link.ValidDate != nil {
		d := *link.ValidDate
		c.ValidDate = &d
	}
	return &c
}
