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
	"math"
	"strconv"
	"time"
)

// ValidDateType is the expiry policy of a short link.
type ValidDateType int

const (
	ValidDatePermanent ValidDateType = 0 // never expires
	ValidDateCustom    ValidDateType = 1 // expires at ValidDate
)

type CreatedType int

const (
	CreatedByAPI     CreatedType = 0
	CreatedByConsole CreatedType = 1
)

const (
	EnableStatusEnabled  = 0
	EnableStatusDisabled = 1

	DelFlagLive    = 0
	DelFlagDeleted = 1
)

// PermanentTTL is the cache TTL of links that never expire.
const PermanentTTL = time.Duration(math.MaxInt64)

type ShortLink struct {
	ID            int64         `json:"id" comment:"ID"`
	Domain        string        `json:"domain" comment:"short link domain"`
	ShortUri      string        `json:"short_uri" comment:"short code"`
	FullShortUrl  string        `json:"full_short_url" comment:"domain/short code"`
	OriginUrl     string        `json:"origin_url" comment:"original link"`
	Gid           string        `json:"gid" comment:"group id"`
	CreatedType   CreatedType   `json:"created_type" comment:"created type"`
	ValidDateType ValidDateType `json:"valid_date_type" comment:"expiry policy"`
	ValidDate     *time.Time    `json:"valid_date,omitempty" comment:"expire time"`
	Describe      string        `json:"describe" comment:"description"`
	EnableStatus  int           `json:"enable_status" comment:"0 enabled, 1 disabled"`
	DelFlag       int           `json:"del_flag" comment:"0 live, 1 deleted"`
	DelTime       int64         `json:"del_time" comment:"delete timestamp in millis"`
	Favicon       string        `json:"favicon,omitempty" comment:"favicon"`
	TotalPv       int64         `json:"total_pv" comment:"page views"`
	TotalUv       int64         `json:"total_uv" comment:"unique visitors"`
	TotalUip      int64         `json:"total_uip" comment:"unique ips"`
	CreateTime    time.Time     `json:"create_time" comment:"create time"`
	UpdateTime    time.Time     `json:"update_time" comment:"update time"`
}

func (l *ShortLink) IsLive() bool {
	return l.DelFlag == DelFlagLive && l.EnableStatus == EnableStatusEnabled
}

// IsExpired reports whether the expiry has been reached. A link expiring exactly now is expired.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ValidDate != nil && !l.ValidDate.After(now)
}

// CacheTTL returns how long the link may stay in the positive cache.
func (l *ShortLink) CacheTTL(now time.Time) time.Duration {
	return LinkCacheTTL(l.ValidDateType, l.ValidDate, now)
}

// LinkCacheTTL is PermanentTTL for permanent links (or links without a date),
// otherwise the time left until expiry clamped at zero.
func LinkCacheTTL(validDateType ValidDateType, validDate *time.Time, now time.Time) time.Duration {
	if validDateType == ValidDatePermanent || validDate == nil {
		return PermanentTTL
	}

	ttl := validDate.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// ShortLinkGoto routes a full short URL to the group that owns it.
type ShortLinkGoto struct {
	ID           int64  `json:"id"`
	Gid          string `json:"gid"`
	FullShortUrl string `json:"full_short_url"`
}

// LinkStatsToday is the same-day aggregate of one link in one group.
type LinkStatsToday struct {
	ID           int64     `json:"id"`
	Gid          string    `json:"gid"`
	FullShortUrl string    `json:"full_short_url"`
	Date         time.Time `json:"date"`
	TodayPv      int64     `json:"today_pv"`
	TodayUv      int64     `json:"today_uv"`
	TodayUip     int64     `json:"today_uip"`
}

// FullShortUrl joins host, optional port and code. Port 80 and 0 are omitted.
func FullShortUrl(host string, port int, code string) string {
	if port != 0 && port != 80 {
		return host + ":" + strconv.Itoa(port) + "/" + code
	}
	return host + "/" + code
}
