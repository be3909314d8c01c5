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
	"time"

	"github.com/vogo/vgoto/cores"
)

var (
	linkTableName       = "t_link"
	gotoTableName       = "t_link_goto"
	statsTodayTableName = "t_link_stats_today"
)

func SetLinkTableName(name string) {
	linkTableName = name
}

func SetGotoTableName(name string) {
	gotoTableName = name
}

func SetStatsTodayTableName(name string) {
	statsTodayTableName = name
}

// LinkModel is the GORM model for short links.
// A deleted row keeps its url and is told apart by del_time, so the url can be reused.
type LinkModel struct {
	ID            int64               `json:"id" gorm:"primaryKey;autoIncrement" comment:"ID"`
	Domain        string              `json:"domain" gorm:"size:128" comment:"domain"`
	ShortUri      string              `json:"short_uri" gorm:"size:8" comment:"short code"`
	FullShortUrl  string              `json:"full_short_url" gorm:"size:128;uniqueIndex:idx_unique_full_short_url,priority:1" comment:"full short url"`
	OriginUrl     string              `json:"origin_url" gorm:"size:1024" comment:"origin url"`
	Gid           string              `json:"gid" gorm:"size:32;index:idx_gid" comment:"group id"`
	Favicon       string              `json:"favicon" gorm:"size:256" comment:"favicon"`
	EnableStatus  int                 `json:"enable_status" gorm:"type:tinyint" comment:"0 enabled 1 disabled"`
	CreatedType   cores.CreatedType   `json:"created_type" gorm:"type:tinyint" comment:"0 api 1 console"`
	ValidDateType cores.ValidDateType `json:"valid_date_type" gorm:"type:tinyint" comment:"0 permanent 1 custom"`
	ValidDate     *time.Time          `json:"valid_date" comment:"valid date"`
	Describe      string              `json:"describe" gorm:"column:describe;size:1024" comment:"describe"`
	TotalPv       int64               `json:"total_pv" comment:"total pv"`
	TotalUv       int64               `json:"total_uv" comment:"total uv"`
	TotalUip      int64               `json:"total_uip" comment:"total uip"`
	DelFlag       int                 `json:"del_flag" gorm:"type:tinyint" comment:"0 live 1 deleted"`
	DelTime       int64               `json:"del_time" gorm:"uniqueIndex:idx_unique_full_short_url,priority:2" comment:"delete timestamp in milliseconds"`
	CreateTime    time.Time           `json:"create_time" gorm:"column:create_time" comment:"create time"`
	UpdateTime    time.Time           `json:"update_time" gorm:"column:update_time" comment:"update time"`
}

func (LinkModel) TableName() string {
	return linkTableName
}

// GotoModel routes a full short url to its group.
type GotoModel struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement" comment:"ID"`
	Gid          string `json:"gid" gorm:"size:32" comment:"group id"`
	FullShortUrl string `json:"full_short_url" gorm:"size:128;uniqueIndex:idx_unique_goto_full_short_url" comment:"full short url"`
}

func (GotoModel) TableName() string {
	return gotoTableName
}

// StatsTodayModel aggregates visits of one link per day.
type StatsTodayModel struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement" comment:"ID"`
	Gid          string    `json:"gid" gorm:"size:32;uniqueIndex:idx_unique_today_stats,priority:2" comment:"group id"`
	FullShortUrl string    `json:"full_short_url" gorm:"size:128;uniqueIndex:idx_unique_today_stats,priority:1" comment:"full short url"`
	Date         time.Time `json:"date" gorm:"type:date;uniqueIndex:idx_unique_today_stats,priority:3" comment:"date"`
	TodayPv      int64     `json:"today_pv" comment:"today pv"`
	TodayUv      int64     `json:"today_uv" comment:"today uv"`
	TodayUip     int64     `json:"today_uip" comment:"today uip"`
	CreateTime   time.Time `json:"create_time" gorm:"column:create_time" comment:"create time"`
	UpdateTime   time.Time `json:"update_time" gorm:"column:update_time" comment:"update time"`
}

func (StatsTodayModel) TableName() string {
	return statsTodayTableName
}

// ToCore converts a LinkModel to a cores.ShortLink
func (m *LinkModel) ToCore() *cores.ShortLink {
	return &cores.ShortLink{
		ID:            m.ID,
		Domain:        m.Domain,
		ShortUri:      m.ShortUri,
		FullShortUrl:  m.FullShortUrl,
		OriginUrl:     m.OriginUrl,
		Gid:           m.Gid,
		CreatedType:   m.CreatedType,
		ValidDateType: m.ValidDateType,
		ValidDate:     m.ValidDate,
		Describe:      m.Describe,
		EnableStatus:  m.EnableStatus,
		DelFlag:       m.DelFlag,
		DelTime:       m.DelTime,
		Favicon:       m.Favicon,
		TotalPv:       m.TotalPv,
		TotalUv:       m.TotalUv,
		TotalUip:      m.TotalUip,
		CreateTime:    m.CreateTime,
		UpdateTime:    m.UpdateTime,
	}
}

// FromCore converts a cores.ShortLink to a LinkModel
func FromCore(link *cores.ShortLink) *LinkModel {
	return &LinkModel{
		ID:            link.ID,
		Domain:        link.Domain,
		ShortUri:      link.ShortUri,
		FullShortUrl:  link.FullShortUrl,
		OriginUrl:     link.OriginUrl,
		Gid:           link.Gid,
		Favicon:       link.Favicon,
		EnableStatus:  link.EnableStatus,
		CreatedType:   link.CreatedType,
		ValidDateType: link.ValidDateType,
		ValidDate:     link.ValidDate,
		Describe:      link.Describe,
		TotalPv:       link.TotalPv,
		TotalUv:       link.TotalUv,
		TotalUip:      link.TotalUip,
		DelFlag:       link.DelFlag,
		DelTime:       link.DelTime,
		CreateTime:    link.CreateTime,
		UpdateTime:    link.UpdateTime,
	}
}
