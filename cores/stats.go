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
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"github.com/vogo/vogo/vlog"
	"github.com/vogo/vogo/vsync/vrun"
)

const (
	UvCookieName   = "uv"
	UvCookieMaxAge = 30 * 24 * time.Hour

	defaultStatsQueueSize     = 4096
	defaultStatsFlushInterval = 100 * time.Millisecond
	statsDispatchTimeout      = 3 * time.Second
)

// VisitInput is what the transport knows about a visitor.
type VisitInput struct {
	UvCookie   string
	RemoteAddr string
	UserAgent  string
	// SetUvCookie is called when a new visitor id is minted.
	SetUvCookie func(value, path string, maxAge time.Duration)
}

// VisitRecord is the per-redirect analytics record handed to the sink.
type VisitRecord struct {
	FullShortUrl string    `json:"fullShortUrl"`
	Uv           string    `json:"uv"`
	UvFirstFlag  bool      `json:"uvFirstFlag"`
	UipFirstFlag bool      `json:"uipFirstFlag"`
	RemoteAddr   string    `json:"remoteAddr"`
	Os           string    `json:"os"`
	Browser      string    `json:"browser"`
	Device       string    `json:"device"`
	Network      string    `json:"network"`
	CurrentDate  time.Time `json:"currentDate"`
}

// StatsMessage is the sink payload. Gid is empty when the redirect was served from cache.
type StatsMessage struct {
	FullShortUrl string `json:"fullShortUrl"`
	Gid          string `json:"gid"`
	StatsRecord  string `json:"statsRecord"`
}

func (m *StatsMessage) Record() (*VisitRecord, error) {
	var record VisitRecord
	if err := json.Unmarshal([]byte(m.StatsRecord), &record); err != nil {
		return nil, fmt.Errorf("decode stats record: %w", err)
	}
	return &record, nil
}

// StatsSink delivers stats messages at least once.
type StatsSink interface {
	Send(ctx context.Context, msg *StatsMessage) error
}

type queuedVisit struct {
	record *VisitRecord
	gid    string
}

type StatsOption func(r *StatsRecorder)

func WithStatsQueueSize(size int) StatsOption {
	return func(r *StatsRecorder) {
		if size > 0 {
			r.queueSize = size
		}
	}
}

func WithStatsFlushInterval(interval time.Duration) StatsOption {
	return func(r *StatsRecorder) {
		if interval > 0 {
			r.flushInterval = interval
		}
	}
}

func WithStatsClock(now func() time.Time) StatsOption {
	return func(r *StatsRecorder) {
		r.now = now
	}
}

// StatsRecorder hands visit records to a sink without blocking the caller.
// Records wait in a bounded queue and are drained by a background runner; a full queue drops the record.
type StatsRecorder struct {
	visitors VisitorSet
	sink     StatsSink
	runner   *vrun.Runner
	queue    chan queuedVisit
	now      func() time.Time
	newUv    func() string

	queueSize     int
	flushInterval time.Duration

	// stopMutex orders enqueues before the final flush of Stop.
	stopMutex sync.RWMutex
	stopped   bool

	dropped atomic.Int64
}

func NewStatsRecorder(visitors VisitorSet, sink StatsSink, opts ...StatsOption) *StatsRecorder {
	r := &StatsRecorder{
		visitors:      visitors,
		sink:          sink,
		runner:        vrun.New(),
		now:           time.Now,
		newUv:         uuid.NewString,
		queueSize:     defaultStatsQueueSize,
		flushInterval: defaultStatsFlushInterval,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.queue = make(chan queuedVisit, r.queueSize)
	r.runner.Interval(r.Flush, r.flushInterval)

	return r
}

// Record builds the visit record and enqueues it. It never blocks and never fails.
func (r *StatsRecorder) Record(_ context.Context, fullShortUrl, gid string, visit *VisitInput) {
	record := &VisitRecord{
		FullShortUrl: fullShortUrl,
		Uv:           visit.UvCookie,
		RemoteAddr:   visit.RemoteAddr,
		Network:      NetworkType(visit.RemoteAddr),
		CurrentDate:  r.now(),
	}

	if record.Uv == "" {
		record.Uv = r.newUv()
		// a minted id is a first visit whatever the set says
		record.UvFirstFlag = true
		if visit.SetUvCookie != nil {
			visit.SetUvCookie(record.Uv, UvCookiePath(fullShortUrl), UvCookieMaxAge)
		}
	}

	record.Os, record.Browser, record.Device = ParseUserAgent(visit.UserAgent)

	r.enqueue(record, gid)
}

func (r *StatsRecorder) enqueue(record *VisitRecord, gid string) {
	r.stopMutex.RLock()
	defer r.stopMutex.RUnlock()

	if r.stopped {
		n := r.dropped.Add(1)
		vlog.Warnf("stats recorder stopped, drop visit record, url: %s, dropped: %d", record.FullShortUrl, n)
		return
	}

	select {
	case r.queue <- queuedVisit{record: record, gid: gid}:
	default:
		r.drop(record)
	}
}

func (r *StatsRecorder) drop(record *VisitRecord) {
	n := r.dropped.Add(1)
	vlog.Warnf("stats queue full, drop visit record, url: %s, dropped: %d", record.FullShortUrl, n)
}

// Dropped returns how many records were dropped because the queue was full.
func (r *StatsRecorder) Dropped() int64 {
	return r.dropped.Load()
}

// Flush dispatches every queued record.
func (r *StatsRecorder) Flush() {
	for {
		select {
		case visit := <-r.queue:
			r.dispatch(visit.record, visit.gid)
		default:
			return
		}
	}
}

// Stop stops the runner and dispatches what is left in the queue.
// Records arriving afterwards are dropped.
func (r *StatsRecorder) Stop() {
	r.stopMutex.Lock()
	if r.stopped {
		r.stopMutex.Unlock()
		return
	}
	r.stopped = true
	r.stopMutex.Unlock()

	r.runner.Stop()
	r.Flush()
}

func (r *StatsRecorder) dispatch(record *VisitRecord, gid string) {
	defer func() {
		if p := recover(); p != nil {
			vlog.Errorf("dispatch visit record panic, url: %s, err: %v", record.FullShortUrl, p)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), statsDispatchTimeout)
	defer cancel()

	uvAdded, err := r.visitors.Add(ctx, fmt.Sprintf(StatsUvKey, record.FullShortUrl), record.Uv)
	if err != nil {
		vlog.Errorf("add uv failed, url: %s, err: %v", record.FullShortUrl, err)
	}
	record.UvFirstFlag = record.UvFirstFlag || uvAdded

	if record.RemoteAddr != "" {
		uipAdded, uipErr := r.visitors.Add(ctx, fmt.Sprintf(StatsUipKey, record.FullShortUrl), record.RemoteAddr)
		if uipErr != nil {
			vlog.Errorf("add uip failed, url: %s, err: %v", record.FullShortUrl, uipErr)
		}
		record.UipFirstFlag = uipAdded
	}

	data, err := json.Marshal(record)
	if err != nil {
		vlog.Errorf("encode visit record failed, url: %s, err: %v", record.FullShortUrl, err)
		return
	}

	msg := &StatsMessage{
		FullShortUrl: record.FullShortUrl,
		Gid:          gid,
		StatsRecord:  string(data),
	}

	if err = r.sink.Send(ctx, msg); err != nil {
		vlog.Errorf("send stats message failed, url: %s, err: %v", record.FullShortUrl, err)
	}
}

// UvCookiePath scopes the uv cookie to the path segment of the full short url.
func UvCookiePath(fullShortUrl string) string {
	if i := strings.Index(fullShortUrl, "/"); i >= 0 {
		return fullShortUrl[i:]
	}
	return "/"
}

// NetworkType classifies private addresses as WIFI and everything else as Mobile.
func NetworkType(ip string) string {
	if strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.") {
		return "WIFI"
	}
	return "Mobile"
}

// ParseUserAgent returns os, browser and device class of a user agent string.
func ParseUserAgent(ua string) (os, browser, device string) {
	if ua == "" {
		return "Unknown", "Unknown", "Unknown"
	}

	agent := useragent.New(ua)

	os = normalizeOS(agent.OS())
	browser, _ = agent.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	device = "PC"
	if agent.Mobile() {
		device = "Mobile"
	}

	return os, browser, device
}

func normalizeOS(os string) string {
	lower := strings.ToLower(os)
	switch {
	case strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"), strings.Contains(lower, "ios"):
		return "iOS"
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "mac"):
		return "Mac"
	case strings.Contains(lower, "linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}
