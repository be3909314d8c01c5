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

	"github.com/vogo/vogo/vlog"
)

// ConsumeVisit applies one stats message to the link counters and its same-day aggregate row.
// It holds the group update lock so a concurrent move cannot lose the increment.
// Undecodable messages and messages for vanished links are logged and acknowledged.
func (s *ShortLinkService) ConsumeVisit(ctx context.Context, msg *StatsMessage) error {
	record, err := msg.Record()
	if err != nil {
		vlog.Errorf("skip undecodable stats message, url: %s, err: %v", msg.FullShortUrl, err)
		return nil
	}

	fullShortUrl := msg.FullShortUrl

	return s.lockWithin(ctx, fmt.Sprintf(LockGidUpdateKey, fullShortUrl), s.lockWait, func() error {
		// the routing row wins over the message gid, the link may have moved since
		linkGoto, err := s.Repo.FindGoto(ctx, fullShortUrl)
		if err != nil {
			return fmt.Errorf("find short link goto: %w", err)
		}
		if linkGoto == nil {
			vlog.Warnf("skip stats message of missing short link, url: %s", fullShortUrl)
			return nil
		}

		delta := LinkStatsDelta{Pv: 1, Uv: boolToInt(record.UvFirstFlag), Uip: boolToInt(record.UipFirstFlag)}

		today := &LinkStatsToday{
			Gid:          linkGoto.Gid,
			FullShortUrl: fullShortUrl,
			Date:         startOfDay(record.CurrentDate),
			TodayPv:      delta.Pv,
			TodayUv:      delta.Uv,
			TodayUip:     delta.Uip,
		}

		return s.Repo.Transaction(ctx, func(tx ShortLinkRepository) error {
			if err := tx.IncrLinkStats(ctx, LinkFilter{Gid: linkGoto.Gid, FullShortUrl: fullShortUrl}, delta); err != nil {
				return fmt.Errorf("increase short link stats: %w", err)
			}
			if err := tx.UpsertStatsToday(ctx, today); err != nil {
				return fmt.Errorf("save today stats: %w", err)
			}
			return nil
		})
	})
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
