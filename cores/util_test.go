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
	"fmt"
	"math"
	"regexp"
	"testing"
	"time"
)

func TestConvertToBase62(t *testing.T) {
	tests := []struct {
		name     string
		id       int64
		length   int
		expected string
	}{
		{"ID is 0", 0, 1, "0"},
		{"ID is 61", 61, 1, "Z"},
		{"ID is 62", 62, 1, "10"},
		{"Padding", 123, 4, "001Z"},
		{"Max int32", math.MaxInt32, 1, "2lkCB1"},
		{"Max folded hash", math.MaxUint32, 1, "4GFfc3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBase62(tt.id, tt.length)
			if got != tt.expected {
				t.Errorf("ToBase62(%d, %d) = %s, expected %s", tt.id, tt.length, got, tt.expected)
			}
		})
	}
}

func TestReverseString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"a", "a"},
		{"abcdef", "fedcba"},
		{"你好世界", "界世好你"},
	}

	for _, tt := range tests {
		if got := reverseString(tt.input); got != tt.expected {
			t.Errorf("reverseString(%s) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

var shortCodePattern = regexp.MustCompile(`^[0-9a-zA-Z]{1,6}$`)

func TestHashToBase62(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		code := HashToBase62(fmt.Sprintf("https://example.com/%d", i))
		if !shortCodePattern.MatchString(code) {
			t.Fatalf("HashToBase62 produced %q", code)
		}
		seen[code] = true
	}

	if len(seen) < 990 {
		t.Errorf("expected almost no collisions, got %d distinct codes", len(seen))
	}

	if HashToBase62("https://example.com") != HashToBase62("https://example.com") {
		t.Error("HashToBase62 is not deterministic")
	}
}

func TestLinkCacheTTL(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	future := now.Add(90 * time.Minute)
	past := now.Add(-time.Millisecond)

	tests := []struct {
		name     string
		dateType ValidDateType
		date     *time.Time
		expected time.Duration
	}{
		{"permanent", ValidDatePermanent, nil, PermanentTTL},
		{"permanent ignores date", ValidDatePermanent, &past, PermanentTTL},
		{"custom without date", ValidDateCustom, nil, PermanentTTL},
		{"custom future", ValidDateCustom, &future, 90 * time.Minute},
		{"custom past", ValidDateCustom, &past, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinkCacheTTL(tt.dateType, tt.date, now); got != tt.expected {
				t.Errorf("LinkCacheTTL() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestShortLinkIsExpired(t *testing.T) {
	now := time.Now()
	before := now.Add(-time.Millisecond)
	after := now.Add(time.Millisecond)

	if (&ShortLink{}).IsExpired(now) {
		t.Error("link without valid date must not expire")
	}
	if !(&ShortLink{ValidDateType: ValidDateCustom, ValidDate: &before}).IsExpired(now) {
		t.Error("link valid until one millisecond ago must be expired")
	}
	if (&ShortLink{ValidDateType: ValidDateCustom, ValidDate: &after}).IsExpired(now) {
		t.Error("link valid for one more millisecond must not be expired")
	}
}

func TestFullShortUrl(t *testing.T) {
	tests := []struct {
		host     string
		port     int
		code     string
		expected string
	}{
		{"nurl.ink", 0, "abc", "nurl.ink/abc"},
		{"nurl.ink", 80, "abc", "nurl.ink/abc"},
		{"nurl.ink", 8001, "abc", "nurl.ink:8001/abc"},
	}

	for _, tt := range tests {
		if got := FullShortUrl(tt.host, tt.port, tt.code); got != tt.expected {
			t.Errorf("FullShortUrl(%s, %d, %s) = %s, expected %s", tt.host, tt.port, tt.code, got, tt.expected)
		}
	}
}
