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
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestDecode(t *testing.T) {
	str := `{"origin_url":"https://example.com/a","gid":"g1","valid_date_type":1,"valid_date":"2026-08-29T15:58:17+08:00","describe":"demo"}`

	var req CreateRequest
	require.NoError(t, json.Unmarshal([]byte(str), &req))

	assert.Equal(t, ValidDateCustom, req.ValidDateType)
	require.NotNil(t, req.ValidDate)
	assert.Equal(t, 2026, req.ValidDate.Year())
	assert.NoError(t, validate.Struct(&req))
}

func TestCreateRequestValidate(t *testing.T) {
	validDate := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		req   CreateRequest
		valid bool
	}{
		{"permanent", CreateRequest{OriginUrl: "https://example.com", Gid: "g1"}, true},
		{"custom with date", CreateRequest{OriginUrl: "https://example.com", Gid: "g1", ValidDateType: ValidDateCustom, ValidDate: &validDate}, true},
		{"custom without date", CreateRequest{OriginUrl: "https://example.com", Gid: "g1", ValidDateType: ValidDateCustom}, false},
		{"missing gid", CreateRequest{OriginUrl: "https://example.com"}, false},
		{"not a url", CreateRequest{OriginUrl: "example", Gid: "g1"}, false},
		{"unknown created type", CreateRequest{OriginUrl: "https://example.com", Gid: "g1", CreatedType: 7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(&tt.req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestActualIP(t *testing.T) {
	r := httptest.NewRequest("GET", "http://nurl.ink/abc", nil)
	r.RemoteAddr = "172.16.0.9:52000"
	assert.Equal(t, "172.16.0.9", ActualIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ActualIP(r))

	r.Header.Set("Proxy-Client-IP", "unknown")
	assert.Equal(t, "10.0.0.2", ActualIP(r))

	r.Header.Set("X-Forwarded-For", "192.168.3.3, 10.0.0.1")
	assert.Equal(t, "192.168.3.3", ActualIP(r))
}

func TestSplitHostPort(t *testing.T) {
	host, port := splitHostPort("nurl.ink:8001")
	assert.Equal(t, "nurl.ink", host)
	assert.Equal(t, 8001, port)

	host, port = splitHostPort("nurl.ink")
	assert.Equal(t, "nurl.ink", host)
	assert.Zero(t, port)
}
