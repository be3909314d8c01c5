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

package cores_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogo/vgoto/cores"
)

func TestHttpRedirect(t *testing.T) {
	svc, _ := newTestService(t, cores.WithNotFoundPage("/page/missing"))
	ctx := context.Background()

	created, err := svc.Create(ctx, &cores.CreateRequest{OriginUrl: "https://example.com/http", Gid: "g1"})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://nurl.ink/"+codeOf(created.FullShortUrl), nil)
	r.Header.Set("User-Agent", chromeOnMac)
	w := httptest.NewRecorder()
	svc.HttpHandle(w, r)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/http", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cores.UvCookieName, cookies[0].Name)
	assert.Equal(t, "/"+codeOf(created.FullShortUrl), cookies[0].Path)

	r = httptest.NewRequest(http.MethodGet, "http://nurl.ink/nothere", nil)
	w = httptest.NewRecorder()
	svc.HttpHandle(w, r)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/page/missing", w.Header().Get("Location"))
}

func TestHttpRedirectFlowLimited(t *testing.T) {
	svc, _ := newTestService(t, cores.WithFlowRules(cores.NewFlowRules(10, 0, 1)))

	w := httptest.NewRecorder()
	svc.HttpHandle(w, httptest.NewRequest(http.MethodGet, "http://nurl.ink/a", nil))
	assert.Equal(t, http.StatusFound, w.Code)

	w = httptest.NewRecorder()
	svc.HttpHandle(w, httptest.NewRequest(http.MethodGet, "http://nurl.ink/a", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHttpRoot(t *testing.T) {
	svc, _ := newTestService(t)

	w := httptest.NewRecorder()
	svc.HttpHandle(w, httptest.NewRequest(http.MethodOptions, "http://nurl.ink/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	svc.HttpHandle(w, httptest.NewRequest(http.MethodGet, "http://nurl.ink/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHttpManagementCreate(t *testing.T) {
	svc, _ := newTestService(t, cores.WithAuthToken("secret"))

	body, err := json.Marshal(&cores.CreateRequest{OriginUrl: "https://example.com/managed", Gid: "g1"})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "http://nurl.ink/__create", bytes.NewReader(body))
	w := httptest.NewRecorder()
	svc.HttpHandle(w, r)
	assert.Contains(t, w.Body.String(), "unauthorized")

	r = httptest.NewRequest(http.MethodPost, "http://nurl.ink/__create", bytes.NewReader(body))
	r.Header.Set("Authorization", "secret")
	w = httptest.NewRecorder()
	svc.HttpHandle(w, r)
	assert.Contains(t, w.Body.String(), "https://example.com/managed")
	assert.Contains(t, w.Body.String(), "nurl.ink/")

	counts, err := svc.CountByGroups(context.Background(), []string{"g1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[0].ShortLinkCount)
}

func TestHttpManagementInvalidRequest(t *testing.T) {
	svc, _ := newTestService(t)

	r := httptest.NewRequest(http.MethodPost, "http://nurl.ink/__create", bytes.NewReader([]byte(`{"origin_url":"not a url"}`)))
	w := httptest.NewRecorder()
	svc.HttpHandle(w, r)

	assert.Contains(t, w.Body.String(), "invalid request")
	assert.Empty(t, svc.Sink.Messages())
}

func TestHttpManagementQRCode(t *testing.T) {
	svc, _ := newTestService(t)

	w := httptest.NewRecorder()
	svc.HttpHandle(w, httptest.NewRequest(http.MethodGet, "http://nurl.ink/__qrcode?code=abc", nil))

	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestHttpManagementCount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &cores.CreateRequest{OriginUrl: "https://example.com/count", Gid: "g1"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	svc.HttpHandle(w, httptest.NewRequest(http.MethodGet, "http://nurl.ink/__count?gids=g1,g2", nil))

	assert.Contains(t, w.Body.String(), `"gid":"g1","short_link_count":1`)
	assert.Contains(t, w.Body.String(), `"gid":"g2","short_link_count":0`)
}
