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
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"
	"github.com/vogo/vogo/vencoding/vjson"
	"github.com/vogo/vogo/vlog"
	"github.com/vogo/vogo/vnet/vhttp/vhttpquery"
	"github.com/vogo/vogo/vnet/vhttp/vhttpresp"
)

const (
	ManagementCodePrefix = "__"

	qrcodeSize = 256
)

var validate = validator.New()

func (s *ShortLinkService) HttpHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	code := r.URL.Path[1:]
	if code == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if strings.HasPrefix(code, ManagementCodePrefix) {
		s.HttpHandleManagement(w, r, code[len(ManagementCodePrefix):])
		return
	}

	s.httpHandleRedirect(w, r, code)
}

func (s *ShortLinkService) httpHandleRedirect(w http.ResponseWriter, r *http.Request, code string) {
	if err := s.flow.AllowRedirect(); err != nil {
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	host, port := splitHostPort(r.Host)

	target, err := s.Resolve(r.Context(), &ResolveRequest{
		Host:  host,
		Port:  port,
		Path:  code,
		Visit: visitInput(w, r),
	})
	if err != nil {
		vlog.Errorf("resolve short link failed, host: %s, code: %s, err: %v", r.Host, code, err)
		status := http.StatusInternalServerError
		if errors.Is(err, ErrLockTimeout) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	if !target.Found {
		http.Redirect(w, r, s.notFoundPage, http.StatusFound)
		return
	}

	http.Redirect(w, r, target.OriginUrl, http.StatusFound)
}

func (s *ShortLinkService) HttpHandleManagement(w http.ResponseWriter, r *http.Request, managementOp string) {
	token := r.Header.Get("Authorization")
	if s.authToken != "" && token != s.authToken {
		vhttpresp.BadMsg(w, r, "unauthorized")
		return
	}

	switch managementOp {
	case "create":
		s.httpHandleCreate(w, r, s.Create)
	case "create-serialized":
		s.httpHandleCreate(w, r, s.CreateSerialized)
	case "batch-create":
		s.httpHandleBatchCreate(w, r)
	case "update":
		s.httpHandleUpdate(w, r)
	case "page":
		s.httpHandlePage(w, r)
	case "count":
		s.httpHandleCount(w, r)
	case "qrcode":
		s.httpHandleQRCode(w, r)
	default:
		vhttpresp.BadMsg(w, r, "invalid op")
		return
	}
}

type createFunc func(ctx context.Context, req *CreateRequest) (*CreateResult, error)

func (s *ShortLinkService) httpHandleCreate(w http.ResponseWriter, r *http.Request, create createFunc) {
	var req CreateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := s.flow.AllowCreate(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vlog.Infof("create short link, url: %s, origin: %s, gid: %s", result.FullShortUrl, result.OriginUrl, result.Gid)

	vhttpresp.Success(w, r, result)
}

func (s *ShortLinkService) httpHandleBatchCreate(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := s.flow.AllowCreate(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	result := s.BatchCreate(r.Context(), &req)

	vlog.Infof("batch create short links, gid: %s, requested: %d, created: %d", req.Gid, len(req.OriginUrls), result.Total)

	vhttpresp.Success(w, r, result)
}

func (s *ShortLinkService) httpHandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := s.Update(r.Context(), &req); err != nil {
		writeError(w, r, err)
		return
	}

	vlog.Infof("update short link, url: %s, gid: %s -> %s, origin: %s", req.FullShortUrl, req.OriginGid, req.Gid, req.OriginUrl)

	vhttpresp.Success(w, r, nil)
}

func (s *ShortLinkService) httpHandlePage(w http.ResponseWriter, r *http.Request) {
	gid, ok := vhttpquery.String(r, "gid")
	if !ok || gid == "" {
		vhttpresp.BadMsg(w, r, "gid is empty")
		return
	}

	current, _ := vhttpquery.Int(r, "current")
	size, _ := vhttpquery.Int(r, "size")

	page, err := s.PageLinks(r.Context(), gid, current, size)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vhttpresp.Success(w, r, page)
}

func (s *ShortLinkService) httpHandleCount(w http.ResponseWriter, r *http.Request) {
	gids, ok := vhttpquery.String(r, "gids")
	if !ok || gids == "" {
		vhttpresp.BadMsg(w, r, "gids is empty")
		return
	}

	counts, err := s.CountByGroups(r.Context(), strings.Split(gids, ","))
	if err != nil {
		writeError(w, r, err)
		return
	}

	vhttpresp.Success(w, r, counts)
}

func (s *ShortLinkService) httpHandleQRCode(w http.ResponseWriter, r *http.Request) {
	code, ok := vhttpquery.String(r, "code")
	if !ok || code == "" {
		vhttpresp.BadMsg(w, r, "code is empty")
		return
	}

	png, err := qrcode.Encode("http://"+s.generator.FullShortUrl(code), qrcode.Medium, qrcodeSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "inline; filename=qrcode.png")
	_, _ = w.Write(png)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := vjson.UnmarshalStream(r.Body, req); err != nil {
		vhttpresp.BadError(w, r, err)
		return false
	}

	if err := validate.Struct(req); err != nil {
		vhttpresp.BadMsg(w, r, ErrInvalidRequest.Message+": "+err.Error())
		return false
	}

	return true
}

// writeError shows client and service errors by message and hides everything else.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var le *LinkError
	if errors.As(err, &le) {
		vhttpresp.BadMsg(w, r, le.Message)
		return
	}

	vlog.Errorf("handle request failed, path: %s, err: %v", r.URL.Path, err)
	vhttpresp.BadMsg(w, r, "internal error")
}

func visitInput(w http.ResponseWriter, r *http.Request) *VisitInput {
	visit := &VisitInput{
		RemoteAddr: ActualIP(r),
		UserAgent:  r.UserAgent(),
		SetUvCookie: func(value, path string, maxAge time.Duration) {
			http.SetCookie(w, &http.Cookie{
				Name:   UvCookieName,
				Value:  value,
				Path:   path,
				MaxAge: int(maxAge.Seconds()),
			})
		},
	}

	if cookie, err := r.Cookie(UvCookieName); err == nil {
		visit.UvCookie = cookie.Value
	}

	return visit
}

// ActualIP returns the client ip, preferring proxy headers over the peer address.
func ActualIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "Proxy-Client-IP", "WL-Proxy-Client-IP", "X-Real-IP"} {
		value := r.Header.Get(header)
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}
		ip, _, _ := strings.Cut(value, ",")
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func splitHostPort(hostport string) (string, int) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 0
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
