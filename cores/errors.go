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
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindClient errors are caused by the caller's input and are shown verbatim.
	KindClient ErrorKind = iota + 1
	// KindService errors are internal conflicts surfaced as a generic failure.
	KindService
)

func (k ErrorKind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// LinkError carries a stable code so wrapped instances still match their sentinel with errors.Is.
type LinkError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

func (e *LinkError) Is(target error) bool {
	t, ok := target.(*LinkError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *LinkError) WithMessage(format string, args ...any) *LinkError {
	return &LinkError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Wrap returns a copy of e with err as its cause.
func (e *LinkError) Wrap(err error) *LinkError {
	return &LinkError{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

func NewClientError(code, message string) *LinkError {
	return &LinkError{Kind: KindClient, Code: code, Message: message}
}

func NewServiceError(code, message string) *LinkError {
	return &LinkError{Kind: KindService, Code: code, Message: message}
}

var (
	ErrInvalidOriginUrl = NewClientError("invalid_origin_url", "origin url is malformed")
	ErrDomainNotAllowed = NewClientError("domain_not_allowed", "origin url domain is not allowed")
	ErrLinkNotFound     = NewClientError("link_not_found", "short link record does not exist")
	ErrInvalidRequest   = NewClientError("invalid_request", "invalid request")
	ErrFlowLimited      = NewClientError("flow_limited", "too many requests, please try again later")

	ErrGenerationExhausted = NewServiceError("generation_exhausted", "short link generated too frequently, please try again later")
	ErrDuplicateLink       = NewServiceError("duplicate_link", "short link generated duplicate")
	ErrLockTimeout         = NewServiceError("lock_timeout", "wait for lock timeout")
)

// ErrUniqueViolation is returned by repositories when an insert breaks a uniqueness constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

func IsClientError(err error) bool {
	var le *LinkError
	return errors.As(err, &le) && le.Kind == KindClient
}

func IsServiceError(err error) bool {
	var le *LinkError
	return errors.As(err, &le) && le.Kind == KindService
}
