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
	"net/url"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Whitelist limits the domains an origin url may point to.
type Whitelist interface {
	Enabled() bool
	AllowedDomains() []string
	DisplayNames() string
}

// WhitelistConfig is a static Whitelist.
type WhitelistConfig struct {
	Enable  bool     `yaml:"enable" json:"enable"`
	Names   string   `yaml:"names" json:"names"`
	Details []string `yaml:"details" json:"details"`
}

func (c *WhitelistConfig) Enabled() bool {
	return c != nil && c.Enable
}

func (c *WhitelistConfig) AllowedDomains() []string {
	return c.Details
}

func (c *WhitelistConfig) DisplayNames() string {
	return c.Names
}

// LoadWhitelist reads a WhitelistConfig from a yaml file.
func LoadWhitelist(path string) (*WhitelistConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}

	var config WhitelistConfig
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse whitelist %s: %w", path, err)
	}

	for i, domain := range config.Details {
		config.Details[i] = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	}

	return &config, nil
}

// ExtractDomain returns the host of rawUrl without port and leading "www.".
func ExtractDomain(rawUrl string) string {
	u, err := url.Parse(strings.TrimSpace(rawUrl))
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// VerifyWhitelist fails with a client error when the whitelist is enabled and the
// origin url domain is malformed or not allowed.
func VerifyWhitelist(wl Whitelist, originUrl string) error {
	if wl == nil || !wl.Enabled() {
		return nil
	}

	domain := ExtractDomain(originUrl)
	if domain == "" {
		return ErrInvalidOriginUrl
	}

	if !slices.Contains(wl.AllowedDomains(), domain) {
		return ErrDomainNotAllowed.WithMessage("to avoid malicious use, only links to these sites can be created: %s", wl.DisplayNames())
	}

	return nil
}
