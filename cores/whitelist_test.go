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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("https://www.Example.com/a?b=c"))
	assert.Equal(t, "docs.example.com", ExtractDomain("http://docs.example.com:8080/x"))
	assert.Equal(t, "", ExtractDomain("::bad"))
	assert.Equal(t, "", ExtractDomain("no-scheme"))
}

func TestVerifyWhitelist(t *testing.T) {
	wl := &WhitelistConfig{Enable: true, Names: "example", Details: []string{"example.com"}}

	assert.NoError(t, VerifyWhitelist(wl, "https://example.com/a"))
	assert.NoError(t, VerifyWhitelist(wl, "https://www.example.com/a"))
	assert.ErrorIs(t, VerifyWhitelist(wl, "https://evil.test/a"), ErrDomainNotAllowed)
	assert.ErrorIs(t, VerifyWhitelist(wl, "::bad"), ErrInvalidOriginUrl)

	assert.NoError(t, VerifyWhitelist(nil, "https://evil.test/a"))
	assert.NoError(t, VerifyWhitelist(&WhitelistConfig{Details: []string{"example.com"}}, "https://evil.test/a"))

	var missing *WhitelistConfig
	assert.NoError(t, VerifyWhitelist(missing, "https://evil.test/a"))
}

func TestLoadWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.yaml")
	content := `enable: true
names: "example, docs"
details:
  - Example.com
  - www.docs.example.org
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	wl, err := LoadWhitelist(path)
	require.NoError(t, err)
	assert.True(t, wl.Enabled())
	assert.Equal(t, "example, docs", wl.DisplayNames())
	assert.Equal(t, []string{"example.com", "docs.example.org"}, wl.AllowedDomains())

	_, err = LoadWhitelist(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
