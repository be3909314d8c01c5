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
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/vogo/vgoto/cores"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	duplicate := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'nurl.ink/a-0' for key 'idx_unique_full_short_url'"}

	assert.ErrorIs(t, translateError(duplicate), cores.ErrUniqueViolation)
	assert.ErrorIs(t, translateError(fmt.Errorf("insert: %w", duplicate)), cores.ErrUniqueViolation)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), cores.ErrUniqueViolation)

	other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	assert.NotErrorIs(t, translateError(other), cores.ErrUniqueViolation)
	assert.Nil(t, translateError(nil))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, translateError(plain))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "t_link", LinkModel{}.TableName())
	assert.Equal(t, "t_link_goto", GotoModel{}.TableName())
	assert.Equal(t, "t_link_stats_today", StatsTodayModel{}.TableName())
}
