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

package memx

import (
	"context"
	"sync"
)

// MemoryVisitorSet implements cores.VisitorSet with in-memory sets.
type MemoryVisitorSet struct {
	mutex sync.Mutex
	sets  map[string]map[string]struct{}
}

func NewMemoryVisitorSet() *MemoryVisitorSet {
	return &MemoryVisitorSet{sets: make(map[string]map[string]struct{})}
}

func (s *MemoryVisitorSet) Add(_ context.Context, key, member string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	set, exists := s.sets[key]
	if !exists {
		set = make(map[string]struct{})
		s.sets[key] = set
	}

	if _, exists = set[member]; exists {
		return false, nil
	}
	set[member] = struct{}{}
	return true, nil
}
