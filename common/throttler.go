// Copyright 2026 The satellion Authors
// This file is part of the satellion library.
//
// The satellion library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The satellion library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the satellion library. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"sync"
	"time"
)

// Throttler allows an action at most once per interval. The first call is
// always allowed.
type Throttler struct {
	mu       sync.Mutex
	lastEmit time.Time
	interval time.Duration
}

func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastEmit: time.Now().Add(-interval),
		interval: interval,
	}
}

// ShouldEmit reports whether enough time has passed since the last allowed
// emit, and records the emit when it has.
func (t *Throttler) ShouldEmit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if time.Since(t.lastEmit) >= t.interval {
		t.lastEmit = time.Now()
		return true
	}
	return false
}
