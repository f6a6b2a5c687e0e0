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

package database

import (
	"sort"
	"sync"
	"time"

	"github.com/satellion/satellion/btc/chainclient"
)

func timeUnix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// memDB is the in-memory HeaderDB used by tests and ephemeral runs.
type memDB struct {
	mu      sync.RWMutex
	headers map[uint32]chainclient.IndexedHeader
}

// NewMemDB returns an empty in-memory header store.
func NewMemDB() HeaderDB { return newMemDB() }

func newMemDB() *memDB {
	return &memDB{headers: make(map[uint32]chainclient.IndexedHeader)}
}

func (m *memDB) WriteHeader(header *chainclient.IndexedHeader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[header.Height] = *header
	return nil
}

func (m *memDB) ReadHeader(height uint32) (*chainclient.IndexedHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.headers[height]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *memDB) LastHeader() (*chainclient.IndexedHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		best  chainclient.IndexedHeader
		found bool
	)
	for _, h := range m.headers {
		if !found || h.Height > best.Height {
			best, found = h, true
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return &best, nil
}

func (m *memDB) ReadHeaders(limit int) ([]*chainclient.IndexedHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]chainclient.IndexedHeader, 0, len(m.headers))
	for _, h := range m.headers {
		all = append(all, h)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Height > all[j].Height })
	if limit < len(all) {
		all = all[:limit]
	}
	out := make([]*chainclient.IndexedHeader, len(all))
	for i := range all {
		out[i] = &all[i]
	}
	return out, nil
}

func (m *memDB) PruneAbove(height uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.headers {
		if h > height {
			delete(m.headers, h)
		}
	}
	return nil
}

func (m *memDB) Close() {}
