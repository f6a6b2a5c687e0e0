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

package btc

import (
	"sync"
)

// DerivedScript pairs an output script with the path it was derived from.
type DerivedScript struct {
	Script []byte
	Path   DerivePath
}

// ScriptSet is the set of output scripts the wallet watches during filter
// scanning. The scanner reads it once per filter; the derivation paths write
// when new addresses enter the window.
type ScriptSet struct {
	mu       sync.RWMutex
	byScript map[string]DerivePath
	maxIndex map[Change]uint32
}

func NewScriptSet() *ScriptSet {
	return &ScriptSet{
		byScript: make(map[string]DerivePath),
		maxIndex: make(map[Change]uint32),
	}
}

// Install adds one derived script. Re-installing a script is a no-op.
func (s *ScriptSet) Install(ds DerivedScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byScript[string(ds.Script)] = ds.Path
	if ds.Path.Index > s.maxIndex[ds.Path.Change] {
		s.maxIndex[ds.Path.Change] = ds.Path.Index
	}
}

// Lookup resolves a script back to its derivation path.
func (s *ScriptSet) Lookup(script []byte) (DerivePath, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.byScript[string(script)]
	return path, ok
}

// Scripts returns a snapshot of all watched scripts for filter matching.
func (s *ScriptSet) Scripts() [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, 0, len(s.byScript))
	for script := range s.byScript {
		out = append(out, []byte(script))
	}
	return out
}

// Len is the number of watched scripts.
func (s *ScriptSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byScript)
}

// MaxIndex is the highest derived index on the given chain, used for
// gap-limit window extension.
func (s *ScriptSet) MaxIndex(change Change) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxIndex[change]
}
