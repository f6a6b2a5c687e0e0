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

// Package system surfaces OS session lock/unlock signals. The platform
// notification plumbing itself lives behind the Monitor interface; hosts
// without one run the no-op monitor and rely on the inactivity timeout
// alone.
package system

// LockEvent is an OS-level screen lock transition.
type LockEvent int

const (
	SessionLocked LockEvent = iota
	SessionUnlocked
)

// Monitor is a source of OS session lock transitions.
type Monitor interface {
	// Events delivers lock transitions until Close.
	Events() <-chan LockEvent
	Close()
}

type noopMonitor struct {
	ch chan LockEvent
}

// NewNoopMonitor returns a monitor that never fires.
func NewNoopMonitor() Monitor {
	return &noopMonitor{ch: make(chan LockEvent)}
}

func (m *noopMonitor) Events() <-chan LockEvent { return m.ch }
func (m *noopMonitor) Close()                   { close(m.ch) }

// ChanMonitor is a test- and integration-friendly monitor fed by its owner.
type ChanMonitor struct {
	ch chan LockEvent
}

func NewChanMonitor() *ChanMonitor {
	return &ChanMonitor{ch: make(chan LockEvent, 8)}
}

func (m *ChanMonitor) Events() <-chan LockEvent { return m.ch }
func (m *ChanMonitor) Close()                   { close(m.ch) }

// Fire injects a transition.
func (m *ChanMonitor) Fire(ev LockEvent) { m.ch <- ev }
