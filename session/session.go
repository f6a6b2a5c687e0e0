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

// Package session guards the single unlocked wallet of the process: at most
// one Session exists, privileged access refreshes its activity clock, and a
// monitor locks it after inactivity.
package session

import (
	"time"

	"github.com/satellion/satellion/wallet"
)

// Session is one unlocked wallet plus its inactivity accounting.
type Session struct {
	Wallet            *wallet.Wallet
	ActivatedAt       time.Time
	InactivityTimeout time.Duration
}

// DefaultInactivityTimeout matches the configured session lifetime.
const DefaultInactivityTimeout = 10 * time.Minute

func New(w *wallet.Wallet) *Session {
	return &Session{
		Wallet:            w,
		ActivatedAt:       time.Now(),
		InactivityTimeout: DefaultInactivityTimeout,
	}
}

func (s *Session) WithInactivityTimeout(d time.Duration) *Session {
	s.InactivityTimeout = d
	return s
}

// AutolockEnabled reports whether the session may be locked automatically.
// While the initial Bitcoin sync is still discovering UTXOs, locking would
// drop them before they are encrypted to disk, so autolock is deferred.
func (s *Session) AutolockEnabled() bool {
	return s.Wallet.BTC.InitialSyncDone
}

// Expired reports whether the inactivity window has elapsed. A session with
// autolock deferred never expires.
func (s *Session) Expired() bool {
	if !s.AutolockEnabled() {
		return false
	}
	return s.ActivatedAt.Add(s.InactivityTimeout).Before(time.Now())
}

func (s *Session) touch() {
	s.ActivatedAt = time.Now()
}
