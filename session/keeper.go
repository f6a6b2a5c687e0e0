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

package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/satellion/satellion/crypto/secret"
	"github.com/satellion/satellion/log"
	"github.com/satellion/satellion/wallet"
)

var logger = log.NewModuleLogger(log.Session)

var (
	// ErrNoSession is returned when a privileged operation runs with no
	// unlocked wallet.
	ErrNoSession = errors.New("session: no active session")
	// ErrWrongSession is returned when an operation targets a wallet other
	// than the unlocked one.
	ErrWrongSession = errors.New("session: operation targets a different wallet")
)

// Notifier receives the expiry signal for the host UI.
type Notifier interface {
	SessionExpired()
}

// Keeper owns the process-wide session. Every wallet accessor refreshes the
// activity clock (WalletName and HasSession do not); the monitor goroutine enforces the inactivity timeout.
type Keeper struct {
	mu       sync.Mutex
	session  *Session
	store    *wallet.Store
	notifier Notifier

	monitorOnce sync.Once
	stopCh      chan struct{}
}

func NewKeeper(store *wallet.Store, notifier Notifier) *Keeper {
	return &Keeper{
		store:    store,
		notifier: notifier,
		stopCh:   make(chan struct{}),
	}
}

// Set installs a session, wiping any wallet it replaces.
func (k *Keeper) Set(s *Session) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.session != nil {
		k.session.Wallet.Wipe()
	}
	k.session = s
}

// WithSession runs f over the session, refreshing its activity clock. When
// no session exists the notifier fires and ErrNoSession is returned.
func (k *Keeper) WithSession(f func(*Session) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.session == nil {
		k.fireExpired()
		return ErrNoSession
	}
	k.session.touch()
	return f(k.session)
}

// WithWallet is WithSession scoped to the wallet.
func (k *Keeper) WithWallet(f func(*wallet.Wallet) error) error {
	return k.WithSession(func(s *Session) error { return f(s.Wallet) })
}

// MutateBTC applies f to the Bitcoin chain state and re-encrypts the wallet
// to disk. The mutation happens under the session mutex; the Argon2 and file
// write happen outside it on a plaintext snapshot.
func (k *Keeper) MutateBTC(f func(*wallet.BitcoinData) error) error {
	var (
		name       string
		plaintext  []byte
		passphrase []byte
	)
	err := k.WithWallet(func(w *wallet.Wallet) error {
		if err := f(w.BTC); err != nil {
			return err
		}
		var serr error
		name, plaintext, passphrase, serr = w.Snapshot()
		return serr
	})
	if err != nil {
		return err
	}
	defer secret.Zeroize(plaintext)
	defer secret.Zeroize(passphrase)

	if err := k.store.WriteEncrypted(name, plaintext, passphrase); err != nil {
		return errors.Wrap(err, "wallet persist failed")
	}
	return nil
}

// SoftTerminate locks the session unless autolock is deferred by a running
// initial sync. Reports whether the session was dropped.
func (k *Keeper) SoftTerminate() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.session == nil || !k.session.AutolockEnabled() {
		return false
	}
	k.terminateLocked()
	return true
}

// Terminate drops the session unconditionally, wiping all key material.
func (k *Keeper) Terminate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.terminateLocked()
}

func (k *Keeper) terminateLocked() {
	if k.session == nil {
		return
	}
	k.session.Wallet.Wipe()
	k.session = nil
}

func (k *Keeper) HasSession() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.session != nil
}

// WalletName reports the unlocked wallet's name without touching the clock.
func (k *Keeper) WalletName() (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.session == nil {
		return "", false
	}
	return k.session.Wallet.Name, true
}

// NotifyExpired fires the expiry signal, e.g. when the OS session unlocks
// with no wallet session present.
func (k *Keeper) NotifyExpired() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fireExpired()
}

func (k *Keeper) fireExpired() {
	if k.notifier != nil {
		k.notifier.SessionExpired()
	}
}

// StartMonitor launches the expiry monitor. It runs for the life of the
// process and is only stopped by tests.
func (k *Keeper) StartMonitor(interval time.Duration) {
	k.monitorOnce.Do(func() {
		go k.monitorLoop(interval)
	})
}

// StopMonitor terminates the monitor loop.
func (k *Keeper) StopMonitor() {
	close(k.stopCh)
}

func (k *Keeper) monitorLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-k.stopCh:
			return
		case <-ticker.C:
			k.tick()
		}
	}
}

func (k *Keeper) tick() {
	k.mu.Lock()
	expired := k.session != nil && k.session.Expired()
	if expired {
		k.terminateLocked()
		k.fireExpired()
	}
	k.mu.Unlock()
	if expired {
		logger.Warn("session expired and dropped from memory")
	}
}
