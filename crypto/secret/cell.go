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

// Package secret provides zeroizing containers for in-memory key material.
// Go has no deterministic destructors, so owners must call Wipe on every
// teardown path; the session keeper does this when a session terminates.
package secret

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrWiped is returned when a cell's secret has already been erased.
var ErrWiped = errors.New("secret: cell has been wiped")

// Cell holds one secret of type T together with the routine that erases it.
// The secret is only reachable through Expose, which scopes the borrow to a
// closure so no caller can retain a reference past the cell's lifetime.
type Cell[T any] struct {
	mu    sync.Mutex
	value *T
	wipe  func(*T)
}

// NewCell wraps value with its wipe routine. The cell takes ownership; the
// caller must not keep its own reference to value.
func NewCell[T any](value *T, wipe func(*T)) *Cell[T] {
	return &Cell[T]{value: value, wipe: wipe}
}

// Expose runs f over the secret. The pointer must not escape f.
func (c *Cell[T]) Expose(f func(*T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil {
		return ErrWiped
	}
	return f(c.value)
}

// Wipe erases the secret and marks the cell dead. Idempotent.
func (c *Cell[T]) Wipe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil {
		return
	}
	if c.wipe != nil {
		c.wipe(c.value)
	}
	c.value = nil
}

// Wiped reports whether the secret has been erased.
func (c *Cell[T]) Wiped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value == nil
}

// Zeroize overwrites a byte slice in place.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// NewBytes wraps a byte slice in a cell that zeroizes it on wipe.
func NewBytes(b []byte) *Cell[[]byte] {
	return NewCell(&b, func(p *[]byte) {
		Zeroize(*p)
		*p = nil
	})
}

// NewString wraps a string in a cell. The string's backing array cannot be
// overwritten without unsafe tricks, so the constructor copies the secret
// into a mutable buffer, which the wipe zeroes, and drops the immutable
// original.
func NewString(s string) *Cell[[]byte] {
	buf := []byte(s)
	return NewBytes(buf)
}
