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

package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_ExposeAndWipe(t *testing.T) {
	cell := NewBytes([]byte("super secret"))

	var seen []byte
	err := cell.Expose(func(b *[]byte) error {
		seen = append([]byte(nil), *b...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("super secret"), seen)
	assert.False(t, cell.Wiped())

	cell.Wipe()
	assert.True(t, cell.Wiped())
	assert.ErrorIs(t, cell.Expose(func(*[]byte) error { return nil }), ErrWiped)
}

func TestCell_WipeZeroizesBacking(t *testing.T) {
	backing := []byte{1, 2, 3, 4}
	cell := NewBytes(backing)

	cell.Wipe()
	assert.Equal(t, []byte{0, 0, 0, 0}, backing)
}

func TestCell_WipeIdempotent(t *testing.T) {
	wipes := 0
	v := 7
	cell := NewCell(&v, func(*int) { wipes++ })

	cell.Wipe()
	cell.Wipe()
	assert.Equal(t, 1, wipes)
}

func TestNewString_CopiesIntoMutableBuffer(t *testing.T) {
	cell := NewString("mnemonic words")
	err := cell.Expose(func(b *[]byte) error {
		assert.Equal(t, "mnemonic words", string(*b))
		return nil
	})
	require.NoError(t, err)
	cell.Wipe()
	assert.True(t, cell.Wiped())
}
