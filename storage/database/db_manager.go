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

// Package database persists synced Bitcoin block headers. The production
// backend is a single SQLite file; an in-memory backend backs tests.
package database

import (
	"github.com/pkg/errors"

	"github.com/satellion/satellion/btc/chainclient"
	"github.com/satellion/satellion/log"
)

var logger = log.NewModuleLogger(log.StorageDatabase)

// ErrNotFound is returned when no header exists at the requested height.
var ErrNotFound = errors.New("database: header not found")

// HeaderDB stores indexed block headers keyed by height.
//
// WriteHeader is idempotent per height: re-writing identical bytes is a
// no-op, differing bytes overwrite the row (reorg support).
type HeaderDB interface {
	WriteHeader(header *chainclient.IndexedHeader) error
	// ReadHeader returns the header at the given height or ErrNotFound.
	ReadHeader(height uint32) (*chainclient.IndexedHeader, error)
	// LastHeader returns the highest stored header or ErrNotFound when the
	// store is empty.
	LastHeader() (*chainclient.IndexedHeader, error)
	// ReadHeaders returns up to limit most recent headers, descending.
	ReadHeaders(limit int) ([]*chainclient.IndexedHeader, error)
	// PruneAbove deletes every header strictly above the given height, so
	// a reorg never leaves orphan rows visible via LastHeader.
	PruneAbove(height uint32) error
	Close()
}

// DBType selects a HeaderDB backend.
type DBType string

const (
	SQLiteDB DBType = "sqlite"
	MemoryDB DBType = "memory"
)

// DBConfig carries backend selection and location.
type DBConfig struct {
	Type DBType
	// Path is the SQLite file location; unused by the memory backend.
	Path string
}

// NewHeaderDB opens the configured backend.
func NewHeaderDB(cfg *DBConfig) (HeaderDB, error) {
	switch cfg.Type {
	case SQLiteDB:
		return newSQLiteDB(cfg.Path)
	case MemoryDB:
		return newMemDB(), nil
	default:
		return nil, errors.Errorf("unknown header db type %q", cfg.Type)
	}
}
