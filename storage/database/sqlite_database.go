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
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // driver registration
	"github.com/pkg/errors"

	"github.com/satellion/satellion/btc/chainclient"
)

// headerRow is the bitcoin_block_headers table layout.
type headerRow struct {
	Height        uint32 `gorm:"column:height;primary_key"`
	MerkleRoot    string `gorm:"column:merkle_root"`
	PrevBlockhash string `gorm:"column:prev_blockhash"`
	Time          int64  `gorm:"column:time"`
	Version       int32  `gorm:"column:version"`
	Bits          uint32 `gorm:"column:bits"`
	Nonce         uint32 `gorm:"column:nonce"`
}

func (headerRow) TableName() string { return "bitcoin_block_headers" }

type sqliteDB struct {
	db *gorm.DB
}

func newSQLiteDB(path string) (*sqliteDB, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open header database %s", path)
	}
	if err := db.AutoMigrate(&headerRow{}).Error; err != nil {
		db.Close()
		return nil, errors.Wrap(err, "header table migration failed")
	}
	logger.Info("opened header database", "path", path)
	return &sqliteDB{db: db}, nil
}

func toRow(h *chainclient.IndexedHeader) *headerRow {
	return &headerRow{
		Height:        h.Height,
		MerkleRoot:    h.Header.MerkleRoot.String(),
		PrevBlockhash: h.Header.PrevBlock.String(),
		Time:          h.Header.Timestamp.Unix(),
		Version:       h.Header.Version,
		Bits:          h.Header.Bits,
		Nonce:         h.Header.Nonce,
	}
}

func (r *headerRow) toHeader() (*chainclient.IndexedHeader, error) {
	merkleRoot, err := chainhash.NewHashFromStr(r.MerkleRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "bad merkle root at height %d", r.Height)
	}
	prev, err := chainhash.NewHashFromStr(r.PrevBlockhash)
	if err != nil {
		return nil, errors.Wrapf(err, "bad prev blockhash at height %d", r.Height)
	}
	header := wire.BlockHeader{
		Version:    r.Version,
		PrevBlock:  *prev,
		MerkleRoot: *merkleRoot,
		Bits:       r.Bits,
		Nonce:      r.Nonce,
	}
	header.Timestamp = timeUnix(r.Time)
	return &chainclient.IndexedHeader{Height: r.Height, Header: header}, nil
}

func (s *sqliteDB) WriteHeader(header *chainclient.IndexedHeader) error {
	row := toRow(header)

	var existing headerRow
	err := s.db.Where("height = ?", row.Height).First(&existing).Error
	switch {
	case gorm.IsRecordNotFoundError(err):
		return errors.Wrapf(s.db.Create(row).Error, "cannot insert header %d", row.Height)
	case err != nil:
		return errors.Wrapf(err, "cannot query header %d", row.Height)
	case existing == *row:
		return nil
	default:
		return errors.Wrapf(s.db.Save(row).Error, "cannot overwrite header %d", row.Height)
	}
}

func (s *sqliteDB) ReadHeader(height uint32) (*chainclient.IndexedHeader, error) {
	var row headerRow
	err := s.db.Where("height = ?", height).First(&row).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read header %d", height)
	}
	return row.toHeader()
}

func (s *sqliteDB) LastHeader() (*chainclient.IndexedHeader, error) {
	var row headerRow
	err := s.db.Order("height desc").First(&row).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read last header")
	}
	return row.toHeader()
}

func (s *sqliteDB) ReadHeaders(limit int) ([]*chainclient.IndexedHeader, error) {
	var rows []headerRow
	if err := s.db.Order("height desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "cannot read headers")
	}
	out := make([]*chainclient.IndexedHeader, 0, len(rows))
	for i := range rows {
		h, err := rows[i].toHeader()
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *sqliteDB) PruneAbove(height uint32) error {
	return errors.Wrapf(
		s.db.Where("height > ?", height).Delete(&headerRow{}).Error,
		"cannot prune headers above %d", height)
}

func (s *sqliteDB) Close() {
	if err := s.db.Close(); err != nil {
		logger.Error("header database close failed", "err", err)
	}
}
