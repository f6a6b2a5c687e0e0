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

package api

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/satellion/satellion/common"
	"github.com/satellion/satellion/log"
)

var logger = log.NewModuleLogger(log.API)

// Outbound event names on the host UI channel.
const (
	EventHeightUpdate   = "btc_sync"
	EventSyncProgress   = "btc_sync_progress"
	EventSyncWarning    = "btc_sync_warning"
	EventNewUtxo        = "btc_new_utxo"
	EventSessionExpired = "session-expired"
)

// SyncStatus qualifies a height update.
type SyncStatus string

const (
	StatusProgress  SyncStatus = "in progress"
	StatusCompleted SyncStatus = "completed"
)

type HeightUpdatePayload struct {
	Status SyncStatus `json:"status"`
	Height uint32     `json:"height"`
}

type SyncProgressPayload struct {
	Progress float64 `json:"progress"`
}

type SyncWarningPayload struct {
	Msg string `json:"msg"`
}

type NewUtxoPayload struct {
	Value        int64 `json:"value"`
	TotalBalance int64 `json:"total_balance"`
}

// Sink delivers one typed event to the host UI.
type Sink interface {
	Emit(name string, payload interface{}) error
}

const emitThrottle = time.Second

// Emitter sends fire-and-forget events to the host. Delivery failures are
// logged, never surfaced. In-progress height and progress events are
// throttled; terminal events always go out.
type Emitter struct {
	sink             Sink
	heightThrottler  *common.Throttler
	progressThrottler *common.Throttler
}

func NewEmitter(sink Sink) *Emitter {
	return &Emitter{
		sink:              sink,
		heightThrottler:   common.NewThrottler(emitThrottle),
		progressThrottler: common.NewThrottler(emitThrottle),
	}
}

func (e *Emitter) emit(name string, payload interface{}) {
	if err := e.sink.Emit(name, payload); err != nil {
		logger.Error("event delivery failed", "event", name, "err", err)
	}
}

// HeightUpdated reports the synced height. Progress updates are throttled;
// the completion update is not.
func (e *Emitter) HeightUpdated(height uint32, status SyncStatus) {
	if status == StatusProgress && !e.heightThrottler.ShouldEmit() {
		return
	}
	e.emit(EventHeightUpdate, HeightUpdatePayload{Status: status, Height: height})
}

// HeightProgress and HeightCompleted adapt HeightUpdated to the sync
// engine's emitter interface.
func (e *Emitter) HeightProgress(height uint32) {
	e.HeightUpdated(height, StatusProgress)
}

func (e *Emitter) HeightCompleted(height uint32) {
	e.HeightUpdated(height, StatusCompleted)
}

// SyncProgress reports filter sync completion percent; 100% bypasses the
// throttle.
func (e *Emitter) SyncProgress(pct float64) {
	if pct < 100 && !e.progressThrottler.ShouldEmit() {
		return
	}
	e.emit(EventSyncProgress, SyncProgressPayload{Progress: pct})
}

func (e *Emitter) SyncWarning(msg string) {
	e.emit(EventSyncWarning, SyncWarningPayload{Msg: msg})
}

func (e *Emitter) NewUtxo(value, totalBalance btcutil.Amount) {
	e.emit(EventNewUtxo, NewUtxoPayload{Value: int64(value), TotalBalance: int64(totalBalance)})
}

func (e *Emitter) SessionExpired() {
	e.emit(EventSessionExpired, nil)
}
