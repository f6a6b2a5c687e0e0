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
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsWriteTimeout bounds how long one event write may wait on a subscriber.
const wsWriteTimeout = time.Second

// WSHub fans emitted events out to every connected UI websocket. It is a
// best-effort Sink: a slow or dead subscriber is dropped, never waited on
// for longer than wsWriteTimeout.
type WSHub struct {
	mu       sync.Mutex
	upgrader websocket.Upgrader
	conns    map[*websocket.Conn]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		upgrader: websocket.Upgrader{
			// The UI host connects from its own origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades a UI subscriber connection.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "err", err)
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	logger.Debug("ui subscriber connected", "remote", conn.RemoteAddr())
}

type wsEvent struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Emit implements Sink.
func (h *WSHub) Emit(name string, payload interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(wsEvent{Event: name, Payload: payload}); err != nil {
			logger.Debug("dropping ui subscriber", "remote", conn.RemoteAddr(), "err", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
	return nil
}

// Close drops every subscriber.
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
