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

package neutrino

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satellion/satellion/btc/chainclient"
)

func TestBlockDownloader_FetchesQueuedBlocks(t *testing.T) {
	req := newFakeRequester()
	for h := uint32(1); h <= 5; h++ {
		block, _ := buildBlock(t, h, map[string]int64{"script": 1000})
		req.add(block)
	}

	d := NewBlockDownloader(req)
	resultCh := make(chan *chainclient.IndexedBlock, 16)
	d.Spawn(context.Background(), 2, resultCh)

	for hash := range req.blocks {
		require.NoError(t, d.QueueBlock(hash))
	}
	d.CloseQueue()

	var got []uint32
	for block := range resultCh {
		got = append(got, block.Height)
	}
	assert.Len(t, got, 5)
	assert.ElementsMatch(t, []uint32{1, 2, 3, 4, 5}, got)
}

func TestBlockDownloader_ConcurrencyBounded(t *testing.T) {
	req := newFakeRequester()
	req.delay = 20 * time.Millisecond
	for h := uint32(1); h <= 8; h++ {
		block, _ := buildBlock(t, h, map[string]int64{"s": 1})
		req.add(block)
	}

	d := NewBlockDownloader(req)
	resultCh := make(chan *chainclient.IndexedBlock, 16)
	d.Spawn(context.Background(), 2, resultCh)

	for hash := range req.blocks {
		require.NoError(t, d.QueueBlock(hash))
	}
	d.CloseQueue()

	count := 0
	for range resultCh {
		count++
	}
	assert.Equal(t, 8, count)
	assert.LessOrEqual(t, req.maxConcurrent(), 2)
}

func TestBlockDownloader_RetriesThenSucceeds(t *testing.T) {
	req := newFakeRequester()
	block, _ := buildBlock(t, 7, map[string]int64{"s": 1})
	req.add(block)
	// Two failures are retried; the third attempt succeeds.
	req.failFirst(*block.Block.Hash(), 2)

	d := NewBlockDownloader(req)
	resultCh := make(chan *chainclient.IndexedBlock, 1)
	d.Spawn(context.Background(), 1, resultCh)
	require.NoError(t, d.QueueBlock(*block.Block.Hash()))
	d.CloseQueue()

	select {
	case got := <-resultCh:
		require.NotNil(t, got)
		assert.Equal(t, uint32(7), got.Height)
	case <-time.After(15 * time.Second):
		t.Fatal("block never delivered")
	}
}

func TestBlockDownloader_DropsAfterExhaustedRetries(t *testing.T) {
	req := newFakeRequester()
	block, _ := buildBlock(t, 9, map[string]int64{"s": 1})
	req.add(block)
	req.failFirst(*block.Block.Hash(), maxRetries)

	d := NewBlockDownloader(req)
	resultCh := make(chan *chainclient.IndexedBlock, 1)
	d.Spawn(context.Background(), 1, resultCh)
	require.NoError(t, d.QueueBlock(*block.Block.Hash()))
	d.CloseQueue()

	// The channel closes with no result: the failure is logged and dropped.
	var got []*chainclient.IndexedBlock
	for block := range resultCh {
		got = append(got, block)
	}
	assert.Empty(t, got)
}

func TestBlockDownloader_QueueAfterCloseFails(t *testing.T) {
	req := newFakeRequester()
	d := NewBlockDownloader(req)
	resultCh := make(chan *chainclient.IndexedBlock, 1)
	d.Spawn(context.Background(), 1, resultCh)

	d.CloseQueue()
	block, _ := buildBlock(t, 1, map[string]int64{"s": 1})
	assert.ErrorIs(t, d.QueueBlock(*block.Block.Hash()), ErrQueueClosed)
}

func TestBlockDownloader_ContextCancelStops(t *testing.T) {
	req := newFakeRequester()
	req.delay = 50 * time.Millisecond
	block, _ := buildBlock(t, 3, map[string]int64{"s": 1})
	req.add(block)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewBlockDownloader(req)
	resultCh := make(chan *chainclient.IndexedBlock, 1)
	d.Spawn(ctx, 1, resultCh)
	require.NoError(t, d.QueueBlock(*block.Block.Hash()))
	cancel()

	select {
	case _, open := <-resultCh:
		if open {
			// A block that raced the cancel is fine; the channel must
			// still close afterwards.
			_, open = <-resultCh
			assert.False(t, open)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("downloader did not stop on cancel")
	}
}
