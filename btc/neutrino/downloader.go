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
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/sync/semaphore"
	"gopkg.in/karalabe/cookiejar.v2/collections/queue"

	"github.com/satellion/satellion/btc/chainclient"
)

const (
	downloadTimeout = 30 * time.Second
	maxRetries      = 3
)

var (
	blocksFetchedCounter = metrics.NewRegisteredCounter("neutrino/downloader/fetched", nil)
	fetchRetryCounter    = metrics.NewRegisteredCounter("neutrino/downloader/retries", nil)
	fetchFailedCounter   = metrics.NewRegisteredCounter("neutrino/downloader/failed", nil)
)

// ErrQueueClosed is returned by QueueBlock after the downloader shut down.
var ErrQueueClosed = errors.New("neutrino: block queue closed")

// BlockDownloader fetches full blocks with bounded concurrency behind an
// unbounded input queue. Results are NOT ordered by height.
type BlockDownloader struct {
	requester chainclient.Requester

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	closed  bool
}

func NewBlockDownloader(requester chainclient.Requester) *BlockDownloader {
	d := &BlockDownloader{
		requester: requester,
		pending:   queue.New(),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// QueueBlock enqueues a block hash for download. Never blocks.
func (d *BlockDownloader) QueueBlock(hash chainhash.Hash) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrQueueClosed
	}
	d.pending.Push(hash)
	d.cond.Signal()
	return nil
}

// CloseQueue stops accepting new hashes; the dispatcher drains what is
// already queued and in flight, then closes the result channel.
func (d *BlockDownloader) CloseQueue() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Spawn starts the dispatcher. Up to concurrency downloads run at once; each
// completed block lands on resultCh. resultCh is closed once the queue is
// closed (or the context cancelled) and all in-flight downloads finished.
func (d *BlockDownloader) Spawn(ctx context.Context, concurrency int64, resultCh chan<- *chainclient.IndexedBlock) {
	sem := semaphore.NewWeighted(concurrency)
	var wg sync.WaitGroup

	// Unblock the cond wait when the context dies.
	go func() {
		<-ctx.Done()
		d.CloseQueue()
	}()

	go func() {
		defer func() {
			wg.Wait()
			close(resultCh)
			logger.Info("block downloader shut down")
		}()
		logger.Info("block downloader started", "concurrency", concurrency)

		for {
			hash, ok := d.next()
			if !ok {
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			wg.Add(1)
			go func(hash chainhash.Hash) {
				defer wg.Done()
				defer sem.Release(1)
				if block := d.downloadWithRetry(ctx, hash); block != nil {
					select {
					case resultCh <- block:
					case <-ctx.Done():
					}
				}
			}(hash)
		}
	}()
}

// next blocks until a hash is queued or the queue is closed and empty.
func (d *BlockDownloader) next() (chainhash.Hash, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.pending.Empty() && !d.closed {
		d.cond.Wait()
	}
	if d.pending.Empty() {
		return chainhash.Hash{}, false
	}
	return d.pending.Pop().(chainhash.Hash), true
}

func (d *BlockDownloader) downloadWithRetry(ctx context.Context, hash chainhash.Hash) *chainclient.IndexedBlock {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		block, err := d.attempt(ctx, hash)
		if err == nil {
			blocksFetchedCounter.Inc(1)
			logger.Debug("downloaded block", "hash", hash, "height", block.Height)
			return block
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("block download failed", "hash", hash, "attempt", attempt, "max", maxRetries, "err", err)
		if attempt < maxRetries {
			fetchRetryCounter.Inc(1)
			select {
			case <-time.After(time.Duration(2*attempt) * time.Second):
			case <-ctx.Done():
				return nil
			}
		}
	}
	fetchFailedCounter.Inc(1)
	logger.Error("giving up on block after retries", "hash", hash, "attempts", maxRetries)
	return nil
}

func (d *BlockDownloader) attempt(ctx context.Context, hash chainhash.Hash) (*chainclient.IndexedBlock, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()
	return d.requester.GetBlock(attemptCtx, hash)
}
