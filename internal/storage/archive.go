package storage

import (
	"context"
	"sync"
	"time"
)

// ArchiveManager feeds message rows to the store off the caller's path.
// Writes are batched to limit transaction churn; Enqueue never blocks.
type ArchiveManager struct {
	writeQ chan archiveWriteRequest
	wg     sync.WaitGroup
	stopCh chan struct{}

	// newest archived timestamp per room
	latestMu sync.RWMutex
	latest   map[string]int64

	writeBatchSize int
	writeFlushFreq time.Duration
}

type archiveWriteRequest struct {
	msg    ArchivedMessage
	result chan error
}

// NewArchiveManager returns a manager with a write queue of the given size.
func NewArchiveManager(writeQSize int) *ArchiveManager {
	return &ArchiveManager{
		writeQ:         make(chan archiveWriteRequest, writeQSize),
		stopCh:         make(chan struct{}),
		latest:         make(map[string]int64),
		writeBatchSize: 50,
		writeFlushFreq: 200 * time.Millisecond,
	}
}

// Start launches the background writer. Call Stop to shut down cleanly.
func (a *ArchiveManager) Start(store *Store) {
	a.wg.Add(1)
	go a.writeWorker(store)
}

// Stop stops the worker after draining the queue.
func (a *ArchiveManager) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}

// Enqueue hands a message to the writer. A full queue fails fast rather than
// stalling the caller.
func (a *ArchiveManager) Enqueue(msg ArchivedMessage) error {
	req := archiveWriteRequest{msg: msg, result: make(chan error, 1)}
	select {
	case a.writeQ <- req:
		return nil
	default:
		return ErrArchiveQueue
	}
}

func (a *ArchiveManager) writeWorker(store *Store) {
	defer a.wg.Done()
	batch := make([]archiveWriteRequest, 0, a.writeBatchSize)
	flushTimer := time.NewTimer(a.writeFlushFreq)
	defer flushTimer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, r := range batch {
			if err := store.SaveArchived(context.Background(), &r.msg); err != nil {
				log.Errorf("archive write failed: %v", err)
				r.result <- err
			} else {
				a.setLatest(r.msg.RoomID, r.msg.At)
				r.result <- nil
			}
			close(r.result)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-a.stopCh:
			// drain queue before exiting
			for {
				select {
				case req := <-a.writeQ:
					batch = append(batch, req)
					if len(batch) >= a.writeBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case req := <-a.writeQ:
			batch = append(batch, req)
			if len(batch) >= a.writeBatchSize {
				flush()
				if !flushTimer.Stop() {
					<-flushTimer.C
				}
				flushTimer.Reset(a.writeFlushFreq)
			}
		case <-flushTimer.C:
			flush()
			flushTimer.Reset(a.writeFlushFreq)
		}
	}
}

func (a *ArchiveManager) setLatest(roomID string, at int64) {
	a.latestMu.Lock()
	defer a.latestMu.Unlock()
	if existing, ok := a.latest[roomID]; !ok || at > existing {
		a.latest[roomID] = at
	}
}

// LatestTime returns the newest archived timestamp for a room, consulting
// the store when the cache is cold.
func (a *ArchiveManager) LatestTime(roomID string, store *Store) (int64, error) {
	a.latestMu.RLock()
	if v, ok := a.latest[roomID]; ok {
		a.latestMu.RUnlock()
		return v, nil
	}
	a.latestMu.RUnlock()

	at, err := store.LatestArchivedTime(context.Background(), roomID)
	if err != nil {
		return 0, err
	}
	a.setLatest(roomID, at)
	return at, nil
}
