package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"cell-arena/internal/metrics"
)

const (
	JournalBufferSize    = 1024
	JournalFlushSize     = 64
	JournalFlushInterval = 100 * time.Millisecond
)

// EventLog is an append-only JSONL journal of every applied mutation, in
// store-version order. Requests are throttled at the transport, so the
// journal never samples: when the buffer is full, Emit waits for the writer.
type EventLog struct {
	events chan Event

	sequence atomic.Uint64
	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	fileMu sync.Mutex
	file   *os.File
	out    *bufio.Writer

	dropped atomic.Uint64
	total   atomic.Uint64
	written atomic.Uint64
}

// NewEventLog creates a stopped journal. Emit is a no-op until Start.
func NewEventLog() *EventLog {
	return &EventLog{
		events:   make(chan Event, JournalBufferSize),
		stopChan: make(chan struct{}),
	}
}

// Start opens filePath for append and launches the writer. An empty path
// keeps the journal in memory only (events are counted, not written).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open journal %s: %w", filePath, err)
		}
		el.file = file
		el.out = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.wg.Add(1)
	go el.writerLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		if !el.running.Swap(false) {
			return
		}
		close(el.stopChan)
		el.wg.Wait()

		el.fileMu.Lock()
		defer el.fileMu.Unlock()
		if el.out != nil {
			el.out.Flush()
		}
		if el.file != nil {
			el.file.Close()
		}
	})
}

// Emit queues an event, blocking while the buffer is full. Returns false
// only when the journal is not running.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	event.Sequence = el.sequence.Add(1)
	select {
	case el.events <- event:
		el.total.Add(1)
		metrics.RecordJournal(true)
		return true
	case <-el.stopChan:
		el.dropped.Add(1)
		metrics.RecordJournal(false)
		return false
	}
}

// Record builds and emits an event in one call.
func (el *EventLog) Record(eventType EventType, identity Identity, storeVersion uint64, payload interface{}) bool {
	event := NewEvent(eventType, identity, payload)
	event.StoreVer = storeVersion
	return el.Emit(event)
}

func (el *EventLog) writerLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(JournalFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, JournalFlushSize)
	for {
		select {
		case event := <-el.events:
			batch = append(batch, event)
			if len(batch) >= JournalFlushSize {
				el.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				el.flush(batch)
				batch = batch[:0]
			}
		case <-el.stopChan:
			for {
				select {
				case event := <-el.events:
					batch = append(batch, event)
				default:
					el.flush(batch)
					return
				}
			}
		}
	}
}

func (el *EventLog) flush(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.out == nil {
		el.written.Add(uint64(len(batch)))
		return
	}
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.out.Write(data)
		el.out.WriteByte('\n')
		el.written.Add(1)
	}
	el.out.Flush()
}

// GetStats returns journal counters for monitoring.
func (el *EventLog) GetStats() map[string]interface{} {
	total := el.total.Load()
	written := el.written.Load()
	return map[string]interface{}{
		"total":   total,
		"dropped": el.dropped.Load(),
		"pending": total - written,
		"running": el.running.Load(),
	}
}

// Written returns how many events reached the writer.
func (el *EventLog) Written() uint64 {
	return el.written.Load()
}

// Dropped returns how many events arrived while the journal was stopping.
func (el *EventLog) Dropped() uint64 {
	return el.dropped.Load()
}
