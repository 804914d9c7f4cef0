package game

import (
	"log"
	"sync"
	"time"
)

// Scheduler is the timer collaborator the engine depends on. Callbacks may
// run on any goroutine and must tolerate their subject having vanished.
type Scheduler interface {
	// Every runs fn repeatedly, once per interval.
	Every(interval time.Duration, fn func())
	// At runs fn once, at or after t.
	At(t time.Time, fn func())
	// Now is the scheduler's notion of current time.
	Now() time.Time
}

// TimerScheduler is the wall-clock Scheduler backed by time.Ticker and
// time.AfterFunc. Stop cancels everything still pending.
type TimerScheduler struct {
	mu       sync.Mutex
	timers   map[*time.Timer]struct{}
	stopChan chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewTimerScheduler creates a running scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers:   make(map[*time.Timer]struct{}),
		stopChan: make(chan struct{}),
	}
}

func (s *TimerScheduler) Now() time.Time {
	return time.Now()
}

func (s *TimerScheduler) Every(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(fn)
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *TimerScheduler) At(t time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(time.Until(t), func() {
		s.mu.Lock()
		delete(s.timers, timer)
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			s.run(fn)
		}
	})
	s.timers[timer] = struct{}{}
}

// run shields the scheduler from a panicking callback.
func (s *TimerScheduler) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Timer callback panicked: %v", r)
		}
	}()
	fn()
}

// Stop cancels pending one-shot timers and ends repeating ones.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopChan)
	for timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
	s.mu.Unlock()

	s.wg.Wait()
}

// Pending returns the number of one-shot timers not yet fired.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
