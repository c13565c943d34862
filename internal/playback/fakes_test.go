package playback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
)

// fakeScheduler runs timers only when the test advances the clock.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, at: s.now.Add(d), seq: s.seq, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in order.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	deadline := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*fakeTimer
		for _, t := range s.timers {
			if !t.stopped && !t.fired && !t.at.After(deadline) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = deadline
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of armed timers.
func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeMedia struct {
	mu             sync.Mutex
	position       float64
	paused         bool
	rejectAutoplay int // number of gesture-less plays to reject
	seeks          []float64
	plays          []bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{paused: true}
}

func (m *fakeMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *fakeMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *fakeMedia) Seek(position float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, position)
	m.position = position
	return nil
}

func (m *fakeMedia) Play(userGesture bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays = append(m.plays, userGesture)
	if !userGesture && m.rejectAutoplay > 0 {
		m.rejectAutoplay--
		return ErrAutoplayBlocked
	}
	m.paused = false
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *fakeMedia) set(position float64, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = position
	m.paused = paused
}

func (m *fakeMedia) seekCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seeks...)
}

func (m *fakeMedia) playCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.plays...)
}

func (m *fakeMedia) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = nil
	m.plays = nil
}

type fakeSource struct {
	mu    sync.Mutex
	info  *domain.StreamingInfo
	err   error
	calls int
	gate  chan struct{} // when set, fetches block until closed
}

func (s *fakeSource) FetchStreamingInfo(ctx context.Context, videoID string) (*domain.StreamingInfo, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	info := *s.info
	return &info, nil
}

func (s *fakeSource) set(info domain.StreamingInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = &info
	s.err = err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errFetch = errors.New("connection refused")

type recordingObserver struct {
	mu          sync.Mutex
	transitions []string
	corrections int
	blocked     []string
	exhausted   int
}

func (o *recordingObserver) StateChanged(videoID string, from, to domain.PlaybackState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, string(from)+"->"+string(to))
}

func (o *recordingObserver) DriftCorrected(videoID string, from, to, drift float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corrections++
}

func (o *recordingObserver) PlaybackBlocked(videoID, action string, target float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.blocked = append(o.blocked, action)
}

func (o *recordingObserver) AutoplayExhausted(videoID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exhausted++
}
