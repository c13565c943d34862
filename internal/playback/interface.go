package playback

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
)

var (
	ErrAutoplayBlocked = errors.New("autoplay blocked without user gesture")
	ErrNotReady        = errors.New("media metadata not loaded")
)

// Media is the player surface the controller drives while synchronized.
type Media interface {
	// Position returns the playhead in seconds.
	Position() float64

	// Paused reports whether playback is stopped.
	Paused() bool

	// Seek moves the playhead. Returns ErrNotReady before metadata is loaded.
	Seek(position float64) error

	// Play starts playback. Without a user gesture it may fail with ErrAutoplayBlocked.
	Play(userGesture bool) error

	// Pause stops playback.
	Pause()
}

// TimeSource provides the server-side playback offset.
type TimeSource interface {
	FetchStreamingInfo(ctx context.Context, videoID string) (*domain.StreamingInfo, error)
}

// Observer is notified of controller decisions. Calls happen outside the controller lock.
type Observer interface {
	StateChanged(videoID string, from, to domain.PlaybackState)
	DriftCorrected(videoID string, from, to, drift float64)
	PlaybackBlocked(videoID, action string, target float64)
	AutoplayExhausted(videoID string)
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers and reads the clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type realScheduler struct{}

// RealScheduler returns a Scheduler backed by the time package.
func RealScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

type nopObserver struct{}

func (nopObserver) StateChanged(string, domain.PlaybackState, domain.PlaybackState) {}

func (nopObserver) DriftCorrected(string, float64, float64, float64) {}

func (nopObserver) PlaybackBlocked(string, string, float64) {}

func (nopObserver) AutoplayExhausted(string) {}
