// Package media provides a headless player: a wall-clock playhead over the
// platform's stream endpoint.
package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/playback"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

// Prober checks that a video's stream endpoint is serving.
type Prober interface {
	ProbeStream(ctx context.Context, videoID string) error
}

// Config configures a virtual player.
type Config struct {
	VideoID string

	// AutoplayBlocked rejects gesture-less Play until the first user gesture.
	AutoplayBlocked bool

	ProbeTimeout time.Duration
	RetryDelay   time.Duration
}

// Virtual is a playback.Media whose playhead advances with the wall clock.
type Virtual struct {
	cfg    Config
	prober Prober
	now    func() time.Time

	mu        sync.Mutex
	ready     bool
	readyCh   chan struct{}
	paused    bool
	activated bool
	base      float64
	startedAt time.Time
}

// NewVirtual creates a paused player that is not yet ready.
func NewVirtual(cfg Config, prober Prober) *Virtual {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Virtual{
		cfg:     cfg,
		prober:  prober,
		now:     time.Now,
		readyCh: make(chan struct{}),
		paused:  true,
	}
}

// Load probes the stream once; on success the player becomes ready.
func (v *Virtual) Load(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, v.cfg.ProbeTimeout)
	defer cancel()

	if err := v.prober.ProbeStream(probeCtx, v.cfg.VideoID); err != nil {
		return fmt.Errorf("failed to load stream metadata: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ready {
		v.ready = true
		close(v.readyCh)
	}
	return nil
}

// LoadUntilReady retries Load until it succeeds or ctx is done.
func (v *Virtual) LoadUntilReady(ctx context.Context) error {
	l := pkglog.Ctx(ctx)

	t := time.NewTimer(v.cfg.RetryDelay)
	defer t.Stop()

	for {
		err := v.Load(ctx)
		if err == nil {
			return nil
		}
		l.Warn().Err(err).Dur("retry_in", v.cfg.RetryDelay).Msg("stream not ready")

		t.Reset(v.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Ready is closed once metadata has loaded.
func (v *Virtual) Ready() <-chan struct{} {
	return v.readyCh
}

func (v *Virtual) Position() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positionLocked()
}

func (v *Virtual) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

func (v *Virtual) Seek(position float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.ready {
		return playback.ErrNotReady
	}
	if position < 0 {
		position = 0
	}
	v.base = position
	v.startedAt = v.now()
	return nil
}

func (v *Virtual) Play(userGesture bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// user activation is sticky for the rest of the session
	if userGesture {
		v.activated = true
	}
	if v.cfg.AutoplayBlocked && !v.activated {
		return playback.ErrAutoplayBlocked
	}
	if !v.ready {
		return playback.ErrNotReady
	}

	if v.paused {
		v.startedAt = v.now()
		v.paused = false
	}
	return nil
}

func (v *Virtual) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.paused {
		return
	}
	v.base = v.positionLocked()
	v.paused = true
}

func (v *Virtual) positionLocked() float64 {
	if v.paused {
		return v.base
	}
	return v.base + v.now().Sub(v.startedAt).Seconds()
}
