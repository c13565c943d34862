package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/drift"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

// Config holds controller timing and tolerance settings.
type Config struct {
	VideoID            string
	CorrectionInterval time.Duration
	DriftThreshold     float64
	SeekTolerance      float64
	AutoplayAttempts   int
	AutoplayRetryDelay time.Duration
}

// DefaultConfig returns the documented playback policy for a video.
func DefaultConfig(videoID string) Config {
	return Config{
		VideoID:            videoID,
		CorrectionInterval: 10 * time.Second,
		DriftThreshold:     drift.DefaultThreshold,
		SeekTolerance:      10,
		AutoplayAttempts:   3,
		AutoplayRetryDelay: 500 * time.Millisecond,
	}
}

// Controller keeps a Media aligned to server time for one scheduled video.
// Every event is serialized by a single mutex; timer callbacks and network
// completions re-enter through the same methods.
type Controller struct {
	cfg       Config
	media     Media
	source    TimeSource
	corrector *drift.Corrector
	sched     Scheduler
	observer  Observer
	logger    zerolog.Logger

	mu             sync.Mutex
	ctx            context.Context
	cancel         context.CancelFunc
	state          domain.PlaybackState
	session        *domain.PlaybackSession
	info           *domain.StreamingInfo
	fetchedAt      time.Time
	mediaReady     bool
	gestureGated   bool
	autoplayTry    int
	autoplayGen    int
	autoplayTimer  Timer
	tickTimer      Timer
	lastCorrection *time.Time

	// notifications queued under the lock, delivered by unlock
	pending []func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithObserver registers an observer for state changes and corrections.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// NewController creates a controller in the UNINITIALIZED state.
func NewController(cfg Config, media Media, source TimeSource, opts ...Option) *Controller {
	def := DefaultConfig(cfg.VideoID)
	if cfg.CorrectionInterval <= 0 {
		cfg.CorrectionInterval = def.CorrectionInterval
	}
	if cfg.SeekTolerance <= 0 {
		cfg.SeekTolerance = def.SeekTolerance
	}
	if cfg.AutoplayAttempts <= 0 {
		cfg.AutoplayAttempts = def.AutoplayAttempts
	}
	if cfg.AutoplayRetryDelay <= 0 {
		cfg.AutoplayRetryDelay = def.AutoplayRetryDelay
	}

	c := &Controller{
		cfg:       cfg,
		media:     media,
		source:    source,
		corrector: drift.NewCorrector(cfg.DriftThreshold),
		sched:     RealScheduler(),
		observer:  nopObserver{},
		state:     domain.StateUninitialized,
		ctx:       context.Background(),
		cancel:    func() {},
	}
	for _, opt := range opts {
		opt(c)
	}

	l := pkglog.L()
	c.logger = l.With().Str(pkglog.FieldVideoID, cfg.VideoID).Logger()

	return c
}

// Start performs the initial fetch and arms the correction tick.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state == domain.StateTerminated {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	ctx = c.ctx
	c.mu.Unlock()

	c.OnTick(ctx)
}

// Run starts the controller and terminates it when ctx is done.
func (c *Controller) Run(ctx context.Context) {
	c.Start(ctx)
	<-ctx.Done()
	c.Terminate()
}

// State returns the current state.
func (c *Controller) State() domain.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the controller's observable state.
func (c *Controller) Snapshot() domain.PlaybackSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := domain.PlaybackSnapshot{
		State:        c.state,
		GestureGated: c.gestureGated,
	}
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	if c.info != nil {
		i := *c.info
		snap.Info = &i
	}
	if c.lastCorrection != nil {
		t := *c.lastCorrection
		snap.LastCorrection = &t
	}
	return snap
}

// ExpectedOffset returns the server offset extrapolated to now.
func (c *Controller) ExpectedOffset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expectedOffsetLocked()
}

// OnTick re-fetches streaming info and applies it. A failed fetch skips the tick.
func (c *Controller) OnTick(ctx context.Context) {
	c.mu.Lock()
	if c.state == domain.StateTerminated || c.state == domain.StateUnsynced {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	info, err := c.source.FetchStreamingInfo(ctx, c.cfg.VideoID)

	c.mu.Lock()
	defer c.unlock()

	if c.state == domain.StateTerminated || c.state == domain.StateUnsynced {
		c.logger.Debug().Str(pkglog.FieldState, string(c.state)).Msg("discarding streaming info fetched after sync ended")
		return
	}

	if err != nil {
		c.logger.Warn().Err(err).Msg("streaming info fetch failed, skipping tick")
		c.scheduleTickLocked()
		return
	}

	c.applyInfoLocked(info)
}

// OnMediaReady is the one-time readiness gate: the offset is only applied after it.
func (c *Controller) OnMediaReady() {
	c.mu.Lock()
	defer c.unlock()

	if c.mediaReady {
		return
	}
	c.mediaReady = true

	if c.state == domain.StateInitializing {
		c.startSyncedLocked()
	}
}

// OnUserGesture handles a click on the player surface. It reports whether the
// controller consumed the gesture; outside synchronized playback it does not.
func (c *Controller) OnUserGesture() bool {
	c.mu.Lock()
	defer c.unlock()

	if c.session != nil {
		c.session.UserInteracted = true
	}

	if c.state != domain.StateSyncedPlaying {
		return false
	}

	if !c.media.Paused() {
		return true
	}

	c.stopAutoplayLocked()
	if err := c.media.Play(true); err != nil {
		c.logger.Warn().Err(err).Msg("play after user gesture failed")
		return true
	}

	if c.gestureGated {
		c.logger.Info().Msg("playback started by user gesture")
	}
	c.gestureGated = false
	return true
}

// OnPauseAttempt reacts to the viewer pausing the media. While synchronized the
// pause is reversed and false is returned.
func (c *Controller) OnPauseAttempt() bool {
	c.mu.Lock()
	defer c.unlock()

	if c.state != domain.StateSyncedPlaying || c.session == nil || !c.session.PreventPause {
		return true
	}

	c.logger.Info().Msg("pause blocked during synchronized playback")
	if c.media.Paused() {
		// the pause click is itself a user gesture
		if err := c.media.Play(true); err != nil {
			c.logger.Warn().Err(err).Msg("forced resume failed")
		} else {
			c.gestureGated = false
			c.stopAutoplayLocked()
		}
	}

	c.notify(func(o Observer) { o.PlaybackBlocked(c.cfg.VideoID, "pause", 0) })
	return false
}

// OnSeekAttempt reacts to the viewer moving the playhead to target. A seek
// too far from the expected offset is undone and false is returned.
func (c *Controller) OnSeekAttempt(target float64) bool {
	c.mu.Lock()
	defer c.unlock()

	if c.state != domain.StateSyncedPlaying || c.info == nil || c.info.CanSeek {
		return true
	}

	expected := c.expectedOffsetLocked()
	if math.Abs(target-expected) <= c.cfg.SeekTolerance {
		return true
	}

	c.logger.Info().
		Float64(pkglog.FieldPosition, target).
		Float64(pkglog.FieldOffset, expected).
		Msg("seek blocked during synchronized playback")

	if err := c.media.Seek(expected); err != nil {
		c.logger.Warn().Err(err).Msg("failed to restore playhead")
	}

	c.notify(func(o Observer) { o.PlaybackBlocked(c.cfg.VideoID, "seek", target) })
	return false
}

// Terminate cancels every timer and in-flight fetch. The media is never touched afterwards.
func (c *Controller) Terminate() {
	c.mu.Lock()
	defer c.unlock()

	if c.state == domain.StateTerminated {
		return
	}

	c.stopTickLocked()
	c.stopAutoplayLocked()
	c.cancel()
	c.session = nil
	c.gestureGated = false
	c.setStateLocked(domain.StateTerminated)
}

func (c *Controller) applyInfoLocked(info *domain.StreamingInfo) {
	c.info = info
	c.fetchedAt = c.sched.Now()

	switch c.state {
	case domain.StateUninitialized:
		switch {
		case !info.Available:
			c.logger.Debug().Msg("video not yet available, waiting")
			c.scheduleTickLocked()
		case !info.IsScheduled:
			c.setStateLocked(domain.StateUnsynced)
		default:
			c.session = &domain.PlaybackSession{
				VideoID:    c.cfg.VideoID,
				LastSyncAt: c.fetchedAt,
			}
			c.setStateLocked(domain.StateInitializing)
			if c.mediaReady {
				c.startSyncedLocked()
			}
			c.scheduleTickLocked()
		}

	case domain.StateInitializing, domain.StateSyncedPlaying:
		if !info.Synchronized() {
			c.unsyncLocked()
			return
		}
		c.session.LastSyncAt = c.fetchedAt
		if c.state == domain.StateSyncedPlaying {
			c.correctLocked(info)
		}
		c.scheduleTickLocked()
	}
}

func (c *Controller) startSyncedLocked() {
	offset := c.expectedOffsetLocked()
	if err := c.media.Seek(offset); err != nil {
		c.logger.Warn().Err(err).Float64(pkglog.FieldOffset, offset).Msg("failed to apply initial offset")
	}

	c.session.PreventPause = true
	c.setStateLocked(domain.StateSyncedPlaying)

	c.autoplayTry = 0
	c.attemptAutoplayLocked()
}

func (c *Controller) attemptAutoplayLocked() {
	if c.state != domain.StateSyncedPlaying {
		return
	}

	c.autoplayTry++
	err := c.media.Play(false)
	if err == nil {
		c.logger.Debug().Int(pkglog.FieldAttempt, c.autoplayTry).Msg("autoplay started")
		return
	}

	c.logger.Debug().Err(err).Int(pkglog.FieldAttempt, c.autoplayTry).Msg("autoplay rejected")

	if c.autoplayTry < c.cfg.AutoplayAttempts {
		gen := c.autoplayGen
		c.autoplayTimer = c.sched.AfterFunc(c.cfg.AutoplayRetryDelay, func() { c.retryAutoplay(gen) })
		return
	}

	c.gestureGated = true
	c.logger.Info().Msg("autoplay retries exhausted, waiting for user gesture")
	c.notify(func(o Observer) { o.AutoplayExhausted(c.cfg.VideoID) })
}

func (c *Controller) retryAutoplay(gen int) {
	c.mu.Lock()
	defer c.unlock()

	if c.autoplayTimer == nil || gen != c.autoplayGen {
		return
	}
	c.autoplayTimer = nil
	c.attemptAutoplayLocked()
}

func (c *Controller) correctLocked(info *domain.StreamingInfo) {
	position := c.media.Position()
	d := c.corrector.Decide(position, info.OffsetSeconds, c.media.Paused())

	if d.Seek {
		if err := c.media.Seek(d.SeekTo); err != nil {
			c.logger.Warn().Err(err).Msg("drift correction seek failed")
		} else {
			now := c.fetchedAt
			c.lastCorrection = &now
			c.logger.Debug().
				Float64(pkglog.FieldPosition, position).
				Float64(pkglog.FieldOffset, d.SeekTo).
				Float64(pkglog.FieldDrift, d.Drift).
				Msg("drift corrected")
			c.notify(func(o Observer) { o.DriftCorrected(c.cfg.VideoID, position, d.SeekTo, d.Drift) })
		}
	}

	if d.Resume && !c.gestureGated && c.autoplayTimer == nil {
		if err := c.media.Play(false); err != nil {
			c.logger.Debug().Err(err).Msg("resume rejected")
		}
	}
}

func (c *Controller) unsyncLocked() {
	c.stopTickLocked()
	c.stopAutoplayLocked()
	c.session = nil
	c.gestureGated = false
	c.setStateLocked(domain.StateUnsynced)
}

func (c *Controller) expectedOffsetLocked() float64 {
	if c.info == nil {
		return 0
	}
	return c.info.OffsetSeconds + c.sched.Now().Sub(c.fetchedAt).Seconds()
}

func (c *Controller) scheduleTickLocked() {
	c.stopTickLocked()
	ctx := c.ctx
	c.tickTimer = c.sched.AfterFunc(c.cfg.CorrectionInterval, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		c.OnTick(ctx)
	})
}

func (c *Controller) stopTickLocked() {
	if c.tickTimer != nil {
		c.tickTimer.Stop()
		c.tickTimer = nil
	}
}

func (c *Controller) stopAutoplayLocked() {
	c.autoplayGen++
	if c.autoplayTimer != nil {
		c.autoplayTimer.Stop()
		c.autoplayTimer = nil
	}
}

func (c *Controller) setStateLocked(to domain.PlaybackState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.logger.Info().Str("from", string(from)).Str(pkglog.FieldState, string(to)).Msg("playback state changed")
	c.notify(func(o Observer) { o.StateChanged(c.cfg.VideoID, from, to) })
}

func (c *Controller) notify(fn func(Observer)) {
	o := c.observer
	c.pending = append(c.pending, func() { fn(o) })
}

// unlock releases the mutex and then delivers queued notifications.
func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}
