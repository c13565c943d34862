package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/audit"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/chat"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/playback"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/presence"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/telemetry"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
	"github.com/weiawesome/wes-io-live/viewer-client/pkg/pubsub"
)

var ErrAlreadyStarted = errors.New("watch service already started")

// Config holds watch service configuration.
type Config struct {
	VideoID      string
	Playback     playback.Config
	Chat         chat.Config
	PollInterval time.Duration
}

// Deps are the collaborators of a watch service.
type Deps struct {
	API       PlatformAPI
	Player    Player
	Identity  IdentityResolver
	Publisher pubsub.Publisher // nil disables telemetry
	Scheduler playback.Scheduler
}

type watchService struct {
	cfg  Config
	deps Deps

	controller *playback.Controller
	transcript *chat.Transcript
	gauge      *presence.Gauge
	poller     *presence.Poller
	relay      *telemetry.Relay

	mu       sync.Mutex
	started  bool
	stopped  bool
	username string
	channel  *chat.Channel
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWatchService creates a new WatchService instance.
func NewWatchService(cfg Config, deps Deps) WatchService {
	cfg.Playback.VideoID = cfg.VideoID
	cfg.Chat.VideoID = cfg.VideoID

	s := &watchService{
		cfg:        cfg,
		deps:       deps,
		transcript: chat.NewTranscript(),
		gauge:      presence.NewGauge(),
	}

	var opts []playback.Option
	if deps.Scheduler != nil {
		opts = append(opts, playback.WithScheduler(deps.Scheduler))
	}
	if deps.Publisher != nil {
		s.relay = telemetry.NewRelay(deps.Publisher, 0)
		opts = append(opts, playback.WithObserver(s.relay))
	}

	s.controller = playback.NewController(cfg.Playback, deps.Player, deps.API, opts...)
	s.poller = presence.NewPoller(cfg.VideoID, deps.API, s.gauge, cfg.PollInterval)

	return s
}

func (s *watchService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	ctx = pkglog.WithVideo(ctx, s.cfg.VideoID)
	runCtx, cancel := context.WithCancel(ctx)

	// identity and the first streaming-info fetch are independent
	var username string
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		var err error
		username, err = s.deps.Identity.Resolve(gCtx)
		if err != nil {
			return fmt.Errorf("failed to resolve username: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.controller.Start(runCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		cancel()
		s.controller.Terminate()
		return err
	}

	var chatOpts []chat.Option
	if s.relay != nil {
		chatOpts = append(chatOpts, chat.WithObserver(s.relay))
	}
	chatCfg := s.cfg.Chat
	chatCfg.Username = username
	channel := chat.NewChannel(chatCfg, s.transcript, s.gauge, chatOpts...)

	s.mu.Lock()
	s.username = username
	s.channel = channel
	s.cancel = cancel
	s.mu.Unlock()

	if s.relay != nil {
		s.goRun(func() { s.relay.Run(runCtx) })
	}
	s.goRun(func() { s.poller.Run(runCtx) })
	s.goRun(func() {
		if err := s.deps.Player.LoadUntilReady(runCtx); err != nil {
			return
		}
		s.controller.OnMediaReady()
	})
	channel.Start(runCtx)

	audit.Log(ctx, audit.ActionMount, username, "video mounted")
	return nil
}

func (s *watchService) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	channel := s.channel
	username := s.username
	s.mu.Unlock()

	s.controller.Terminate()
	if channel != nil {
		channel.Stop()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	ctx := pkglog.WithVideo(context.Background(), s.cfg.VideoID)
	audit.Log(ctx, audit.ActionUnmount, username, "video unmounted")
	return nil
}

func (s *watchService) Snapshot() domain.WatchSnapshot {
	s.mu.Lock()
	username := s.username
	channel := s.channel
	s.mu.Unlock()

	snap := domain.WatchSnapshot{
		VideoID:  s.cfg.VideoID,
		Username: username,
		Playback: s.controller.Snapshot(),
		Viewers:  s.gauge.Snapshot(),
	}
	if channel != nil {
		snap.Connected = channel.Connected()
	}
	return snap
}

func (s *watchService) Messages() []domain.ChatMessage {
	return s.transcript.Messages()
}

func (s *watchService) SendMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	channel := s.channel
	username := s.username
	s.mu.Unlock()

	if channel == nil {
		return chat.ErrNotConnected
	}
	if err := channel.Publish(ctx, text); err != nil {
		return err
	}

	audit.Log(ctx, audit.ActionSendMessage, username, "chat message sent")
	return nil
}

func (s *watchService) Gesture(ctx context.Context) bool {
	if s.controller.OnUserGesture() {
		audit.Log(ctx, audit.ActionGesture, s.currentUsername(), "gesture handled by sync")
		return true
	}

	if state := s.controller.State(); withheld(state) {
		l := pkglog.Ctx(ctx)
		l.Info().Str(pkglog.FieldState, string(state)).Msg("play refused before sync resolved")
		audit.Log(ctx, audit.ActionPlayBlocked, s.currentUsername(), "play refused before sync resolved")
		return false
	}

	// outside synchronized playback a click simply starts the player
	if s.deps.Player.Paused() {
		if err := s.deps.Player.Play(true); err != nil {
			l := pkglog.Ctx(ctx)
			l.Debug().Err(err).Msg("play on gesture failed")
		}
	}
	audit.Log(ctx, audit.ActionGesture, s.currentUsername(), "gesture")
	return true
}

func (s *watchService) Pause(ctx context.Context) bool {
	s.deps.Player.Pause()
	if s.controller.OnPauseAttempt() {
		return true
	}
	audit.Log(ctx, audit.ActionPauseBlocked, s.currentUsername(), "pause reversed during synchronized playback")
	return false
}

func (s *watchService) Seek(ctx context.Context, position float64) (bool, error) {
	detail := "target=" + strconv.FormatFloat(position, 'f', 1, 64)

	if state := s.controller.State(); withheld(state) {
		l := pkglog.Ctx(ctx)
		l.Info().
			Str(pkglog.FieldState, string(state)).
			Float64(pkglog.FieldPosition, position).
			Msg("seek refused before sync resolved")
		audit.LogWithDetail(ctx, audit.ActionSeekBlocked, s.currentUsername(), detail, "seek refused before sync resolved")
		return false, nil
	}

	if err := s.deps.Player.Seek(position); err != nil {
		return false, err
	}
	if s.controller.OnSeekAttempt(position) {
		return true, nil
	}
	audit.LogWithDetail(ctx, audit.ActionSeekBlocked, s.currentUsername(), detail,
		"seek undone during synchronized playback")
	return false, nil
}

// withheld reports whether the media is closed to the viewer: sync has not
// resolved yet (premiere not started, first fetch pending, media loading) or
// the view is unmounted. Only UNSYNCED hands the player back.
func withheld(state domain.PlaybackState) bool {
	switch state {
	case domain.StateUninitialized, domain.StateInitializing, domain.StateTerminated:
		return true
	}
	return false
}

func (s *watchService) currentUsername() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *watchService) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}
