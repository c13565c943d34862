package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

var (
	ErrNotConnected   = errors.New("chat channel not connected")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message too long")
)

// DefaultMaxMessageLength is the input limit of the chat box, in runes.
const DefaultMaxMessageLength = 300

// CountSink receives viewer counts pushed on the viewers topic.
type CountSink interface {
	Set(count int, source string)
}

// Observer is notified of inbound chat and connection changes.
type Observer interface {
	MessageReceived(videoID string, msg domain.ChatMessage)
	ConnectionChanged(videoID string, connected bool)
}

// Config configures a chat channel.
type Config struct {
	URL              string
	VideoID          string
	Username         string
	ReconnectDelay   time.Duration
	WriteWait        time.Duration
	MaxMessageLength int
	MaxFrameSize     int64
}

// Channel is a reconnecting STOMP-over-WebSocket subscription to one video's chat.
type Channel struct {
	cfg        Config
	transcript *Transcript
	gauge      CountSink
	observer   Observer
	dialer     *websocket.Dialer
	logger     zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	started   bool
	cancel    context.CancelFunc
	doneCh    chan struct{}

	writeMu sync.Mutex
}

// Option configures a Channel.
type Option func(*Channel)

// WithObserver registers an observer for inbound messages and connection changes.
func WithObserver(o Observer) Option {
	return func(c *Channel) { c.observer = o }
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

// NewChannel creates a disconnected channel. Inbound chat is appended to transcript;
// pushed viewer counts are written to gauge.
func NewChannel(cfg Config, transcript *Transcript, gauge CountSink, opts ...Option) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = 64 * 1024
	}

	c := &Channel{
		cfg:        cfg,
		transcript: transcript,
		gauge:      gauge,
		observer:   nopObserver{},
		dialer:     websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}

	l := pkglog.L()
	c.logger = l.With().
		Str(pkglog.FieldVideoID, cfg.VideoID).
		Str(pkglog.FieldUsername, cfg.Username).
		Logger()

	return c
}

// Start launches the connection loop. It returns immediately.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.doneCh = make(chan struct{})

	go c.manageLoop(ctx)
}

// Stop sends DISCONNECT, closes the socket and waits for the loop to exit.
func (c *Channel) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.doneCh
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the connection loop has exited.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneCh
}

// Connected reports whether the channel is connected and subscribed.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Username returns the identity sent on every connect.
func (c *Channel) Username() string {
	return c.cfg.Username
}

// Publish sends a chat message. While disconnected it does nothing and returns
// ErrNotConnected; there is no outbound queue.
func (c *Channel) Publish(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > c.cfg.MaxMessageLength {
		return fmt.Errorf("%w: limit is %d characters", ErrMessageTooLong, c.cfg.MaxMessageLength)
	}

	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	body, err := json.Marshal(domain.OutgoingChat{
		Username: c.cfg.Username,
		Message:  text,
		VideoID:  json.Number(c.cfg.VideoID),
		Type:     domain.MsgTypeChat,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := c.writeFrame(conn, sendFrame(chatDestination(c.cfg.VideoID), body)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (c *Channel) manageLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		close(c.doneCh)
		c.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Dur("retry_in", c.cfg.ReconnectDelay).Msg("chat connect failed")
		}

		if ctx.Err() != nil {
			return
		}
		if !c.sleep(ctx) {
			return
		}
	}
}

// session runs one connection: dial, handshake, then read until it drops.
// Errors are only returned for attempts that never reached the connected state.
func (c *Channel) session(ctx context.Context) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("invalid chat url: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteWait)
	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(c.cfg.MaxFrameSize)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.disconnect(conn)
		case <-stop:
		}
	}()

	if err := c.handshake(conn, u.Hostname()); err != nil {
		return err
	}

	c.onConnected(conn)
	err = c.readLoop(conn)
	c.onDisconnected(conn, err, ctx.Err() != nil)
	return nil
}

func (c *Channel) handshake(conn *websocket.Conn, host string) error {
	if err := c.writeFrame(conn, connectFrame(host, c.cfg.Username)); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.WriteWait))
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read CONNECTED: %w", err)
		}
		frames, err := decodeFrames(data)
		if err != nil {
			return err
		}
		for _, f := range frames {
			switch f.Command {
			case frame.CONNECTED:
				if err := c.writeFrame(conn, subscribeFrame(subChat, chatTopic(c.cfg.VideoID))); err != nil {
					return err
				}
				return c.writeFrame(conn, subscribeFrame(subViewers, viewersTopic(c.cfg.VideoID)))
			case frame.ERROR:
				return fmt.Errorf("broker rejected connect: %s", f.Header.Get(frame.Message))
			}
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		frames, err := decodeFrames(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed frame")
		}

		for _, f := range frames {
			switch f.Command {
			case frame.MESSAGE:
				c.dispatch(f)
			case frame.ERROR:
				return fmt.Errorf("broker error: %s", f.Header.Get(frame.Message))
			}
		}
	}
}

func (c *Channel) dispatch(f *frame.Frame) {
	sub := f.Header.Get(frame.Subscription)

	var msg domain.ChatMessage
	if err := json.Unmarshal(f.Body, &msg); err != nil {
		c.logger.Warn().Err(err).Str("subscription", sub).Msg("dropping malformed message")
		return
	}

	switch sub {
	case subChat:
		c.transcript.Append(msg)
		c.observer.MessageReceived(c.cfg.VideoID, msg)
	case subViewers:
		count := 0
		if msg.ViewerCount != nil {
			count = *msg.ViewerCount
		}
		c.gauge.Set(count, domain.SourcePush)
	default:
		c.logger.Debug().Str("subscription", sub).Msg("message for unknown subscription")
	}
}

func (c *Channel) writeFrame(conn *websocket.Conn, f *frame.Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// disconnect says goodbye so the broker announces LEAVE, then closes the socket.
func (c *Channel) disconnect(conn *websocket.Conn) {
	if err := c.writeFrame(conn, disconnectFrame()); err != nil {
		c.logger.Debug().Err(err).Msg("failed to send DISCONNECT")
	}

	c.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	conn.Close()
}

func (c *Channel) onConnected(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info().Str("url", c.cfg.URL).Msg("chat connected")
	c.observer.ConnectionChanged(c.cfg.VideoID, true)
}

func (c *Channel) onDisconnected(conn *websocket.Conn, err error, stopping bool) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connected = false
	c.mu.Unlock()

	if stopping {
		c.logger.Info().Msg("chat disconnected")
	} else {
		c.logger.Warn().Err(err).Dur("retry_in", c.cfg.ReconnectDelay).Msg("chat connection lost")
	}
	c.observer.ConnectionChanged(c.cfg.VideoID, false)
}

// sleep waits the reconnect delay. It returns false if ctx ended first.
func (c *Channel) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.cfg.ReconnectDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type nopObserver struct{}

func (nopObserver) MessageReceived(string, domain.ChatMessage) {}

func (nopObserver) ConnectionChanged(string, bool) {}
