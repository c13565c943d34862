// Package telemetry forwards playback and chat events to the message bus.
package telemetry

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/chat"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/playback"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
	"github.com/weiawesome/wes-io-live/viewer-client/pkg/pubsub"
)

const defaultBuffer = 256

type outgoing struct {
	channel string
	event   *pubsub.Event
}

// Relay queues events from the controller and the chat channel and publishes
// them from a single goroutine. Publish failures are logged, never returned.
type Relay struct {
	pub    pubsub.Publisher
	queue  chan outgoing
	doneCh chan struct{}
}

func NewRelay(pub pubsub.Publisher, buffer int) *Relay {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Relay{
		pub:    pub,
		queue:  make(chan outgoing, buffer),
		doneCh: make(chan struct{}),
	}
}

// Run publishes queued events until ctx is done, then flushes what is left.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case o := <-r.queue:
			r.publish(ctx, o)
		}
	}
}

// Done returns a channel that is closed when Run exits.
func (r *Relay) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Relay) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case o := <-r.queue:
			r.publish(ctx, o)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, o outgoing) {
	if err := r.pub.Publish(ctx, o.channel, o.event); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str(pkglog.FieldTopic, o.channel).Str("event", o.event.Type).Msg("failed to publish telemetry")
	}
}

func (r *Relay) enqueue(channel, eventType, videoID string, payload interface{}) {
	ev, err := pubsub.NewEvent(eventType, videoID, payload)
	if err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("event", eventType).Msg("failed to encode telemetry")
		return
	}

	select {
	case r.queue <- outgoing{channel: channel, event: ev}:
	default:
		l := pkglog.L()
		l.Warn().Str("event", eventType).Msg("telemetry queue full, dropping event")
	}
}

func (r *Relay) StateChanged(videoID string, from, to domain.PlaybackState) {
	r.enqueue(pubsub.VideoSyncChannel(videoID), pubsub.EventStateChanged, videoID,
		pubsub.StateChangedPayload{From: string(from), To: string(to)})
}

func (r *Relay) DriftCorrected(videoID string, from, to, drift float64) {
	r.enqueue(pubsub.VideoSyncChannel(videoID), pubsub.EventDriftCorrected, videoID,
		pubsub.DriftCorrectedPayload{From: from, To: to, Drift: drift})
}

func (r *Relay) PlaybackBlocked(videoID, action string, target float64) {
	r.enqueue(pubsub.VideoSyncChannel(videoID), pubsub.EventPlaybackBlocked, videoID,
		pubsub.PlaybackBlockedPayload{Action: action, Target: target})
}

func (r *Relay) AutoplayExhausted(videoID string) {
	r.enqueue(pubsub.VideoSyncChannel(videoID), pubsub.EventAutoplayExhausted, videoID, struct{}{})
}

func (r *Relay) MessageReceived(videoID string, msg domain.ChatMessage) {
	r.enqueue(pubsub.VideoChatChannel(videoID), pubsub.EventChatReceived, videoID, msg)
}

func (r *Relay) ConnectionChanged(videoID string, connected bool) {
	r.enqueue(pubsub.VideoChatChannel(videoID), pubsub.EventConnectionChanged, videoID,
		pubsub.ConnectionChangedPayload{Connected: connected})
}

var (
	_ playback.Observer = (*Relay)(nil)
	_ chat.Observer     = (*Relay)(nil)
)
