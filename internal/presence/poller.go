package presence

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

// CountSource returns the REST snapshot of a video's viewer count.
type CountSource interface {
	FetchViewerCount(ctx context.Context, videoID string) (int, error)
}

// Poller refreshes a Gauge from the REST snapshot on a fixed interval.
type Poller struct {
	videoID  string
	source   CountSource
	gauge    *Gauge
	interval time.Duration
	doneCh   chan struct{}
}

func NewPoller(videoID string, source CountSource, gauge *Gauge, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{
		videoID:  videoID,
		source:   source,
		gauge:    gauge,
		interval: interval,
		doneCh:   make(chan struct{}),
	}
}

// Run polls immediately and then every interval until ctx is done.
// Failed polls are logged and leave the gauge untouched.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.doneCh)

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Done returns a channel that is closed when Run exits.
func (p *Poller) Done() <-chan struct{} {
	return p.doneCh
}

func (p *Poller) poll(ctx context.Context) {
	n, err := p.source.FetchViewerCount(ctx, p.videoID)
	if err != nil {
		if ctx.Err() == nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldVideoID, p.videoID).Msg("viewer count poll failed")
		}
		return
	}
	p.gauge.Set(n, domain.SourcePoll)
}
