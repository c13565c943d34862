package presence

import (
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
)

// Gauge holds the last viewer count seen from either source. Last writer wins;
// the two sources are never reconciled.
type Gauge struct {
	mu   sync.RWMutex
	snap domain.ViewerGaugeSnapshot
	now  func() time.Time
}

func NewGauge() *Gauge {
	return &Gauge{now: time.Now}
}

func (g *Gauge) Set(count int, source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = domain.ViewerGaugeSnapshot{
		Count:     count,
		Source:    source,
		UpdatedAt: g.now(),
	}
}

func (g *Gauge) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap.Count
}

func (g *Gauge) Snapshot() domain.ViewerGaugeSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}
