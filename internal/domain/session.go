package domain

import "time"

// PlaybackState is a state of the playback controller.
type PlaybackState string

const (
	StateUninitialized PlaybackState = "UNINITIALIZED"
	StateInitializing  PlaybackState = "INITIALIZING"
	StateSyncedPlaying PlaybackState = "SYNCED_PLAYING"
	StateUnsynced      PlaybackState = "UNSYNCED"
	StateTerminated    PlaybackState = "TERMINATED"
)

// Synchronized reports whether the controller is enforcing server time in this state.
func (s PlaybackState) Synchronized() bool {
	return s == StateInitializing || s == StateSyncedPlaying
}

// PlaybackSession exists while a video is being played in sync.
type PlaybackSession struct {
	VideoID        string    `json:"videoId"`
	UserInteracted bool      `json:"userInteracted"`
	PreventPause   bool      `json:"preventPause"`
	LastSyncAt     time.Time `json:"lastSyncAt"`
}

// PlaybackSnapshot is a point-in-time view of the controller.
type PlaybackSnapshot struct {
	State          PlaybackState    `json:"state"`
	Session        *PlaybackSession `json:"session,omitempty"`
	Info           *StreamingInfo   `json:"info,omitempty"`
	GestureGated   bool             `json:"gestureGated"`
	LastCorrection *time.Time       `json:"lastCorrection,omitempty"`
}

// Gauge sources.
const (
	SourcePush = "push"
	SourcePoll = "poll"
)

// ViewerGaugeSnapshot is the last viewer count seen.
type ViewerGaugeSnapshot struct {
	Count     int       `json:"viewerCount"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// WatchSnapshot aggregates the state of one mounted video.
type WatchSnapshot struct {
	VideoID   string              `json:"videoId"`
	Username  string              `json:"username"`
	Connected bool                `json:"connected"`
	Playback  PlaybackSnapshot    `json:"playback"`
	Viewers   ViewerGaugeSnapshot `json:"viewers"`
}
