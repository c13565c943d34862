package pubsub

import "fmt"

// Channel naming conventions for viewer telemetry.
const (
	ChannelVideoSync = "viewer:video:%s:sync"
	ChannelVideoChat = "viewer:video:%s:chat"
)

// Sync event types.
const (
	EventStateChanged      = "state_changed"
	EventDriftCorrected    = "drift_corrected"
	EventPlaybackBlocked   = "playback_blocked"
	EventAutoplayExhausted = "autoplay_exhausted"
)

// Chat event types.
const (
	EventChatReceived      = "chat_received"
	EventConnectionChanged = "connection_changed"
)

// VideoSyncChannel returns the channel for playback sync events.
func VideoSyncChannel(videoID string) string {
	return fmt.Sprintf(ChannelVideoSync, videoID)
}

// VideoChatChannel returns the channel for chat events.
func VideoChatChannel(videoID string) string {
	return fmt.Sprintf(ChannelVideoChat, videoID)
}

// StateChangedPayload is sent when the playback controller changes state.
type StateChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DriftCorrectedPayload is sent when a hard seek is applied.
type DriftCorrectedPayload struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Drift float64 `json:"drift"`
}

// PlaybackBlockedPayload is sent when a viewer pause or seek is reversed.
type PlaybackBlockedPayload struct {
	Action string  `json:"action"` // "pause", "seek"
	Target float64 `json:"target,omitempty"`
}

// ConnectionChangedPayload is sent when the chat channel connects or drops.
type ConnectionChangedPayload struct {
	Connected bool `json:"connected"`
}
