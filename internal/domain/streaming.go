package domain

// StreamingInfo is the server's answer to "where should playback be right now".
type StreamingInfo struct {
	Available         bool       `json:"available"`
	IsScheduled       bool       `json:"isScheduled"`
	OffsetSeconds     float64    `json:"offsetSeconds"`
	CanSeek           bool       `json:"canSeek"`
	Message           string     `json:"message,omitempty"`
	ScheduledDateTime *LocalTime `json:"scheduledDateTime,omitempty"`
	DurationSeconds   *float64   `json:"durationSeconds,omitempty"`
}

// Synchronized reports whether the video must be played in lock-step with the server.
func (s *StreamingInfo) Synchronized() bool {
	return s != nil && s.Available && s.IsScheduled
}

// ViewerCount is the number of viewers of a video.
type ViewerCount struct {
	ViewerCount int `json:"viewerCount"`
}
