package domain

import "encoding/json"

// Chat message types.
const (
	MsgTypeChat        = "CHAT"
	MsgTypeJoin        = "JOIN"
	MsgTypeLeave       = "LEAVE"
	MsgTypeViewerCount = "VIEWER_COUNT"
)

// ChatMessage is a message on the chat or viewers topic of a video.
type ChatMessage struct {
	Username    string      `json:"username"`
	Message     string      `json:"message"`
	VideoID     json.Number `json:"videoId,omitempty"`
	Type        string      `json:"type"`
	Timestamp   *LocalTime  `json:"timestamp,omitempty"`
	ViewerCount *int        `json:"viewerCount,omitempty"`
}

// IsSystem reports whether the message is a join/leave notice.
func (m ChatMessage) IsSystem() bool {
	return m.Type == MsgTypeJoin || m.Type == MsgTypeLeave
}

// OutgoingChat is the body sent to the chat destination.
type OutgoingChat struct {
	Username string      `json:"username"`
	Message  string      `json:"message"`
	VideoID  json.Number `json:"videoId"`
	Type     string      `json:"type"`
}
