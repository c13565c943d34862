package domain

// SendMessageRequest is the body of a chat send.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SeekRequest asks the player to move the playhead.
type SeekRequest struct {
	Position *float64 `json:"position" binding:"required"`
}

// PlayerActionResponse reports whether a player input took effect.
type PlayerActionResponse struct {
	Allowed bool          `json:"allowed"`
	State   PlaybackState `json:"state"`
}

// MessagesResponse lists the chat transcript.
type MessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
	Total    int           `json:"total"`
}
