package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/playback"
	"github.com/weiawesome/wes-io-live/viewer-client/internal/presence"
)

// WatchService defines the interface for watching one video.
type WatchService interface {
	// Start mounts the view: resolves identity, starts sync, chat and viewer polling.
	Start(ctx context.Context) error

	// Stop unmounts the view, cancelling every timer and connection.
	Stop() error

	// Snapshot returns the current state of the mounted view.
	Snapshot() domain.WatchSnapshot

	// Messages returns the chat transcript in receipt order.
	Messages() []domain.ChatMessage

	// SendMessage publishes a chat message.
	SendMessage(ctx context.Context, text string) error

	// Gesture handles a click on the player surface. Returns false when it was
	// refused because playback sync has not resolved.
	Gesture(ctx context.Context) bool

	// Pause handles a pause request. Returns false when it was reversed.
	Pause(ctx context.Context) bool

	// Seek handles a seek request. Returns false when it was refused or undone.
	Seek(ctx context.Context, position float64) (bool, error)
}

// PlatformAPI is the subset of the platform REST API the view consumes.
type PlatformAPI interface {
	playback.TimeSource
	presence.CountSource
}

// Player is a media element that can load its stream.
type Player interface {
	playback.Media
	LoadUntilReady(ctx context.Context) error
}

// IdentityResolver picks the chat username.
type IdentityResolver interface {
	Resolve(ctx context.Context) (string, error)
}
