package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

// Audit actions for viewer input.
const (
	ActionMount        = "viewer.mount"
	ActionUnmount      = "viewer.unmount"
	ActionSendMessage  = "viewer.send_message"
	ActionGesture      = "viewer.gesture"
	ActionPlayBlocked  = "viewer.play_blocked"
	ActionPauseBlocked = "viewer.pause_blocked"
	ActionSeekBlocked  = "viewer.seek_blocked"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, username string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, username string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Str(FieldDetail, detail).
		Msg(msg)
}
