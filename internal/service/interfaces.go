package service

import "context"

// SecurityNotifier receives suspicious-session events. Implementations must
// not block the calling request.
type SecurityNotifier interface {
	NotifyRefreshReplay(ctx context.Context, userID int64, reason string)
}
