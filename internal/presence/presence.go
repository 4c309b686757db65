// Package presence tracks best-effort online/offline state for chat
// conversations. A user is "online" toward a peer while their chat view for
// that conversation is mounted; there is no heartbeat, only explicit marks.
package presence

import "context"

type Store interface {
	// MarkOnline records that userId has the conversation with peerId open.
	MarkOnline(ctx context.Context, userId, peerId int) error
	// MarkOffline clears all of userId's online marks.
	MarkOffline(ctx context.Context, userId int) error
	// IsOnline reports whether peerId is currently online in the
	// conversation with userId.
	IsOnline(ctx context.Context, userId, peerId int) (bool, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
