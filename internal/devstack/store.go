// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package devstack

import (
	"context"
	"fmt"
)

// Store persists sessions and profile rows for the dev server. PutSession
// upserts by user id and keeps the token indexes consistent: a rotation
// drops the lookup entries for the replaced tokens.
type Store interface {
	PutSession(ctx context.Context, rec SessionRecord) error
	SessionByAccessToken(ctx context.Context, token string) (SessionRecord, error)
	SessionByRefreshToken(ctx context.Context, token string) (SessionRecord, error)
	DeleteSession(ctx context.Context, userID string) error

	PutProfile(ctx context.Context, rec ProfileRecord) error
	ProfileByUser(ctx context.Context, userID string) (ProfileRecord, error)

	Close() error
}

// OpenStore creates a Store for the configured backend. The path parameter
// is the database file or directory for sqlite and badger, and the server
// address for redis.
func OpenStore(backend, path string) (Store, error) {
	if backend == "" {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSqliteStore(path)
	case "badger":
		return OpenBadgerStore(path)
	case "redis":
		return OpenRedisStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
