package devstack

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/ManuGH/routegate/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

// SqliteStore persists the dev fixtures in a SQLite file, so a local stack
// survives restarts.
type SqliteStore struct {
	db *sql.DB
}

func OpenSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("devstack store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) Close() error { return s.db.Close() }

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL UNIQUE,
		refresh_token TEXT NOT NULL UNIQUE,
		email_verified INTEGER NOT NULL,
		expires_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		onboarding_complete INTEGER NOT NULL,
		onboarding_step TEXT NOT NULL,
		interests_count INTEGER NOT NULL,
		subcategories_count INTEGER NOT NULL,
		deal_breakers_count INTEGER NOT NULL
	);
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) PutSession(ctx context.Context, rec SessionRecord) error {
	query := `
	INSERT INTO sessions (user_id, access_token, refresh_token, email_verified, expires_at_ms)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		email_verified = excluded.email_verified,
		expires_at_ms = excluded.expires_at_ms
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID.String(), rec.AccessToken, rec.RefreshToken,
		boolToInt(rec.EmailVerified), timeToMs(rec.ExpiresAt),
	)
	return err
}

func (s *SqliteStore) SessionByAccessToken(ctx context.Context, token string) (SessionRecord, error) {
	return s.sessionBy(ctx, "access_token", token)
}

func (s *SqliteStore) SessionByRefreshToken(ctx context.Context, token string) (SessionRecord, error) {
	return s.sessionBy(ctx, "refresh_token", token)
}

func (s *SqliteStore) sessionBy(ctx context.Context, column, token string) (SessionRecord, error) {
	query := fmt.Sprintf(
		"SELECT user_id, access_token, refresh_token, email_verified, expires_at_ms FROM sessions WHERE %s = ?",
		column,
	)
	row := s.db.QueryRowContext(ctx, query, token)

	var (
		rec       SessionRecord
		id        string
		verified  int
		expiresMs int64
	)
	err := row.Scan(&id, &rec.AccessToken, &rec.RefreshToken, &verified, &expiresMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionRecord{}, ErrNotFound
		}
		return SessionRecord{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("devstack store: corrupt user id %q: %w", id, err)
	}
	rec.UserID = parsed
	rec.EmailVerified = verified != 0
	rec.ExpiresAt = msToTime(expiresMs)
	return rec, nil
}

func (s *SqliteStore) DeleteSession(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

func (s *SqliteStore) PutProfile(ctx context.Context, rec ProfileRecord) error {
	query := `
	INSERT INTO profiles (
		user_id, email, role, onboarding_complete, onboarding_step,
		interests_count, subcategories_count, deal_breakers_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		email = excluded.email,
		role = excluded.role,
		onboarding_complete = excluded.onboarding_complete,
		onboarding_step = excluded.onboarding_step,
		interests_count = excluded.interests_count,
		subcategories_count = excluded.subcategories_count,
		deal_breakers_count = excluded.deal_breakers_count
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID.String(), string(rec.Email), rec.Role,
		boolToInt(rec.OnboardingComplete), rec.OnboardingStep,
		rec.InterestsCount, rec.SubcategoriesCount, rec.DealBreakersCount,
	)
	return err
}

func (s *SqliteStore) ProfileByUser(ctx context.Context, userID string) (ProfileRecord, error) {
	query := `
	SELECT user_id, email, role, onboarding_complete, onboarding_step,
		interests_count, subcategories_count, deal_breakers_count
	FROM profiles WHERE user_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, userID)

	var (
		rec      ProfileRecord
		id       string
		email    string
		complete int
	)
	err := row.Scan(&id, &email, &rec.Role, &complete, &rec.OnboardingStep,
		&rec.InterestsCount, &rec.SubcategoriesCount, &rec.DealBreakersCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProfileRecord{}, ErrNotFound
		}
		return ProfileRecord{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return ProfileRecord{}, fmt.Errorf("devstack store: corrupt user id %q: %w", id, err)
	}
	rec.UserID = parsed
	rec.Email = openapi_types.Email(email)
	rec.OnboardingComplete = complete != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ Store = (*SqliteStore)(nil)
