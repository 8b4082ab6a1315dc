package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-skill-api/internal/models"
	appErrors "github.com/noah-isme/classroom-skill-api/pkg/errors"
)

const userMappingColumns = `platform_user_id, voice_user_id, registration_ids, created_at, updated_at`

// QueryObserver receives the latency of each repository statement.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// UserMappingRepository persists platform to voice user links.
type UserMappingRepository struct {
	db       *sqlx.DB
	now      func() time.Time
	observer QueryObserver
}

// NewUserMappingRepository creates a new instance of UserMappingRepository.
// observer may be nil.
func NewUserMappingRepository(db *sqlx.DB, observer QueryObserver) *UserMappingRepository {
	return &UserMappingRepository{db: db, now: time.Now, observer: observer}
}

func (r *UserMappingRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// Upsert stores the mapping keyed by platform user id. A voice user linked to a
// different platform user is moved.
func (r *UserMappingRepository) Upsert(ctx context.Context, mapping *models.UserMapping) error {
	if mapping == nil {
		return fmt.Errorf("upsert user mapping: nil mapping")
	}
	defer r.observe("user_mappings.upsert", time.Now())
	ts := r.now().UTC()
	if mapping.RegistrationIDs == nil {
		mapping.RegistrationIDs = []string{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert user mapping: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const release = `DELETE FROM user_mappings WHERE voice_user_id = $1 AND platform_user_id <> $2`
	if _, err := tx.ExecContext(ctx, release, mapping.VoiceUserID, mapping.PlatformUserID); err != nil {
		return fmt.Errorf("release voice user mapping: %w", err)
	}

	const upsert = `INSERT INTO user_mappings (` + userMappingColumns + `)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (platform_user_id) DO UPDATE SET voice_user_id = EXCLUDED.voice_user_id, registration_ids = EXCLUDED.registration_ids, updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`
	row := tx.QueryRowxContext(ctx, upsert, mapping.PlatformUserID, mapping.VoiceUserID, mapping.RegistrationIDs, ts)
	if err := row.Scan(&mapping.CreatedAt, &mapping.UpdatedAt); err != nil {
		return fmt.Errorf("upsert user mapping: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user mapping: %w", err)
	}
	return nil
}

// FindByPlatformUserID returns the mapping of a platform user.
func (r *UserMappingRepository) FindByPlatformUserID(ctx context.Context, platformUserID string) (*models.UserMapping, error) {
	const query = `SELECT ` + userMappingColumns + ` FROM user_mappings WHERE platform_user_id = $1 LIMIT 1`
	defer r.observe("user_mappings.find_by_platform_user", time.Now())
	return r.findOne(ctx, "platform user", query, platformUserID)
}

// FindByVoiceUserID returns the mapping of a voice user.
func (r *UserMappingRepository) FindByVoiceUserID(ctx context.Context, voiceUserID string) (*models.UserMapping, error) {
	const query = `SELECT ` + userMappingColumns + ` FROM user_mappings WHERE voice_user_id = $1 LIMIT 1`
	defer r.observe("user_mappings.find_by_voice_user", time.Now())
	return r.findOne(ctx, "voice user", query, voiceUserID)
}

// DeleteByVoiceUserID removes the mapping of a voice user.
func (r *UserMappingRepository) DeleteByVoiceUserID(ctx context.Context, voiceUserID string) error {
	const query = `DELETE FROM user_mappings WHERE voice_user_id = $1`
	defer r.observe("user_mappings.delete", time.Now())
	res, err := r.db.ExecContext(ctx, query, voiceUserID)
	if err != nil {
		return fmt.Errorf("delete user mapping: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user mapping rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "user mapping not found")
	}
	return nil
}

func (r *UserMappingRepository) findOne(ctx context.Context, label, query, arg string) (*models.UserMapping, error) {
	var mapping models.UserMapping
	if err := r.db.GetContext(ctx, &mapping, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user mapping not found")
		}
		return nil, fmt.Errorf("find user mapping by %s: %w", label, err)
	}
	return &mapping, nil
}
