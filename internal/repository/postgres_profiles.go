package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wardshift/internal/domain"
)

// PostgresProfilesRepository 临床人员档案 Repository 实现
type PostgresProfilesRepository struct {
	db *sql.DB
}

// NewPostgresProfilesRepository 创建档案 Repository
func NewPostgresProfilesRepository(db *sql.DB) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

// GetProfileByUserID 按认证用户 ID 查档案
func (r *PostgresProfilesRepository) GetProfileByUserID(ctx context.Context, userID string) (*domain.ClinicianProfile, error) {
	if userID == "" {
		return nil, ErrProfileNotFound
	}

	query := `
		SELECT
			profile_id::text,
			user_id::text,
			full_name,
			hospital,
			service
		FROM clinician_profiles
		WHERE user_id = $1
	`

	var p domain.ClinicianProfile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ProfileID,
		&p.UserID,
		&p.FullName,
		&p.Hospital,
		&p.Service,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get clinician profile: %w", err)
	}
	return &p, nil
}
