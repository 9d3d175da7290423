package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence for profiles, role assignments and audit entries.
type Repository interface {
	GetProfile(ctx context.Context, id uuid.UUID) (ProfileRecord, error)
	FindProfileByEmail(ctx context.Context, email string) (ProfileRecord, error)
	ListProfiles(ctx context.Context) ([]ProfileRecord, error)
	InsertRole(ctx context.Context, userID uuid.UUID, role Role, grantedBy uuid.NullUUID) error
	DeleteRole(ctx context.Context, userID uuid.UUID, role Role) (int64, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, status ProfileStatus) (int64, error)
	InsertAudit(ctx context.Context, entry AuditEntry) error
}

// ProfileRecord is a raw profile row with its stored role identifiers.
type ProfileRecord struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Status      string
	Roles       []string
	CreatedAt   time.Time
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `p.id, p.email, p.display_name, p.status, p.created_at,
	COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')`

// GetProfile fetches a profile and its roles by id.
func (r *PGRepository) GetProfile(ctx context.Context, id uuid.UUID) (ProfileRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+`
		FROM profiles p LEFT JOIN user_roles ur ON ur.user_id = p.id
		WHERE p.id = $1 GROUP BY p.id`, id)
	return scanProfile(row)
}

// FindProfileByEmail fetches a profile and its roles by email.
func (r *PGRepository) FindProfileByEmail(ctx context.Context, email string) (ProfileRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+`
		FROM profiles p LEFT JOIN user_roles ur ON ur.user_id = p.id
		WHERE lower(p.email) = lower($1) GROUP BY p.id`, email)
	return scanProfile(row)
}

// ListProfiles returns every profile ordered by creation time.
func (r *PGRepository) ListProfiles(ctx context.Context) ([]ProfileRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+`
		FROM profiles p LEFT JOIN user_roles ur ON ur.user_id = p.id
		GROUP BY p.id ORDER BY p.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProfileRecord
	for rows.Next() {
		rec, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertRole assigns a role to a profile.
func (r *PGRepository) InsertRole(ctx context.Context, userID uuid.UUID, role Role, grantedBy uuid.NullUUID) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role, granted_by, created_at) VALUES ($1, $2, $3, $4)`,
		userID, string(role), grantedBy, time.Now().UTC())
	if isUniqueViolation(err) {
		return ErrDuplicateAssignment
	}
	return err
}

// DeleteRole removes a role from a profile.
func (r *PGRepository) DeleteRole(ctx context.Context, userID uuid.UUID, role Role) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, string(role))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateStatus sets the profile status.
func (r *PGRepository) UpdateStatus(ctx context.Context, userID uuid.UUID, status ProfileStatus) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET status = $2, updated_at = now() WHERE id = $1`, userID, string(status))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertAudit persists a denied navigation.
func (r *PGRepository) InsertAudit(ctx context.Context, entry AuditEntry) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO access_audit (id, user_id, path, state, redirect, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.Path, entry.State, entry.Redirect, entry.CreatedAt)
	return err
}

func scanProfile(row pgx.Row) (ProfileRecord, error) {
	var rec ProfileRecord
	if err := row.Scan(&rec.ID, &rec.Email, &rec.DisplayName, &rec.Status, &rec.CreatedAt, &rec.Roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrNotFound
		}
		return ProfileRecord{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ Repository = (*PGRepository)(nil)

// PruneAudit deletes denied-navigation records older than before.
func (r *PGRepository) PruneAudit(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM access_audit WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
