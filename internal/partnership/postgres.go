package partnership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PGStore is the hosted-Postgres implementation of Store. Invite codes
// and stat increments run server-side so concurrent clients never race a
// read-modify-write here.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore creates a PGStore over an open backend connection.
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

const partnershipColumns = `id, adhd_user_id, partner_id, status, invite_code, invite_sent_by,
	settings, stats, created_at, updated_at, accepted_at, terminated_at`

func (s *PGStore) GenerateInviteCode(ctx context.Context) (string, error) {
	var code string
	if err := s.db.GetContext(ctx, &code, `SELECT generate_invite_code()`); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return code, nil
}

func (s *PGStore) Insert(ctx context.Context, row Row) (Row, error) {
	var stored Row
	err := s.db.GetContext(ctx, &stored, `
		INSERT INTO partnerships (`+partnershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+partnershipColumns,
		row.ID, row.ADHDUserID, row.PartnerID, row.Status, row.InviteCode,
		row.InviteSentBy, row.Settings, row.Stats, row.CreatedAt, row.UpdatedAt,
		row.AcceptedAt, row.TerminatedAt,
	)
	if err != nil {
		return Row{}, fmt.Errorf("insert partnership: %w", err)
	}
	return stored, nil
}

func (s *PGStore) Update(ctx context.Context, row Row) (Row, error) {
	var stored Row
	err := s.db.GetContext(ctx, &stored, `
		UPDATE partnerships
		SET adhd_user_id = $2, partner_id = $3, status = $4, settings = $5,
			stats = $6, updated_at = $7, accepted_at = $8, terminated_at = $9
		WHERE id = $1
		RETURNING `+partnershipColumns,
		row.ID, row.ADHDUserID, row.PartnerID, row.Status, row.Settings,
		row.Stats, row.UpdatedAt, row.AcceptedAt, row.TerminatedAt,
	)
	if err != nil {
		return Row{}, fmt.Errorf("update partnership %s: %w", row.ID, err)
	}
	return stored, nil
}

func (s *PGStore) GetByInviteCode(ctx context.Context, code string) (*Row, error) {
	return s.getOne(ctx, `SELECT `+partnershipColumns+` FROM partnerships WHERE invite_code = $1`, code)
}

func (s *PGStore) GetByUsers(ctx context.Context, adhdUserID, partnerID string) (*Row, error) {
	return s.getOne(ctx, `
		SELECT `+partnershipColumns+` FROM partnerships
		WHERE adhd_user_id = $1 AND partner_id = $2`,
		adhdUserID, partnerID)
}

func (s *PGStore) GetActiveForUser(ctx context.Context, userID string) (*Row, error) {
	return s.getOne(ctx, `
		SELECT `+partnershipColumns+` FROM partnerships
		WHERE status = 'active' AND (adhd_user_id = $1 OR partner_id = $1)
		ORDER BY updated_at DESC LIMIT 1`,
		userID)
}

func (s *PGStore) getOne(ctx context.Context, query string, args ...any) (*Row, error) {
	var row Row
	err := s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partnership: %w", err)
	}
	return &row, nil
}

func (s *PGStore) List(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+partnershipColumns+` FROM partnerships ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list partnerships: %w", err)
	}
	return rows, nil
}

func (s *PGStore) ListForUser(ctx context.Context, userID string) ([]Row, error) {
	var rows []Row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+partnershipColumns+` FROM partnerships
		WHERE adhd_user_id = $1 OR partner_id = $1
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list partnerships for %s: %w", userID, err)
	}
	return rows, nil
}

func (s *PGStore) SetUserPartner(ctx context.Context, userID, partnerID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET partner_id = $2, updated_at = now() WHERE id = $1`,
		userID, partnerID)
	if err != nil {
		return fmt.Errorf("set partner for user %s: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set partner for user %s: no such user", userID)
	}
	return nil
}

func (s *PGStore) IncrementStat(ctx context.Context, id, key string, by int) error {
	if _, err := s.db.ExecContext(ctx, `SELECT increment_partnership_stat($1, $2, $3)`, id, key, by); err != nil {
		return fmt.Errorf("increment stat %q on %s: %w", key, id, err)
	}
	return nil
}

func (s *PGStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM partnerships`); err != nil {
		return fmt.Errorf("clear partnerships: %w", err)
	}
	return nil
}
