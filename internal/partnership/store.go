package partnership

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/focusloop/internal/model"
)

// Row is the partnerships table schema, shared by the Postgres store and
// the realtime change feed (which delivers rows as JSON).
type Row struct {
	ID           string         `db:"id" json:"id"`
	ADHDUserID   *string        `db:"adhd_user_id" json:"adhd_user_id"`
	PartnerID    *string        `db:"partner_id" json:"partner_id"`
	Status       string         `db:"status" json:"status"`
	InviteCode   string         `db:"invite_code" json:"invite_code"`
	InviteSentBy string         `db:"invite_sent_by" json:"invite_sent_by"`
	Settings     SettingsColumn `db:"settings" json:"settings"`
	Stats        StatsColumn    `db:"stats" json:"stats"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
	AcceptedAt   *time.Time     `db:"accepted_at" json:"accepted_at"`
	TerminatedAt *time.Time     `db:"terminated_at" json:"terminated_at"`
}

// SettingsColumn stores PartnershipSettings as jsonb.
type SettingsColumn model.PartnershipSettings

func (c SettingsColumn) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *SettingsColumn) Scan(src any) error {
	return scanJSON(src, c)
}

// StatsColumn stores the named counters as jsonb.
type StatsColumn map[string]int

func (c StatsColumn) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *StatsColumn) Scan(src any) error {
	return scanJSON(src, c)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into jsonb column", src)
	}
}

// Store is row-oriented access to the partnerships table and the two
// server-side procedures. GetBy* methods return (nil, nil) when no row
// matches; errors are reserved for query failures.
type Store interface {
	GenerateInviteCode(ctx context.Context) (string, error)
	Insert(ctx context.Context, row Row) (Row, error)
	Update(ctx context.Context, row Row) (Row, error)
	GetByInviteCode(ctx context.Context, code string) (*Row, error)
	GetByUsers(ctx context.Context, adhdUserID, partnerID string) (*Row, error)
	GetActiveForUser(ctx context.Context, userID string) (*Row, error)
	List(ctx context.Context) ([]Row, error)
	ListForUser(ctx context.Context, userID string) ([]Row, error)
	// SetUserPartner writes the partner back-reference onto a user record.
	SetUserPartner(ctx context.Context, userID, partnerID string) error
	// IncrementStat delegates to the atomic server-side increment.
	IncrementStat(ctx context.Context, id, key string, by int) error
	DeleteAll(ctx context.Context) error
}
