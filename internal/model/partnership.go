package model

import "time"

// PartnershipStatus is the lifecycle state of a partnership.
type PartnershipStatus string

const (
	PartnershipPending    PartnershipStatus = "pending"
	PartnershipActive     PartnershipStatus = "active"
	PartnershipTerminated PartnershipStatus = "terminated"
)

// PartnerRole names one side of a partnership.
type PartnerRole string

const (
	RoleADHDUser PartnerRole = "adhd_user"
	RolePartner  PartnerRole = "partner"
)

// PartnershipSettings controls what an accountability partner is allowed
// to see and how often they are nudged.
type PartnershipSettings struct {
	ShareTaskList    bool   `json:"share_task_list"`
	ShareCompletions bool   `json:"share_completions"`
	AllowNudges      bool   `json:"allow_nudges"`
	DailySummary     bool   `json:"daily_summary"`
	QuietHoursStart  string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd    string `json:"quiet_hours_end,omitempty"`
}

// Partnership links an ADHD user with an accountability partner.
// While status is pending exactly one of ADHDUserID/PartnerID is nil —
// the missing side is whoever the invite is waiting on. Both are set
// once the status transitions to active.
type Partnership struct {
	ID           string              `json:"id"`
	ADHDUserID   *string             `json:"adhd_user_id"`
	PartnerID    *string             `json:"partner_id"`
	Status       PartnershipStatus   `json:"status"`
	InviteCode   string              `json:"invite_code"`
	InviteSentBy string              `json:"invite_sent_by"`
	Settings     PartnershipSettings `json:"settings"`
	Stats        map[string]int      `json:"stats"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	AcceptedAt   *time.Time          `json:"accepted_at"`
	TerminatedAt *time.Time          `json:"terminated_at"`
}

// Complete reports whether both sides of the partnership are filled in.
func (p *Partnership) Complete() bool {
	return p.ADHDUserID != nil && p.PartnerID != nil
}

// Involves reports whether the given user is on either side.
func (p *Partnership) Involves(userID string) bool {
	if p.ADHDUserID != nil && *p.ADHDUserID == userID {
		return true
	}
	return p.PartnerID != nil && *p.PartnerID == userID
}
