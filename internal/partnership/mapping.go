package partnership

import "github.com/dukerupert/focusloop/internal/model"

// toRow and fromRow are the only two places the table schema meets the
// domain shape. Every persisted column maps to exactly one domain field,
// and nullable references stay nullable in both directions.

func toRow(p model.Partnership) Row {
	return Row{
		ID:           p.ID,
		ADHDUserID:   p.ADHDUserID,
		PartnerID:    p.PartnerID,
		Status:       string(p.Status),
		InviteCode:   p.InviteCode,
		InviteSentBy: p.InviteSentBy,
		Settings:     SettingsColumn(p.Settings),
		Stats:        StatsColumn(p.Stats),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		AcceptedAt:   p.AcceptedAt,
		TerminatedAt: p.TerminatedAt,
	}
}

func fromRow(r Row) model.Partnership {
	stats := map[string]int(r.Stats)
	if stats == nil {
		stats = make(map[string]int)
	}
	return model.Partnership{
		ID:           r.ID,
		ADHDUserID:   r.ADHDUserID,
		PartnerID:    r.PartnerID,
		Status:       model.PartnershipStatus(r.Status),
		InviteCode:   r.InviteCode,
		InviteSentBy: r.InviteSentBy,
		Settings:     model.PartnershipSettings(r.Settings),
		Stats:        stats,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		AcceptedAt:   r.AcceptedAt,
		TerminatedAt: r.TerminatedAt,
	}
}

func fromRows(rows []Row) []model.Partnership {
	out := make([]model.Partnership, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out
}
