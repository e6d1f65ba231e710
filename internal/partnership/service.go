// Package partnership implements the accountability-partnership
// workflow: invite codes linking an ADHD user with a partner, a
// short-lived list cache, and a live-update subscription over the
// backend change feed.
package partnership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/focusloop/internal/model"
	"github.com/dukerupert/focusloop/internal/realtime"
)

var (
	// ErrInvalidInviteCode means no partnership matches the code.
	ErrInvalidInviteCode = errors.New("invalid invite code")
	// ErrInviteAlreadyUsed means the partnership is no longer pending.
	ErrInviteAlreadyUsed = errors.New("invite already used")
	// ErrPartnershipComplete means both sides are already filled.
	// Unreachable while the pending check holds; kept as a backstop.
	ErrPartnershipComplete = errors.New("partnership already complete")
)

// Feed is the slice of the realtime client the service needs.
type Feed interface {
	Subscribe(ctx context.Context, table, filter string) (<-chan realtime.Event, error)
}

// EventKind classifies a live partnership update.
type EventKind string

const (
	EventInserted EventKind = "inserted"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
)

// Event is one live update delivered to a subscriber callback.
type Event struct {
	Kind        EventKind
	Partnership model.Partnership
}

// Service orchestrates the partnership table. It never holds
// authoritative state: every read re-fetches or serves a time-boxed
// cached copy.
type Service struct {
	store  Store
	feed   Feed
	cache  *listCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a partnership service. feed may be nil when
// realtime sync is disabled.
func NewService(store Store, feed Feed, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		feed:   feed,
		cache:  newListCache(time.Now),
		logger: logger,
		now:    time.Now,
	}
}

// CreateInvite starts a pending partnership. counterpartRole names the
// role the *invited* user will take: inviting a partner places the
// inviter on the ADHD-user side, and inviting an ADHD user places the
// inviter on the partner side.
func (s *Service) CreateInvite(ctx context.Context, invitingUserID string, counterpartRole model.PartnerRole) (*model.Partnership, error) {
	code, err := s.store.GenerateInviteCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	now := s.now().UTC()
	row := Row{
		ID:           uuid.NewString(),
		Status:       string(model.PartnershipPending),
		InviteCode:   code,
		InviteSentBy: invitingUserID,
		Settings:     defaultSettings(),
		Stats:        StatsColumn{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch counterpartRole {
	case model.RolePartner:
		row.ADHDUserID = &invitingUserID
	case model.RoleADHDUser:
		row.PartnerID = &invitingUserID
	default:
		return nil, fmt.Errorf("create invite: unknown role %q", counterpartRole)
	}

	stored, err := s.store.Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	s.cache.invalidate("")

	p := fromRow(stored)
	return &p, nil
}

// AcceptInvite completes a pending partnership. The accepting user fills
// whichever side is still open; the partnership transitions to active
// with an acceptance timestamp. Both users then get a back-reference to
// the other — best-effort, not transactional: a failed user update does
// not roll back the acceptance.
func (s *Service) AcceptInvite(ctx context.Context, inviteCode, acceptingUserID string) (*model.Partnership, error) {
	row, err := s.store.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, fmt.Errorf("accept invite: %w", err)
	}
	if row == nil {
		return nil, ErrInvalidInviteCode
	}
	if row.Status != string(model.PartnershipPending) {
		return nil, ErrInviteAlreadyUsed
	}

	switch {
	case row.ADHDUserID == nil:
		row.ADHDUserID = &acceptingUserID
	case row.PartnerID == nil:
		row.PartnerID = &acceptingUserID
	default:
		return nil, ErrPartnershipComplete
	}

	now := s.now().UTC()
	row.Status = string(model.PartnershipActive)
	row.AcceptedAt = &now
	row.UpdatedAt = now

	stored, err := s.store.Update(ctx, *row)
	if err != nil {
		return nil, fmt.Errorf("accept invite: %w", err)
	}
	s.cache.invalidate("")

	p := fromRow(stored)
	if p.Complete() {
		s.setBackReference(ctx, *p.ADHDUserID, *p.PartnerID)
		s.setBackReference(ctx, *p.PartnerID, *p.ADHDUserID)
	}
	return &p, nil
}

func (s *Service) setBackReference(ctx context.Context, userID, partnerID string) {
	if err := s.store.SetUserPartner(ctx, userID, partnerID); err != nil {
		s.logger.Warn("partner back-reference update failed",
			"code", "backref_update", "user_id", userID, "error", err)
	}
}

// GetByUsers looks up the partnership between the two given users.
// Absence and query failure both yield nil.
func (s *Service) GetByUsers(ctx context.Context, adhdUserID, partnerID string) *model.Partnership {
	row, err := s.store.GetByUsers(ctx, adhdUserID, partnerID)
	return s.collapse(row, err, "get_by_users")
}

// GetByInviteCode looks up the partnership carrying the given code.
// Absence and query failure both yield nil.
func (s *Service) GetByInviteCode(ctx context.Context, code string) *model.Partnership {
	row, err := s.store.GetByInviteCode(ctx, code)
	return s.collapse(row, err, "get_by_invite_code")
}

// GetActive returns the user's active partnership, if any. Absence and
// query failure both yield nil.
func (s *Service) GetActive(ctx context.Context, userID string) *model.Partnership {
	row, err := s.store.GetActiveForUser(ctx, userID)
	return s.collapse(row, err, "get_active")
}

func (s *Service) collapse(row *Row, err error, code string) *model.Partnership {
	if err != nil {
		s.logger.Debug("partnership lookup failed", "code", code, "error", err)
		return nil
	}
	if row == nil {
		return nil
	}
	p := fromRow(*row)
	return &p
}

// List returns all partnerships, served from cache within the window.
func (s *Service) List(ctx context.Context) ([]model.Partnership, error) {
	return s.cachedList(ctx, "all", func() ([]Row, error) {
		return s.store.List(ctx)
	})
}

// ListForUser returns the partnerships the user is on either side of,
// served from cache within the window.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.Partnership, error) {
	return s.cachedList(ctx, "user_"+userID, func() ([]Row, error) {
		return s.store.ListForUser(ctx, userID)
	})
}

func (s *Service) cachedList(ctx context.Context, key string, query func() ([]Row, error)) ([]model.Partnership, error) {
	if data, ok := s.cache.get(key); ok {
		return data, nil
	}

	rows, err := query()
	if err != nil {
		return nil, err
	}
	data := fromRows(rows)
	s.cache.put(key, data)
	return data, nil
}

// IncrementStat bumps a named counter through the atomic server-side
// procedure and invalidates the cache.
func (s *Service) IncrementStat(ctx context.Context, id, key string, by int) error {
	if by == 0 {
		by = 1
	}
	if err := s.store.IncrementStat(ctx, id, key, by); err != nil {
		return err
	}
	s.cache.invalidate("")
	return nil
}

// ClearAll deletes every partnership row. Administrative/test operation.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return err
	}
	s.cache.invalidate("")
	return nil
}

// Subscribe opens a live feed of partnership changes involving the user
// and invokes fn for each. Every event first invalidates cache entries
// whose key contains the user id. The goroutine ends when the feed
// channel closes; unsubscribing is the feed owner's responsibility.
func (s *Service) Subscribe(ctx context.Context, userID string, fn func(Event)) error {
	if s.feed == nil {
		return errors.New("realtime feed not configured")
	}

	filter := fmt.Sprintf("or(adhd_user_id.eq.%s,partner_id.eq.%s)", userID, userID)
	ch, err := s.feed.Subscribe(ctx, "partnerships", filter)
	if err != nil {
		return fmt.Errorf("subscribe to partnership updates: %w", err)
	}

	go func() {
		for ev := range ch {
			s.cache.invalidate(userID)

			kind, payload := splitEvent(ev)
			var row Row
			if err := json.Unmarshal(payload, &row); err != nil {
				s.logger.Warn("malformed partnership event", "code", "event_decode", "error", err)
				continue
			}
			fn(Event{Kind: kind, Partnership: fromRow(row)})
		}
	}()
	return nil
}

// splitEvent picks the row payload for an event: the new row for inserts
// and updates, the old row for deletes.
func splitEvent(ev realtime.Event) (EventKind, json.RawMessage) {
	switch ev.Kind {
	case realtime.EventInsert:
		return EventInserted, ev.New
	case realtime.EventDelete:
		return EventDeleted, ev.Old
	default:
		return EventUpdated, ev.New
	}
}

func defaultSettings() SettingsColumn {
	return SettingsColumn{
		ShareTaskList:    true,
		ShareCompletions: true,
		AllowNudges:      true,
		DailySummary:     false,
	}
}
