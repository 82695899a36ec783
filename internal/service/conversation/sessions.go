package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/meistersol/bookingbot/internal/cache"
)

const sessionTTL = 24 * time.Hour

// Session is the server-held conversation context for one user and
// appointment. It is the source of truth; the reply token is an
// integrity-checked pointer that can rebuild a session lost to restart.
type Session struct {
	ClientID      int64  `json:"client_id"`
	MenuID        int64  `json:"menu_id"`
	ItemID        string `json:"item_id"`
	AppointmentID int64  `json:"appointment_id"`
	PrevClientID  int64  `json:"prev_client_id"`
	PrevMenuID    int64  `json:"prev_menu_id"`
	PrevSelectID  string `json:"prev_select_id"`

	// Menu pointers remembered so asynchronous events and conflict retries
	// can re-render the right listing.
	DatesMenuID    int64 `json:"dates_menu_id,omitempty"`
	TimesMenuID    int64 `json:"times_menu_id,omitempty"`
	FinalizeMenuID int64 `json:"finalize_menu_id,omitempty"`
}

func sessionFromToken(t ReplyToken) Session {
	return Session{
		ClientID:      t.ClientID,
		MenuID:        t.MenuID,
		ItemID:        t.ItemID,
		AppointmentID: t.AppointmentID,
		PrevClientID:  t.PrevClientID,
		PrevMenuID:    t.PrevMenuID,
		PrevSelectID:  t.PrevSelectID,
	}
}

// SessionStore persists conversation context in redis, keyed by user contact
// and appointment id.
type SessionStore struct {
	redis *cache.Redis
}

func NewSessionStore(redis *cache.Redis) *SessionStore {
	return &SessionStore{redis: redis}
}

func (s *SessionStore) Save(ctx context.Context, contact string, session Session) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.SetJSON(ctx, sessionKey(contact, session.AppointmentID), session, sessionTTL)
}

// Load returns the stored session, or false when none exists (e.g. after a
// restart or TTL expiry).
func (s *SessionStore) Load(ctx context.Context, contact string, appointmentID int64) (Session, bool, error) {
	if s.redis == nil {
		return Session{}, false, nil
	}
	var session Session
	found, err := s.redis.GetJSON(ctx, sessionKey(contact, appointmentID), &session)
	if err != nil {
		return Session{}, false, err
	}
	return session, found, nil
}

func (s *SessionStore) Delete(ctx context.Context, contact string, appointmentID int64) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Delete(ctx, sessionKey(contact, appointmentID))
}

func sessionKey(contact string, appointmentID int64) string {
	return fmt.Sprintf("session:%s:%d", contact, appointmentID)
}
