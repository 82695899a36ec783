package notification

import (
	"context"
	"fmt"
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/meistersol/bookingbot/internal/repository"
)

// Template names the conversation and payment flows render.
const (
	TemplateConfirmationDirect = "APPOINTMENT_CONFIRMATION_DIRECT"
	TemplateConfirmationTele   = "APPOINTMENT_CONFIRMATION_TELE"
	TemplateCancellation       = "APPOINTMENT_CANCELLATION"
	TemplateReschedule         = "APPOINTMENT_RESCHEDULE"
)

var placeholderPattern = regexp.MustCompile(`\[([A-Za-z_]+)\]`)

// Render substitutes [Placeholder] markers from values. Missing keys render as
// empty strings so a half-collected state never leaks raw markers to the user.
func Render(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		return values[key]
	})
}

// TemplateStore reads persisted templates through a short-lived in-process
// cache. Templates are read on nearly every finalize, so the cache keeps the
// hot path off the database.
type TemplateStore struct {
	repo  repository.TemplateRepository
	cache *gocache.Cache
}

func NewTemplateStore(repo repository.TemplateRepository, ttl time.Duration) *TemplateStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TemplateStore{
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *TemplateStore) Get(ctx context.Context, clientID int64, name string) (string, error) {
	key := cacheKey(clientID, name)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}
	body, err := s.repo.Get(ctx, clientID, name)
	if err != nil {
		return "", err
	}
	s.cache.Set(key, body, gocache.DefaultExpiration)
	return body, nil
}

// RenderTemplate loads a template and substitutes values in one step.
func (s *TemplateStore) RenderTemplate(ctx context.Context, clientID int64, name string, values map[string]string) (string, error) {
	body, err := s.Get(ctx, clientID, name)
	if err != nil {
		return "", err
	}
	return Render(body, values), nil
}

func cacheKey(clientID int64, name string) string {
	return fmt.Sprintf("%d:%s", clientID, name)
}
