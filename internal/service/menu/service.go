package menu

import (
	"context"
	"strconv"
	"time"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/internal/repository"
	"github.com/meistersol/bookingbot/pkg/apperror"
	"github.com/meistersol/bookingbot/pkg/metrics"
)

// Service resolves the options a user currently faces: static menu children
// plus the projections computed from list values, POCs and the slot ledger.
// Every projection shares the MenuOption shape so callers never distinguish a
// static option from a computed one.
type Service struct {
	menus   repository.MenuRepository
	pocs    repository.POCRepository
	slots   repository.SlotRepository
	appts   repository.AppointmentRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(menus repository.MenuRepository, pocs repository.POCRepository, slots repository.SlotRepository, appts repository.AppointmentRepository, m *metrics.Metrics) *Service {
	return &Service{
		menus:   menus,
		pocs:    pocs,
		slots:   slots,
		appts:   appts,
		metrics: m,
		now:     time.Now,
	}
}

// Resolve returns the child nodes under a parent, ordered by display order.
// A parent with no children fails with NotFound; the caller degrades that to a
// terminal "no options" message.
func (s *Service) Resolve(ctx context.Context, clientID, parentID int64, language string) ([]*model.MenuNode, error) {
	nodes, err := s.menus.Children(ctx, clientID, parentID, language)
	if err != nil {
		s.count("error")
		return nil, err
	}
	if len(nodes) == 0 {
		s.count("empty")
		return nil, apperror.NotFound("menu options", nil)
	}
	s.count("ok")
	return nodes, nil
}

// ListOptions projects client-scoped list values for a key.
func (s *Service) ListOptions(ctx context.Context, clientID, menuID int64, key, language string) ([]model.MenuOption, error) {
	return s.menus.ListOptions(ctx, clientID, menuID, key, language)
}

// ListValue returns the single value stored under a key, e.g. the greeting
// text or the welcome image URL.
func (s *Service) ListValue(ctx context.Context, clientID int64, key, language string) (string, error) {
	return s.menus.ListValue(ctx, clientID, key, language)
}

// POCOptions projects the POCs matching the department recorded on the
// in-progress appointment, narrowed by branch when the state carries one.
func (s *Service) POCOptions(ctx context.Context, clientID, menuID, appointmentID int64) ([]model.MenuOption, error) {
	state, err := s.appts.State(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return s.pocs.Options(ctx, clientID, menuID, state.Department, state.Branch)
}

// AvailableDates projects the bookable dates of one POC.
func (s *Service) AvailableDates(ctx context.Context, clientID, menuID, pocID int64) ([]model.MenuOption, error) {
	return s.slots.AvailableDates(ctx, clientID, menuID, pocID, s.now())
}

// AvailableDatesForKey resolves a date listing where the selector key may be
// either an appointment kind or a POC id. A kind matches the first POC with
// that specialization; the match is persisted onto the appointment so later
// steps read a concrete POC. Keys matching no specialization are treated as a
// POC id.
func (s *Service) AvailableDatesForKey(ctx context.Context, clientID, menuID, appointmentID int64, key string) ([]model.MenuOption, error) {
	poc, err := s.pocs.FirstBySpecialization(ctx, clientID, key)
	if err == nil {
		if perr := s.appts.PatchField(ctx, appointmentID, "Poc_name", poc.Name, strconv.FormatInt(poc.ID, 10)); perr != nil {
			return nil, perr
		}
		return s.slots.AvailableDates(ctx, clientID, menuID, poc.ID, s.now())
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	pocID, perr := strconv.ParseInt(key, 10, 64)
	if perr != nil {
		return nil, apperror.NotFound("poc", perr)
	}
	return s.slots.AvailableDates(ctx, clientID, menuID, pocID, s.now())
}

// AvailableTimes projects the bookable start times for a POC on one date.
func (s *Service) AvailableTimes(ctx context.Context, clientID, menuID, pocID int64, date string) ([]model.MenuOption, error) {
	return s.slots.AvailableTimes(ctx, clientID, menuID, pocID, date, s.now())
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.MenuResolutions.WithLabelValues(status).Inc()
	}
}
