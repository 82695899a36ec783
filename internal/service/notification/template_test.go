package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meistersol/bookingbot/pkg/apperror"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	body := Render("Hello [User_Name], see you on [Appointment_Date] at [Appointment_Time].", map[string]string{
		"User_Name":        "Asha",
		"Appointment_Date": "2026-09-15",
		"Appointment_Time": "10:30:00",
	})
	assert.Equal(t, "Hello Asha, see you on 2026-09-15 at 10:30:00.", body)
}

func TestRenderMissingKeysBecomeEmpty(t *testing.T) {
	body := Render("Hi [User_Name], your [Appointment_Type] is booked.", map[string]string{
		"User_Name": "Asha",
	})
	assert.Equal(t, "Hi Asha, your  is booked.", body)
	assert.NotContains(t, body, "[")
}

func TestRenderNilValues(t *testing.T) {
	assert.Equal(t, "Hello , welcome.", Render("Hello [User_Name], welcome.", nil))
}

type stubTemplateRepo struct {
	bodies map[string]string
	calls  int
}

func (s *stubTemplateRepo) Get(_ context.Context, clientID int64, name string) (string, error) {
	s.calls++
	body, ok := s.bodies[name]
	if !ok {
		return "", apperror.NotFound("template", nil)
	}
	return body, nil
}

func TestTemplateStoreCachesReads(t *testing.T) {
	repo := &stubTemplateRepo{bodies: map[string]string{
		"APPOINTMENT_CONFIRMATION_DIRECT": "Confirmed for [User_Name]",
	}}
	store := NewTemplateStore(repo, time.Minute)

	for i := 0; i < 3; i++ {
		body, err := store.Get(context.Background(), 1, "APPOINTMENT_CONFIRMATION_DIRECT")
		require.NoError(t, err)
		assert.Equal(t, "Confirmed for [User_Name]", body)
	}
	assert.Equal(t, 1, repo.calls)
}

func TestTemplateStoreMissingTemplate(t *testing.T) {
	store := NewTemplateStore(&stubTemplateRepo{}, time.Minute)

	_, err := store.Get(context.Background(), 1, "NOPE")
	assert.True(t, apperror.IsNotFound(err))
}

func TestRenderTemplate(t *testing.T) {
	repo := &stubTemplateRepo{bodies: map[string]string{
		"APPOINTMENT_CANCELLATION": "Cancelled: [Appointment_Date] [Missing]",
	}}
	store := NewTemplateStore(repo, time.Minute)

	body, err := store.RenderTemplate(context.Background(), 1, "APPOINTMENT_CANCELLATION", map[string]string{
		"Appointment_Date": "2026-09-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cancelled: 2026-09-15 ", body)
}
