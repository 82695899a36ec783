package conversation

import (
	"context"

	"github.com/meistersol/bookingbot/internal/model"
)

// PaymentPaid reacts to a transaction reaching paid: records the payment on
// the appointment, tells the user and re-offers the Finalize step.
func (s *Service) PaymentPaid(ctx context.Context, txn *model.Transaction) {
	appt, err := s.appts.Get(ctx, txn.AppointmentID)
	if err != nil {
		s.logger.Error(err, "paid hook: appointment lookup failed", map[string]interface{}{
			"appointment_id": txn.AppointmentID,
		})
		return
	}
	if err := s.appts.PatchField(ctx, appt.ID, "Payment_Status", "Paid", ""); err != nil {
		s.logger.Error(err, "paid hook: failed to record payment status", map[string]interface{}{
			"appointment_id": appt.ID,
		})
		return
	}

	user, err := s.users.Get(ctx, appt.UserID)
	if err != nil {
		s.logger.Error(err, "paid hook: user lookup failed", map[string]interface{}{
			"appointment_id": appt.ID,
		})
		return
	}
	to := user.ContactNumber

	sess, found, err := s.sessions.Load(ctx, to, appt.ID)
	if err == nil && found && sess.FinalizeMenuID != 0 {
		token := ReplyToken{
			ClientID:      appt.ClientID,
			MenuID:        sess.FinalizeMenuID,
			ItemID:        finalizePrefix + txn.GatewayID,
			AppointmentID: appt.ID,
		}
		if err := s.gateway.SendButtons(ctx, to,
			"Payment received! Press Finalize to confirm your appointment.",
			[]model.ReplyOption{{ID: s.codec.Encode(token), Title: replyFinalize}}); err != nil {
			s.logger.Error(err, "paid hook: failed to send finalize prompt", map[string]interface{}{
				"appointment_id": appt.ID,
			})
		}
		return
	}

	if err := s.gateway.SendText(ctx, to, "Payment received! Your appointment will be confirmed shortly."); err != nil {
		s.logger.Error(err, "paid hook: failed to notify user", map[string]interface{}{
			"appointment_id": appt.ID,
		})
	}
}

// PaymentExpired tells the user the payment window closed.
func (s *Service) PaymentExpired(ctx context.Context, txn *model.Transaction) {
	appt, err := s.appts.Get(ctx, txn.AppointmentID)
	if err != nil {
		s.logger.Error(err, "expired hook: appointment lookup failed", map[string]interface{}{
			"appointment_id": txn.AppointmentID,
		})
		return
	}
	user, err := s.users.Get(ctx, appt.UserID)
	if err != nil {
		s.logger.Error(err, "expired hook: user lookup failed", map[string]interface{}{
			"appointment_id": appt.ID,
		})
		return
	}
	if err := s.gateway.SendText(ctx, user.ContactNumber,
		"Your payment window has expired. Say hi to start a new booking."); err != nil {
		s.logger.Error(err, "expired hook: failed to notify user", map[string]interface{}{
			"appointment_id": appt.ID,
		})
	}
}
