package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/internal/service/notification"
	"github.com/meistersol/bookingbot/pkg/apperror"
)

const (
	replyConfirm       = "Confirm"
	replyFinalize      = "Finalize"
	replyCancelRequest = "Cancel Request"

	// finalizePrefix marries the finalize shortcut to its pending
	// transaction inside the option item id.
	finalizePrefix = "Finalize*"
)

// dispatch interprets one interactive selection: persist the selection,
// execute the node's operation, present the next choice set.
func (s *Service) dispatch(ctx context.Context, token ReplyToken, msg model.InboundMessage) error {
	client, err := s.clients.Get(ctx, token.ClientID)
	if err != nil {
		return err
	}
	user, err := s.users.GetByContact(ctx, msg.From)
	if err != nil {
		return err
	}

	title := msg.Interactive.Title
	persist := !model.IsControlValue(title)

	if title == model.ControlBack {
		if token.PrevMenuID == 0 {
			return s.sendRootMenu(ctx, client, msg.From)
		}
		// Re-enter the previous node with its original selection, without
		// re-persisting anything.
		token = ReplyToken{
			ClientID:      token.ClientID,
			MenuID:        token.PrevMenuID,
			ItemID:        token.PrevSelectID,
			AppointmentID: token.AppointmentID,
		}
		persist = false
		title = ""
	}

	node, err := s.menus.Node(ctx, token.ClientID, token.MenuID, defaultLanguage)
	if err != nil {
		if apperror.IsNotFound(err) {
			return s.nothingFound(ctx, msg.From)
		}
		return err
	}

	sess, _, err := s.sessions.Load(ctx, msg.From, token.AppointmentID)
	if err != nil {
		s.logger.Warn("failed to load session", map[string]interface{}{"from": msg.From})
	}

	// The record is created the instant the first field-bearing selection
	// arrives; every later step patches into it.
	if persist && node.Action.Field != "" && token.AppointmentID == 0 {
		apptID, err := s.appts.Create(ctx, client.ID, user.ID)
		if err != nil {
			return err
		}
		token.AppointmentID = apptID
	}

	// Write-before-read: the selection itself is the mutation subsequent
	// steps read back.
	if persist && node.Action.Field != "" && token.AppointmentID != 0 {
		value, selectID := selectionValue(node.Action.Field, title, token.ItemID)
		if err := s.appts.PatchField(ctx, token.AppointmentID, node.Action.Field, value, selectID); err != nil {
			return err
		}
	}

	err = s.execute(ctx, client, user, node, token, title, sess, msg.From)
	s.countDispatch(node.Action.Op, err)
	return err
}

// execute runs one operation and sends whatever comes next.
func (s *Service) execute(ctx context.Context, client *model.Client, user *model.User, node *model.MenuNode, token ReplyToken, title string, sess Session, to string) error {
	switch node.Action.Op {
	case model.OpList:
		next := s.nextMenuID(ctx, node)
		options, err := s.resolver.ListOptions(ctx, client.ID, next, node.Action.Arg, defaultLanguage)
		if err != nil {
			return err
		}
		return s.presentOptions(ctx, client, to, node, token, options, sess)

	case model.OpPOC:
		next := s.nextMenuID(ctx, node)
		options, err := s.resolver.POCOptions(ctx, client.ID, next, token.AppointmentID)
		if err != nil {
			return err
		}
		return s.presentOptions(ctx, client, to, node, token, options, sess)

	case model.OpDatesDirect:
		next := s.nextMenuID(ctx, node)
		options, err := s.resolver.AvailableDatesForKey(ctx, client.ID, next, token.AppointmentID, token.ItemID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		sess.DatesMenuID = next
		return s.presentOptions(ctx, client, to, node, token, options, sess)

	case model.OpDatesFromKind:
		state, err := s.appts.State(ctx, token.AppointmentID)
		if err != nil {
			return err
		}
		next := s.nextMenuID(ctx, node)
		options, err := s.resolver.AvailableDatesForKey(ctx, client.ID, next, token.AppointmentID, state.Kind)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		sess.DatesMenuID = next
		return s.presentOptions(ctx, client, to, node, token, options, sess)

	case model.OpTimesDirect:
		state, err := s.appts.State(ctx, token.AppointmentID)
		if err != nil {
			return err
		}
		next := s.nextMenuID(ctx, node)
		options, err := s.resolver.AvailableTimes(ctx, client.ID, next, state.POCID, state.Date)
		if err != nil {
			return err
		}
		sess.TimesMenuID = next
		return s.presentOptions(ctx, client, to, node, token, options, sess)

	case model.OpConfirm:
		return s.confirm(ctx, client, user, node, token, sess, to, false)

	case model.OpConfirmReschedule:
		return s.confirm(ctx, client, user, node, token, sess, to, true)

	case model.OpPayment:
		return s.payment(ctx, client, user, node, token, title, sess, to)

	case model.OpFinalize:
		return s.finalize(ctx, client, user, node, token, title, sess, to, false)

	case model.OpFinalizeReschedule:
		return s.finalize(ctx, client, user, node, token, title, sess, to, true)

	case model.OpAppointments:
		return s.listAppointments(ctx, client, user, node, token, to, model.ControlCancel)

	case model.OpAppointmentsResched:
		return s.listAppointments(ctx, client, user, node, token, to, model.ControlReschedule)

	case model.OpFinalizeCancel:
		if title != model.ControlCancel {
			return s.nothingFound(ctx, to)
		}
		return s.cancelAppointment(ctx, client, token, to)

	case model.OpRescheduleDate:
		if title != model.ControlReschedule {
			return s.nothingFound(ctx, to)
		}
		return s.rescheduleDate(ctx, client, user, node, token, sess, to)

	default:
		// Plain submenu: present the node's children, or its header message
		// when the node is a leaf.
		nodes, err := s.resolver.Resolve(ctx, client.ID, node.ID, defaultLanguage)
		if err != nil {
			if apperror.IsNotFound(err) {
				if node.HeaderMessage != "" {
					return s.gateway.SendText(ctx, to, node.HeaderMessage)
				}
				return s.nothingFound(ctx, to)
			}
			return err
		}
		options := make([]model.MenuOption, 0, len(nodes))
		for _, child := range nodes {
			options = append(options, model.MenuOption{
				ClientID: client.ID,
				MenuID:   child.ID,
				ItemID:   strconv.FormatInt(child.ID, 10),
				Label:    child.Name,
			})
		}
		return s.presentOptions(ctx, client, to, node, token, options, sess)
	}
}

// confirm renders the booking summary and offers the node's children
// (Confirm / Cancel Request). The reschedule variant first copies the
// state-held date and time into the typed columns of the new record.
func (s *Service) confirm(ctx context.Context, client *model.Client, user *model.User, node *model.MenuNode, token ReplyToken, sess Session, to string, reschedule bool) error {
	state, err := s.appts.State(ctx, token.AppointmentID)
	if err != nil {
		return err
	}

	if reschedule {
		if state.Date != "" {
			if err := s.appts.PatchField(ctx, token.AppointmentID, "Appointment_Date", state.Date, ""); err != nil {
				return err
			}
		}
		if state.Time != "" {
			if err := s.appts.PatchField(ctx, token.AppointmentID, "Appointment_Time", state.Time, ""); err != nil {
				return err
			}
		}
	}

	values := s.placeholderValues(state, user, nil)
	body := node.HeaderMessage
	if node.Action.Arg != "" {
		if rendered, err := s.templates.RenderTemplate(ctx, client.ID, node.Action.Arg, values); err == nil {
			body = rendered
		}
	}
	if body == "" {
		body = fmt.Sprintf("Please confirm your appointment with %s on %s at %s.",
			state.POCName, state.Date, state.Time)
	}

	children, err := s.resolver.Resolve(ctx, client.ID, node.ID, defaultLanguage)
	if err != nil {
		if apperror.IsNotFound(err) {
			return s.gateway.SendText(ctx, to, body)
		}
		return err
	}

	options := make([]model.ReplyOption, 0, len(children))
	for _, child := range children {
		t := ReplyToken{
			ClientID:      client.ID,
			MenuID:        child.ID,
			ItemID:        strconv.FormatInt(child.ID, 10),
			AppointmentID: token.AppointmentID,
			PrevClientID:  client.ID,
			PrevMenuID:    node.ID,
			PrevSelectID:  token.ItemID,
		}
		options = append(options, model.ReplyOption{ID: s.codec.Encode(t), Title: child.Name})
	}

	sess = s.pointerSession(sess, token, node)
	if err := s.sessions.Save(ctx, to, sess); err != nil {
		s.logger.Warn("failed to save session", map[string]interface{}{"to": to})
	}
	return s.gateway.SendButtons(ctx, to, body, options)
}

// payment creates the payment link and, for non-tele kinds, the pay-at-counter
// shortcut carrying the pending transaction id.
func (s *Service) payment(ctx context.Context, client *model.Client, user *model.User, node *model.MenuNode, token ReplyToken, title string, sess Session, to string) error {
	if title != replyConfirm && title != "" {
		return s.cancelRequest(ctx, client, to)
	}

	state, err := s.appts.State(ctx, token.AppointmentID)
	if err != nil {
		return err
	}
	poc, err := s.pocs.Get(ctx, state.POCID)
	if err != nil {
		return err
	}

	// Free consultations skip the gateway entirely.
	if poc.Fee <= 0 {
		return s.finalize(ctx, client, user, node, token, replyFinalize, sess, to, false)
	}

	link, err := s.payments.CreateLink(ctx, token.AppointmentID, poc, user)
	if err != nil {
		s.logger.Error(err, "failed to create payment link", map[string]interface{}{
			"appointment_id": token.AppointmentID,
		})
		return s.gateway.SendText(ctx, to, "We could not start the payment right now. Please try again in a moment.")
	}

	if err := s.gateway.SendText(ctx, to, fmt.Sprintf(
		"Please complete your payment of ₹%d within %d minutes:\n%s",
		poc.Fee, int(s.payments.LinkExpiry().Minutes()), link.ShortURL)); err != nil {
		return err
	}

	// Tele consultations must be paid online; everyone else may finalize now
	// and pay at the counter.
	if state.Kind != model.KindTele {
		finalizeMenu := s.nextMenuID(ctx, node)
		t := ReplyToken{
			ClientID:      client.ID,
			MenuID:        finalizeMenu,
			ItemID:        finalizePrefix + link.GatewayID,
			AppointmentID: token.AppointmentID,
			PrevClientID:  client.ID,
			PrevMenuID:    node.ID,
			PrevSelectID:  token.ItemID,
		}
		sess.FinalizeMenuID = finalizeMenu
		sess = s.pointerSession(sess, token, node)
		if err := s.sessions.Save(ctx, to, sess); err != nil {
			s.logger.Warn("failed to save session", map[string]interface{}{"to": to})
		}
		return s.gateway.SendButtons(ctx, to, "Or finalize now and pay at the counter.",
			[]model.ReplyOption{{ID: s.codec.Encode(t), Title: replyFinalize}})
	}

	sess = s.pointerSession(sess, token, node)
	if err := s.sessions.Save(ctx, to, sess); err != nil {
		s.logger.Warn("failed to save session", map[string]interface{}{"to": to})
	}
	return nil
}

// finalize confirms the appointment: pay-later bookkeeping, slot consumption
// for non-emergency kinds, user message, POC notification and email.
func (s *Service) finalize(ctx context.Context, client *model.Client, user *model.User, node *model.MenuNode, token ReplyToken, title string, sess Session, to string, reschedule bool) error {
	if title != replyConfirm && title != replyFinalize && title != "" {
		return s.cancelRequest(ctx, client, to)
	}

	// A finalize shortcut carries its pending transaction; pressing it means
	// pay at the counter.
	if strings.HasPrefix(token.ItemID, finalizePrefix) {
		gatewayID := strings.TrimPrefix(token.ItemID, finalizePrefix)
		moved, err := s.payments.MarkPayLater(ctx, gatewayID)
		if err != nil {
			return err
		}
		if moved {
			if err := s.appts.PatchField(ctx, token.AppointmentID, "Payment_Status", "Pay_later", ""); err != nil {
				return err
			}
		}
	}

	state, err := s.appts.State(ctx, token.AppointmentID)
	if err != nil {
		return err
	}

	// Emergencies bypass the ledger. A reschedule always consumes for its new
	// record; the old record released its unit when the reschedule started.
	if state.Kind != model.KindEmergency && !state.SlotConsumed {
		reserved, err := s.slots.Reserve(ctx, state.POCID, state.Date, state.Time)
		if err != nil {
			return err
		}
		if !reserved {
			if s.metrics != nil {
				s.metrics.SlotConflicts.Inc()
			}
			return s.slotConflict(ctx, client, token, state, sess, to)
		}
		if s.metrics != nil {
			s.metrics.SlotReservations.Inc()
		}
		if err := s.appts.PatchJSON(ctx, token.AppointmentID, "Slot_Consumed", true); err != nil {
			return err
		}
	}

	if err := s.appts.PatchField(ctx, token.AppointmentID, "Status", string(model.AppointmentStatusConfirmed), ""); err != nil {
		return err
	}
	if err := s.appts.PatchJSON(ctx, token.AppointmentID, "Finalize_Status", "Finalized"); err != nil {
		return err
	}

	poc, pocErr := s.pocs.Get(ctx, state.POCID)
	values := s.placeholderValues(state, user, poc)

	templateName := notification.TemplateConfirmationDirect
	if state.Kind == model.KindTele {
		templateName = notification.TemplateConfirmationTele
	}
	if reschedule && node.Action.Arg != "" {
		templateName = node.Action.Arg
	}

	body, err := s.templates.RenderTemplate(ctx, client.ID, templateName, values)
	if err != nil {
		body = fmt.Sprintf("Your appointment with %s on %s at %s is confirmed.",
			state.POCName, state.Date, state.Time)
	}
	if err := s.gateway.SendText(ctx, to, body); err != nil {
		return err
	}

	if pocErr == nil {
		if err := s.notifier.NotifyPOC(ctx, poc, templateName, values); err != nil {
			s.logger.Error(err, "poc notification failed", map[string]interface{}{
				"appointment_id": token.AppointmentID,
			})
		}
	}
	if err := s.notifier.SendConfirmationEmail(ctx, client, user, "Appointment confirmed", body); err != nil {
		s.logger.Error(err, "confirmation email failed", map[string]interface{}{
			"appointment_id": token.AppointmentID,
		})
	}

	if err := s.sessions.Delete(ctx, to, token.AppointmentID); err != nil {
		s.logger.Warn("failed to delete session", map[string]interface{}{"to": to})
	}
	return nil
}

// slotConflict tells the user the slot was taken and re-offers the time list
// when the session still knows which menu renders it.
func (s *Service) slotConflict(ctx context.Context, client *model.Client, token ReplyToken, state model.AppointmentState, sess Session, to string) error {
	if err := s.gateway.SendText(ctx, to, "Sorry, that slot is no longer available."); err != nil {
		return err
	}
	if sess.TimesMenuID == 0 || state.Date == "" {
		return nil
	}
	options, err := s.resolver.AvailableTimes(ctx, client.ID, sess.TimesMenuID, state.POCID, state.Date)
	if err != nil || len(options) == 0 {
		return err
	}
	replies := make([]model.ReplyOption, 0, len(options))
	for _, opt := range options {
		t := ReplyToken{
			ClientID:      client.ID,
			MenuID:        opt.MenuID,
			ItemID:        opt.ItemID,
			AppointmentID: token.AppointmentID,
			PrevClientID:  client.ID,
			PrevMenuID:    token.MenuID,
			PrevSelectID:  token.ItemID,
		}
		replies = append(replies, model.ReplyOption{ID: s.codec.Encode(t), Title: opt.Label})
	}
	return s.gateway.SendList(ctx, to, "", "Please pick another time.", "Times", replies)
}

// listAppointments offers one cancel-or-back (resp. reschedule-or-back)
// choice per upcoming appointment.
func (s *Service) listAppointments(ctx context.Context, client *model.Client, user *model.User, node *model.MenuNode, token ReplyToken, to string, actionTitle string) error {
	appts, err := s.appts.ActiveForUser(ctx, user.ID, s.now())
	if err != nil {
		return err
	}
	if len(appts) == 0 {
		return s.gateway.SendText(ctx, to, "You have no upcoming appointments.")
	}

	next := s.nextMenuID(ctx, node)
	for _, appt := range appts {
		state, err := appt.State()
		if err != nil {
			return err
		}
		body := fmt.Sprintf("%s with %s on %s at %s",
			valueOr(appt.Kind, "Appointment"), state.POCName,
			valueOr(appt.Date, state.Date), valueOr(appt.Time, state.Time))

		actionToken := ReplyToken{
			ClientID:      client.ID,
			MenuID:        next,
			ItemID:        strconv.FormatInt(appt.ID, 10),
			AppointmentID: appt.ID,
			PrevClientID:  client.ID,
			PrevMenuID:    node.ID,
			PrevSelectID:  token.ItemID,
		}
		backToken := actionToken
		backToken.ItemID = model.ControlBack

		options := []model.ReplyOption{
			{ID: s.codec.Encode(actionToken), Title: actionTitle},
			{ID: s.codec.Encode(backToken), Title: model.ControlBack},
		}
		if err := s.gateway.SendButtons(ctx, to, body, options); err != nil {
			return err
		}
	}
	return nil
}

// cancelAppointment closes the record and gives its slot unit back, guarded so
// a reservation is released at most once.
func (s *Service) cancelAppointment(ctx context.Context, client *model.Client, token ReplyToken, to string) error {
	state, err := s.appts.State(ctx, token.AppointmentID)
	if err != nil {
		return err
	}

	if err := s.releaseSlot(ctx, token.AppointmentID, state); err != nil {
		return err
	}
	if err := s.appts.SetStatusInactive(ctx, token.AppointmentID, model.AppointmentStatusCancelled); err != nil {
		return err
	}

	if poc, err := s.pocs.Get(ctx, state.POCID); err == nil {
		values := s.placeholderValues(state, nil, poc)
		if err := s.notifier.NotifyPOC(ctx, poc, notification.TemplateCancellation, values); err != nil {
			s.logger.Error(err, "poc cancellation notification failed", map[string]interface{}{
				"appointment_id": token.AppointmentID,
			})
		}
	}

	if err := s.sessions.Delete(ctx, to, token.AppointmentID); err != nil {
		s.logger.Warn("failed to delete session", map[string]interface{}{"to": to})
	}
	return s.gateway.SendText(ctx, to, "Your appointment has been cancelled. Say hi whenever you want to book again.")
}

// rescheduleDate supersedes the old record with a fresh one seeded from its
// kind and POC, then immediately re-enters the date listing for the new
// record.
func (s *Service) rescheduleDate(ctx context.Context, client *model.Client, user *model.User, node *model.MenuNode, token ReplyToken, sess Session, to string) error {
	oldState, err := s.appts.State(ctx, token.AppointmentID)
	if err != nil {
		return err
	}

	if err := s.releaseSlot(ctx, token.AppointmentID, oldState); err != nil {
		return err
	}
	if err := s.appts.SetStatusInactive(ctx, token.AppointmentID, model.AppointmentStatusRescheduled); err != nil {
		return err
	}

	if poc, err := s.pocs.Get(ctx, oldState.POCID); err == nil {
		values := s.placeholderValues(oldState, user, poc)
		if err := s.notifier.NotifyPOC(ctx, poc, notification.TemplateReschedule, values); err != nil {
			s.logger.Error(err, "poc reschedule notification failed", map[string]interface{}{
				"appointment_id": token.AppointmentID,
			})
		}
	}

	newID, err := s.appts.Create(ctx, client.ID, user.ID)
	if err != nil {
		return err
	}
	if oldState.Kind != "" {
		if err := s.appts.PatchField(ctx, newID, "Appointment_Type", oldState.Kind, ""); err != nil {
			return err
		}
	}
	if oldState.POCID != 0 {
		if err := s.appts.PatchField(ctx, newID, "Poc_name", oldState.POCName, strconv.FormatInt(oldState.POCID, 10)); err != nil {
			return err
		}
	}

	next := s.nextMenuID(ctx, node)
	options, err := s.resolver.AvailableDates(ctx, client.ID, next, oldState.POCID)
	if err != nil {
		return err
	}

	newToken := token
	newToken.AppointmentID = newID
	sess.AppointmentID = newID
	sess.DatesMenuID = next
	return s.presentOptions(ctx, client, to, node, newToken, options, sess)
}

// releaseSlot gives the reserved unit back exactly once, keyed by the state
// snapshot rather than the live columns.
func (s *Service) releaseSlot(ctx context.Context, appointmentID int64, state model.AppointmentState) error {
	if !state.SlotConsumed || state.SlotReleased {
		return nil
	}
	if err := s.slots.Release(ctx, state.POCID, state.Date, state.Time); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SlotReleases.Inc()
	}
	return s.appts.PatchJSON(ctx, appointmentID, "Slot_Released", true)
}

// cancelRequest ends the current flow without touching the record.
func (s *Service) cancelRequest(ctx context.Context, client *model.Client, to string) error {
	body, err := s.templates.RenderTemplate(ctx, client.ID, "CANCEL_REQUEST", nil)
	if err != nil {
		body = "No problem, your request has been cancelled. Say hi to start over."
	}
	return s.gateway.SendText(ctx, to, body)
}

// presentOptions renders computed or static options as the next choice set,
// appends the Back control when the client enables it, and records the
// pointer session.
func (s *Service) presentOptions(ctx context.Context, client *model.Client, to string, node *model.MenuNode, token ReplyToken, options []model.MenuOption, sess Session) error {
	if len(options) == 0 {
		return s.nothingFound(ctx, to)
	}

	replies := make([]model.ReplyOption, 0, len(options)+1)
	for _, opt := range options {
		apptID := token.AppointmentID
		if opt.AppointmentID != 0 {
			apptID = opt.AppointmentID
		}
		t := ReplyToken{
			ClientID:      client.ID,
			MenuID:        opt.MenuID,
			ItemID:        opt.ItemID,
			AppointmentID: apptID,
			PrevClientID:  client.ID,
			PrevMenuID:    node.ID,
			PrevSelectID:  token.ItemID,
		}
		replies = append(replies, model.ReplyOption{ID: s.codec.Encode(t), Title: opt.Label})
	}

	if client.Settings.BackButton && token.PrevMenuID != 0 && len(replies) < 10 {
		backToken := ReplyToken{
			ClientID:      client.ID,
			MenuID:        node.ID,
			ItemID:        token.ItemID,
			AppointmentID: token.AppointmentID,
			PrevClientID:  token.PrevClientID,
			PrevMenuID:    token.PrevMenuID,
			PrevSelectID:  token.PrevSelectID,
		}
		replies = append(replies, model.ReplyOption{ID: s.codec.Encode(backToken), Title: model.ControlBack})
	}

	sess = s.pointerSession(sess, token, node)
	if err := s.sessions.Save(ctx, to, sess); err != nil {
		s.logger.Warn("failed to save session", map[string]interface{}{"to": to})
	}

	body := node.HeaderMessage
	if body == "" {
		body = "Please choose an option."
	}
	return s.gateway.SendList(ctx, to, "", body, "Select", replies)
}

// pointerSession carries the current selection into the stored context.
func (s *Service) pointerSession(sess Session, token ReplyToken, node *model.MenuNode) Session {
	sess.ClientID = token.ClientID
	sess.MenuID = node.ID
	sess.ItemID = token.ItemID
	sess.AppointmentID = token.AppointmentID
	sess.PrevClientID = token.PrevClientID
	sess.PrevMenuID = token.PrevMenuID
	sess.PrevSelectID = token.PrevSelectID
	return sess
}

// nextMenuID is the node that will process selections from this node's
// computed options: its first child, or the node itself when it is a leaf.
func (s *Service) nextMenuID(ctx context.Context, node *model.MenuNode) int64 {
	children, err := s.menus.Children(ctx, node.ClientID, node.ID, defaultLanguage)
	if err != nil || len(children) == 0 {
		return node.ID
	}
	return children[0].ID
}

func (s *Service) nothingFound(ctx context.Context, to string) error {
	return s.gateway.SendText(ctx, to, "Sorry, nothing was found. Say hi to start over.")
}

// placeholderValues merges the state snapshot with the user profile and POC
// metadata for template substitution.
func (s *Service) placeholderValues(state model.AppointmentState, user *model.User, poc *model.POC) map[string]string {
	values := state.Placeholders()
	if user != nil {
		values["User_Name"] = valueOr(user.Name, "")
		values["User_Email"] = valueOr(user.Email, "")
		values["User_Location"] = valueOr(user.Location, "")
	}
	if poc != nil {
		values["Meet_Link"] = poc.MeetLink
		values["Fee"] = strconv.FormatInt(poc.Fee, 10)
	}
	return values
}

// selectionValue derives what gets persisted for a selection. Date and time
// selections carry display labels as titles; the canonical values ride in the
// item id.
func selectionValue(field, title, itemID string) (value, selectID string) {
	switch field {
	case "Appointment_Date":
		if len(itemID) >= len(model.DateLayout) {
			return itemID[len(itemID)-len(model.DateLayout):], itemID
		}
	case "Appointment_Time":
		if len(itemID) >= len(model.TimeLayout) {
			return itemID[len(itemID)-len(model.TimeLayout):], itemID
		}
	}
	return title, itemID
}

func (s *Service) countDispatch(op model.ActionOp, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	name := string(op)
	if name == "" {
		name = "MENU"
	}
	s.metrics.ActionDispatches.WithLabelValues(name, status).Inc()
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
