package conversation

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meistersol/bookingbot/internal/model"
	"github.com/meistersol/bookingbot/internal/repository"
	"github.com/meistersol/bookingbot/internal/service/menu"
	"github.com/meistersol/bookingbot/internal/service/notification"
	"github.com/meistersol/bookingbot/internal/service/payment"
	"github.com/meistersol/bookingbot/pkg/apperror"
	"github.com/meistersol/bookingbot/pkg/logger"
	"github.com/meistersol/bookingbot/pkg/metrics"
)

const defaultLanguage = "en"

// List keys holding client-scoped conversation fixtures.
const (
	keyGreetings    = "GREETINGS"
	keyWelcomeImage = "WELCOME_IMAGE"
)

// Gateway is the outbound message surface the conversation needs.
type Gateway interface {
	SendText(ctx context.Context, to, body string) error
	SendImage(ctx context.Context, to, link, caption string) error
	SendList(ctx context.Context, to, headerText, body, buttonLabel string, options []model.ReplyOption) error
	SendButtons(ctx context.Context, to, body string, options []model.ReplyOption) error
	SendButtonsWithImage(ctx context.Context, to, imageLink, body string, options []model.ReplyOption) error
}

// Service is the conversation state machine: it interprets each inbound
// message against the client's menu tree and routes it to the matching
// side-effecting operation.
type Service struct {
	clients   repository.ClientRepository
	users     repository.UserRepository
	menus     repository.MenuRepository
	pocs      repository.POCRepository
	slots     repository.SlotRepository
	appts     repository.AppointmentRepository
	resolver  *menu.Service
	templates *notification.TemplateStore
	notifier  *notification.Service
	payments  *payment.Service
	gateway   Gateway
	sessions  *SessionStore
	codec     *Codec
	locks     *keyedMutex
	validate  *validator.Validate
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Deps struct {
	Clients   repository.ClientRepository
	Users     repository.UserRepository
	Menus     repository.MenuRepository
	POCs      repository.POCRepository
	Slots     repository.SlotRepository
	Appts     repository.AppointmentRepository
	Resolver  *menu.Service
	Templates *notification.TemplateStore
	Notifier  *notification.Service
	Payments  *payment.Service
	Gateway   Gateway
	Sessions  *SessionStore
	Codec     *Codec
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
}

func NewService(d Deps) *Service {
	return &Service{
		clients:   d.Clients,
		users:     d.Users,
		menus:     d.Menus,
		pocs:      d.POCs,
		slots:     d.Slots,
		appts:     d.Appts,
		resolver:  d.Resolver,
		templates: d.Templates,
		notifier:  d.Notifier,
		payments:  d.Payments,
		gateway:   d.Gateway,
		sessions:  d.Sessions,
		codec:     d.Codec,
		locks:     newKeyedMutex(),
		validate:  validator.New(),
		logger:    d.Logger,
		metrics:   d.Metrics,
		now:       time.Now,
	}
}

// HandleInbound routes one normalized webhook message.
func (s *Service) HandleInbound(ctx context.Context, msg model.InboundMessage) {
	if s.metrics != nil {
		s.metrics.InboundMessages.WithLabelValues(msg.Type).Inc()
	}

	var err error
	switch msg.Type {
	case model.MessageTypeText:
		err = s.handleText(ctx, msg)
	case model.MessageTypeInteractive:
		err = s.handleInteractive(ctx, msg)
	default:
		return
	}
	if err != nil {
		s.logger.Error(err, "failed to handle inbound message", map[string]interface{}{
			"from": msg.From,
			"type": msg.Type,
		})
	}
}

// handleText drives registration. A fully registered user texting anything
// gets the greeting and the main menu.
func (s *Service) handleText(ctx context.Context, msg model.InboundMessage) error {
	client, err := s.clients.GetByContactNumber(ctx, msg.DisplayPhoneNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Warn("inbound message for unknown client number", map[string]interface{}{
				"display_number": msg.DisplayPhoneNumber,
			})
			return nil
		}
		return err
	}

	user, err := s.users.GetByContact(ctx, msg.From)
	if apperror.IsNotFound(err) {
		if err := s.users.Create(ctx, msg.From, client.ID); err != nil {
			return err
		}
		s.countRegistration("created")
		return s.gateway.SendText(ctx, msg.From, "Welcome! Please tell us your name to get started.")
	}
	if err != nil {
		return err
	}

	switch {
	case user.Name == nil:
		if err := s.users.UpdateField(ctx, msg.From, "User_Name", msg.Body); err != nil {
			return err
		}
		s.countRegistration("name")
		return s.gateway.SendText(ctx, msg.From, "Thanks! Now, what is your email address?")
	case user.Email == nil:
		if err := s.validate.Var(msg.Body, "required,email"); err != nil {
			s.countRegistration("email_invalid")
			return s.gateway.SendText(ctx, msg.From, "That does not look like a valid email address. Please try again.")
		}
		if err := s.users.UpdateField(ctx, msg.From, "User_Email", msg.Body); err != nil {
			return err
		}
		s.countRegistration("email")
		return s.gateway.SendText(ctx, msg.From, "Great. Lastly, which area are you located in?")
	case user.Location == nil:
		if err := s.users.UpdateField(ctx, msg.From, "User_Location", msg.Body); err != nil {
			return err
		}
		s.countRegistration("location")
		return s.sendWelcome(ctx, client, msg.From)
	default:
		return s.sendWelcome(ctx, client, msg.From)
	}
}

// sendWelcome sends the greeting followed by the root menu.
func (s *Service) sendWelcome(ctx context.Context, client *model.Client, to string) error {
	if greeting, err := s.resolver.ListValue(ctx, client.ID, keyGreetings, defaultLanguage); err == nil && greeting != "" {
		if err := s.gateway.SendText(ctx, to, greeting); err != nil {
			return err
		}
	}
	return s.sendRootMenu(ctx, client, to)
}

// sendRootMenu presents the children of the root node, with the client's
// welcome image as header when one is configured.
func (s *Service) sendRootMenu(ctx context.Context, client *model.Client, to string) error {
	nodes, err := s.resolver.Resolve(ctx, client.ID, 0, defaultLanguage)
	if err != nil {
		if apperror.IsNotFound(err) {
			return s.gateway.SendText(ctx, to, "Nothing is configured for this number yet. Please try later.")
		}
		return err
	}

	options := make([]model.ReplyOption, 0, len(nodes))
	for _, node := range nodes {
		token := ReplyToken{
			ClientID:     client.ID,
			MenuID:       node.ID,
			ItemID:       strconv.FormatInt(node.ID, 10),
			PrevClientID: client.ID,
		}
		options = append(options, model.ReplyOption{ID: s.codec.Encode(token), Title: node.Name})
	}

	body := "How can we help you today?"

	image := client.Settings.WelcomeImage
	if image == "" {
		if url, err := s.resolver.ListValue(ctx, client.ID, keyWelcomeImage, defaultLanguage); err == nil {
			image = url
		}
	}
	if image != "" && len(options) <= 3 {
		return s.gateway.SendButtonsWithImage(ctx, to, image, body, options)
	}
	return s.gateway.SendList(ctx, to, client.Name, body, "Menu", options)
}

// handleInteractive decodes the reply token, serializes on the appointment and
// runs the dispatcher.
func (s *Service) handleInteractive(ctx context.Context, msg model.InboundMessage) error {
	if msg.Interactive == nil {
		return nil
	}
	token, err := s.codec.Decode(msg.Interactive.ID)
	if err != nil {
		s.logger.Warn("rejected interactive reply", map[string]interface{}{
			"from":   msg.From,
			"reason": err.Error(),
		})
		return nil
	}

	if token.AppointmentID != 0 {
		unlock := s.locks.Lock(token.AppointmentID)
		defer unlock()
	}

	// The session is authoritative when present; the token rebuilds it after
	// a restart.
	if session, found, err := s.sessions.Load(ctx, msg.From, token.AppointmentID); err == nil {
		if found {
			token.PrevClientID = session.PrevClientID
			token.PrevMenuID = session.PrevMenuID
			token.PrevSelectID = session.PrevSelectID
		} else if err := s.sessions.Save(ctx, msg.From, sessionFromToken(token)); err != nil {
			s.logger.Warn("failed to rebuild session", map[string]interface{}{"from": msg.From})
		}
	}

	return s.dispatch(ctx, token, msg)
}

func (s *Service) countRegistration(step string) {
	if s.metrics != nil {
		s.metrics.RegistrationSteps.WithLabelValues(step).Inc()
	}
}
