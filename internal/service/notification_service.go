package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
)

// NotificationService turns domain events into outbound notifications.
// Delivery is a logged stub; recipient selection is the real logic here.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIncidentCreated, n.handleIncidentCreated)
	n.dispatcher.Subscribe(events.EventIncidentStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventIncidentAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventIncidentCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
}

func (n *NotificationService) handleIncidentCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	n.sendEmail(ctx, payload.ReporterEmail,
		fmt.Sprintf("Incident %s created", payload.IncidentKey),
		fmt.Sprintf("Hi %s, your incident %q was registered with priority %s.",
			payload.ReporterName, payload.Title, payload.Priority))
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	n.sendEmail(ctx, payload.ReporterEmail,
		fmt.Sprintf("Incident %s is now %s", payload.IncidentKey, payload.NewStatus),
		fmt.Sprintf("Hi %s, incident %q moved from %s to %s.",
			payload.ReporterName, payload.Title, payload.OldStatus, payload.NewStatus))
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	if payload.AssigneeEmail == "" {
		return nil
	}
	n.sendEmail(ctx, payload.AssigneeEmail,
		fmt.Sprintf("Incident %s assigned to you", payload.IncidentKey),
		fmt.Sprintf("Hi %s, you are now assigned to %q.", payload.AssigneeName, payload.Title))
	return nil
}

// handleCommentAdded notifies the incident's participants except the
// comment author. Internal comments never reach the reporter.
func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IncidentCommentAddedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	subject := fmt.Sprintf("New comment on incident %s", payload.IncidentKey)
	body := fmt.Sprintf("%s commented on %q.", payload.AuthorName, payload.Title)

	if !payload.IsInternal && payload.ReporterID != payload.AuthorID {
		n.sendEmail(ctx, payload.ReporterEmail, subject, body)
	}
	if payload.AssigneeID != nil && *payload.AssigneeID != payload.AuthorID && payload.AssigneeEmail != nil {
		n.sendEmail(ctx, *payload.AssigneeEmail, subject, body)
	}
	return nil
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.Type)
	}
	n.sendEmail(ctx, payload.Email,
		"Welcome to the service desk",
		fmt.Sprintf("Hi %s, your account is ready.", payload.FullName))
	return nil
}

// sendEmail is a delivery stub; a real SMTP or provider integration
// plugs in here without touching recipient selection.
func (n *NotificationService) sendEmail(_ context.Context, to, subject, body string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || strings.TrimSpace(to) == "" {
		return
	}
	n.logger.Info("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
}
