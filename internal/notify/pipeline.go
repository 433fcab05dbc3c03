package notify

import (
	"context"
	"fmt"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/transport/email"
	"gorm.io/datatypes"
)

// Delivery is one recipient's share of a rule firing.
type Delivery struct {
	UserID     string
	Kind       string
	Title      string
	Message    string
	Severity   string
	EntityType string
	EntityID   string
	EntityName string
	RuleID     string
	RuleKind   string
	Metadata   map[string]any
	Actions    []entities.NotificationAction
	SendEmail  bool
}

// DeliveryResult reports what the pipeline did for one recipient.
type DeliveryResult struct {
	NotificationID string
	// InApp and Email hold the logged outcome per channel, empty when no row was written.
	InApp string
	Email string
	// EmailAttempted is set once the transport was called, whatever the outcome.
	EmailAttempted bool
}

// Created reports whether an in-app notification was stored.
func (r DeliveryResult) Created() bool { return r.NotificationID != "" }

// Deliverer runs the per-recipient pipeline shared by every trigger and scan:
// preferences, rate limit, in-app notification, optional email, and one audit
// row per channel decision.
type Deliverer struct {
	prefs         *PreferenceResolver
	limiter       *RateLimiter
	notifications repository.NotificationRepository
	contacts      *ContactDirectory
	sender        email.Sender
	clock         Clock
	metrics       *Metrics
	log           logger.Logger
}

// NewDeliverer wires the pipeline. A nil sender turns every email leg into a skip.
func NewDeliverer(
	prefs *PreferenceResolver,
	limiter *RateLimiter,
	notifications repository.NotificationRepository,
	contacts *ContactDirectory,
	sender email.Sender,
	clock Clock,
	metrics *Metrics,
	log logger.Logger,
) *Deliverer {
	return &Deliverer{
		prefs:         prefs,
		limiter:       limiter,
		notifications: notifications,
		contacts:      contacts,
		sender:        sender,
		clock:         clock,
		metrics:       metrics,
		log:           log,
	}
}

// Deliver runs the pipeline for one recipient. Storage failures and email
// transport failures are returned; an in-app notification created before an
// email failure is kept.
func (d *Deliverer) Deliver(ctx context.Context, req Delivery) (DeliveryResult, error) {
	var res DeliveryResult

	decision := d.prefs.Resolve(ctx, req.UserID, req.Severity, req.EntityType)
	if decision.Denied() {
		err := d.writeLog(ctx, req, entities.ChannelInApp, entities.OutcomeSkipped, nil, decision.Reason, nil)
		if err == nil {
			res.InApp = entities.OutcomeSkipped
		}
		return res, err
	}

	rate := d.limiter.Check(ctx, req.UserID)
	if !rate.Permitted {
		err := d.writeLog(ctx, req, entities.ChannelInApp, entities.OutcomeSkipped, nil, rate.Reason, nil)
		if err == nil {
			res.InApp = entities.OutcomeSkipped
		}
		return res, err
	}

	var notificationID *string
	if decision.AllowInApp {
		n := &entities.Notification{
			UserID:     req.UserID,
			Kind:       req.Kind,
			Title:      req.Title,
			Message:    req.Message,
			Severity:   req.Severity,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			EntityName: req.EntityName,
			RuleID:     req.RuleID,
			RuleKind:   req.RuleKind,
			Metadata:   jsonMap(req.Metadata),
			Actions:    req.Actions,
			CreatedAt:  d.clock.Now().UTC(),
		}
		if err := d.notifications.CreateNotification(ctx, n); err != nil {
			return res, d.storageError(err, req)
		}
		res.NotificationID = n.ID
		notificationID = &n.ID
		if err := d.writeLog(ctx, req, entities.ChannelInApp, entities.OutcomeSent, notificationID, "", req.Metadata); err != nil {
			return res, err
		}
		res.InApp = entities.OutcomeSent
	} else {
		if err := d.writeLog(ctx, req, entities.ChannelInApp, entities.OutcomeSkipped, nil, ReasonInAppDisabled, nil); err != nil {
			return res, err
		}
		res.InApp = entities.OutcomeSkipped
	}

	if !req.SendEmail {
		return res, nil
	}
	outcome, attempted, err := d.deliverEmail(ctx, req, decision, notificationID)
	res.Email = outcome
	res.EmailAttempted = attempted
	return res, err
}

func (d *Deliverer) deliverEmail(ctx context.Context, req Delivery, decision ChannelDecision, notificationID *string) (string, bool, error) {
	skip := func(reason string) (string, bool, error) {
		if err := d.writeLog(ctx, req, entities.ChannelEmail, entities.OutcomeSkipped, nil, reason, nil); err != nil {
			return "", false, err
		}
		return entities.OutcomeSkipped, false, nil
	}

	if !decision.AllowEmail {
		return skip(ReasonEmailDisabled)
	}
	if d.sender == nil {
		return skip("no email transport configured")
	}

	user, err := d.contacts.User(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return skip(ReasonNoEmailAddress)
		}
		return "", false, d.storageError(err, req)
	}
	if user.Email == "" {
		return skip(ReasonNoEmailAddress)
	}

	htmlBody := EmailHTML(req.Title, req.Message, req.EntityName)
	receipt, sendErr := d.sender.Send(ctx, &email.Message{
		To:      user.Email,
		Subject: req.Title,
		Body:    EmailText(htmlBody),
		HTML:    htmlBody,
	})
	if sendErr != nil {
		if err := d.writeLog(ctx, req, entities.ChannelEmail, entities.OutcomeFailed, notificationID, sendErr.Error(), nil); err != nil {
			return "", true, errors.Join(sendErr, err)
		}
		return entities.OutcomeFailed, true, errors.New(fmt.Errorf("send email to user %s: %w", req.UserID, sendErr)).
			Component("notify").
			Category(errors.CategoryDelivery).
			Context("user_id", req.UserID).
			Context("rule_id", req.RuleID).
			Build()
	}

	meta := map[string]any{"to": user.Email}
	if receipt != nil {
		meta["messageId"] = receipt.MessageID
	}
	if err := d.writeLog(ctx, req, entities.ChannelEmail, entities.OutcomeSent, notificationID, "", meta); err != nil {
		return "", true, err
	}
	return entities.OutcomeSent, true, nil
}

func (d *Deliverer) writeLog(ctx context.Context, req Delivery, channel, outcome string, notificationID *string, reason string, meta map[string]any) error {
	row := &entities.NotificationLog{
		NotificationID: notificationID,
		UserID:         req.UserID,
		Channel:        channel,
		Status:         outcome,
		Error:          reason,
		RuleID:         req.RuleID,
		RuleKind:       req.RuleKind,
		Metadata:       jsonMap(meta),
		SentAt:         d.clock.Now().UTC(),
	}
	if err := d.notifications.CreateLog(ctx, row); err != nil {
		return d.storageError(err, req)
	}
	d.metrics.delivery(channel, outcome)
	if outcome == entities.OutcomeSkipped {
		d.log.Debug("delivery skipped",
			logger.String("user_id", req.UserID),
			logger.String("channel", channel),
			logger.String("reason", reason))
	}
	return nil
}

func (d *Deliverer) storageError(err error, req Delivery) error {
	return errors.New(err).
		Component("notify").
		Category(errors.CategoryDatabase).
		Context("user_id", req.UserID).
		Context("rule_id", req.RuleID).
		Context("rule_kind", req.RuleKind).
		Build()
}

func jsonMap(m map[string]any) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	return datatypes.JSONMap(m)
}
