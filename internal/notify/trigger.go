package notify

import (
	"context"
	"fmt"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// Event is an entity lifecycle change reported by the application.
type Event struct {
	EventType  string         `json:"eventType"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	ActorID    string         `json:"actorId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// TriggerResult summarises an event trigger.
type TriggerResult struct {
	NotificationsCreated int `json:"notificationsCreated"`
	EmailsSent           int `json:"emailsSent"`
	// LogsWritten counts delivery log rows of any outcome.
	LogsWritten int `json:"logsWritten"`

	emailAttempts int
}

// Touched reports whether the trigger left any trace, so replaying it would
// duplicate notifications, emails or log rows.
func (r TriggerResult) Touched() bool {
	return r.NotificationsCreated > 0 || r.EmailsSent > 0 || r.LogsWritten > 0 || r.emailAttempts > 0
}

func (r *TriggerResult) add(out DeliveryResult) {
	if out.Created() {
		r.NotificationsCreated++
	}
	if out.Email == entities.OutcomeSent {
		r.EmailsSent++
	}
	if out.InApp != "" {
		r.LogsWritten++
	}
	if out.Email != "" {
		r.LogsWritten++
	}
	if out.EmailAttempted {
		r.emailAttempts++
	}
}

// TriggerEvent delivers every active notification rule matching the event's
// entity and event type.
func (e *Engine) TriggerEvent(ctx context.Context, ev Event) (TriggerResult, error) {
	var res TriggerResult

	rules, err := e.rules.FindNotificationRules(ctx, ev.EntityType, ev.EventType)
	if err != nil {
		return res, errors.New(err).
			Component("notify").
			Category(errors.CategoryDatabase).
			Context("entity_type", ev.EntityType).
			Context("event_type", ev.EventType).
			Build()
	}
	if len(rules) == 0 {
		return res, nil
	}

	name := DisplayName(ev.Data)
	for i := range rules {
		rule := &rules[i]
		recipients, err := e.recipients.Resolve(ctx, rule.RuleTargets, ev.Data, ev.ActorID)
		if err != nil {
			return res, err
		}
		message := ComposeMessage(rule.Template, ev.Data)
		for _, userID := range recipients {
			out, err := e.deliverer.Deliver(ctx, Delivery{
				UserID:     userID,
				Kind:       entities.KindNotification,
				Title:      rule.Name,
				Message:    message,
				Severity:   rule.Severity,
				EntityType: ev.EntityType,
				EntityID:   ev.EntityID,
				EntityName: name,
				RuleID:     rule.ID,
				RuleKind:   entities.RuleKindNotification,
				Metadata:   map[string]any{"eventType": ev.EventType, "actorId": ev.ActorID},
				SendEmail:  rule.SendEmail,
			})
			res.add(out)
			if err != nil {
				return res, err
			}
		}
	}

	e.log.Debug("event triggered",
		logger.String("entity_type", ev.EntityType),
		logger.String("event_type", ev.EventType),
		logger.String("entity_id", ev.EntityID),
		logger.Int("rules", len(rules)),
		logger.Int("notifications", res.NotificationsCreated))
	return res, nil
}

// ApprovalNotice describes an approval decision on a questionnaire response.
type ApprovalNotice struct {
	// Kind is entities.EventApproval or entities.EventRejection.
	Kind         string `json:"kind"`
	AssignmentID string `json:"assignmentId"`
	ResponseID   string `json:"responseId"`
	ApproverID   string `json:"approverId"`
	Comment      string `json:"comment,omitempty"`
}

// TriggerApprovalNotification notifies the assignment's responsible user of
// an approval or rejection. A missing assignment or responsible user is not
// an error and creates nothing.
func (e *Engine) TriggerApprovalNotification(ctx context.Context, n ApprovalNotice) (TriggerResult, error) {
	var res TriggerResult
	rejected := n.Kind == entities.EventRejection
	if !rejected && n.Kind != entities.EventApproval {
		return res, errors.Newf("unknown approval kind %q", n.Kind).
			Component("notify").
			Category(errors.CategoryValidation).
			Build()
	}

	assignment, err := e.domain.GetAssignment(ctx, n.AssignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			e.log.Debug("approval for unknown assignment", logger.String("assignment_id", n.AssignmentID))
			return res, nil
		}
		return res, errors.New(err).
			Component("notify").
			Category(errors.CategoryDatabase).
			Context("assignment_id", n.AssignmentID).
			Build()
	}
	if assignment.ResponsibleID == "" {
		return res, nil
	}

	approver := "Un aprobador"
	if u, err := e.contacts.User(ctx, n.ApproverID); err == nil && u.Name != "" {
		approver = u.Name
	}

	req := Delivery{
		UserID:     assignment.ResponsibleID,
		Kind:       entities.KindNotification,
		EntityType: entities.EntityQuestionnaire,
		EntityID:   assignment.ID,
		EntityName: assignment.Name,
		RuleKind:   entities.RuleKindApproval,
		Metadata: map[string]any{
			"responseId": n.ResponseID,
			"approverId": n.ApproverID,
			"decision":   n.Kind,
		},
		SendEmail: e.approvalEmail,
	}
	if rejected {
		req.Title = "Respuesta rechazada"
		req.Message = fmt.Sprintf("%s rechazó tu respuesta al cuestionario %q.", approver, assignment.Name)
		if n.Comment != "" {
			req.Message += " Motivo del rechazo: " + n.Comment
			req.Metadata["comment"] = n.Comment
		}
		req.Severity = entities.SeverityWarning
		req.Actions = []entities.NotificationAction{
			{Label: "Revisar y corregir", Style: "primary", Action: ActionReviewResponse},
		}
	} else {
		req.Title = "Respuesta aprobada"
		req.Message = fmt.Sprintf("%s aprobó tu respuesta al cuestionario %q.", approver, assignment.Name)
		req.Severity = entities.SeverityInfo
	}

	out, err := e.deliverer.Deliver(ctx, req)
	res.add(out)
	return res, err
}
