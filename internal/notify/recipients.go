package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// RecipientPolicy holds switchable recipient rules.
type RecipientPolicy struct {
	// ExcludeActor drops the user who caused the event from the recipients.
	ExcludeActor bool
}

// RecipientResolver computes who a rule firing reaches.
type RecipientResolver struct {
	contacts *ContactDirectory
	policy   RecipientPolicy
	log      logger.Logger
}

// NewRecipientResolver creates a resolver.
func NewRecipientResolver(contacts *ContactDirectory, policy RecipientPolicy, log logger.Logger) *RecipientResolver {
	return &RecipientResolver{contacts: contacts, policy: policy, log: log}
}

// recipientSet keeps insertion order so fan-out is deterministic.
type recipientSet struct {
	seen  map[string]struct{}
	order []string
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[string]struct{})}
}

func (s *recipientSet) add(ids ...string) {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

func (s *recipientSet) remove(id string) {
	if _, ok := s.seen[id]; !ok {
		return
	}
	delete(s.seen, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Resolve returns the deduplicated recipients for a firing of a rule with
// the given targets against entity data.
func (r *RecipientResolver) Resolve(ctx context.Context, targets entities.RuleTargets, data map[string]any, actingUserID string) ([]string, error) {
	set := newRecipientSet()
	set.add(targets.UserIDs...)

	if targets.NotifyCreator {
		set.add(stringField(data, FieldCreatedBy))
	}

	if targets.NotifyResponsible {
		id, err := r.responsibleID(ctx, data)
		if err != nil {
			return nil, err
		}
		set.add(id)
	}

	if targets.NotifyApprovers {
		set.add(r.approverIDs(data)...)
	}

	if len(targets.RoleIDs) > 0 {
		members, err := r.contacts.RoleMembers(ctx, targets.RoleIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve role recipients: %w", err)
		}
		set.add(members...)
	}

	if r.policy.ExcludeActor && actingUserID != "" {
		set.remove(actingUserID)
	}
	return set.order, nil
}

// responsibleID prefers the ID field and falls back to an exact display name
// match. Display names are not unique, so the fallback may pick the wrong
// user; callers should send responsableId.
func (r *RecipientResolver) responsibleID(ctx context.Context, data map[string]any) (string, error) {
	if id := stringField(data, FieldResponsibleID); id != "" {
		return id, nil
	}
	name := stringField(data, FieldResponsible)
	if name == "" {
		return "", nil
	}
	u, err := r.contacts.UserByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			r.log.Debug("responsible user not found by name", logger.String("name", name))
			return "", nil
		}
		return "", fmt.Errorf("resolve responsible by name: %w", err)
	}
	r.log.Debug("responsible resolved by display name",
		logger.String("name", name),
		logger.String("user_id", u.ID))
	return u.ID, nil
}

// approverIDs accepts a list of IDs or a JSON encoded list.
func (r *RecipientResolver) approverIDs(data map[string]any) []string {
	switch v := data[FieldApprovers].(type) {
	case []string:
		return v
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			ids = append(ids, formatValue(item))
		}
		return ids
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		var ids []string
		if err := json.Unmarshal([]byte(v), &ids); err != nil {
			r.log.Warn("ignoring malformed approver list", logger.Error(err))
			return nil
		}
		return ids
	default:
		return nil
	}
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	v, ok := data[key]
	if !ok {
		return ""
	}
	return formatValue(v)
}
