package notify

import (
	"context"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// DefaultExpirationRules returns the built-in deadline rules seeded on first
// migration.
func DefaultExpirationRules() []entities.ExpirationRule {
	return []entities.ExpirationRule{
		{
			Name:       "Vencimiento de cuestionarios",
			Active:     true,
			BuiltIn:    true,
			EntityType: entities.EntityQuestionnaire,
			Severity:   entities.SeverityInfo,
			LeadDays:   []int{7, 3, 1},
			LagDays:    []int{1, 7, 15},
			RuleTargets: entities.RuleTargets{
				NotifyResponsible: true,
				NotifySupervisor:  true,
				SendEmail:         true,
			},
		},
		{
			Name:       "Vigencia de evidencias",
			Active:     true,
			BuiltIn:    true,
			EntityType: entities.EntityEvidence,
			Severity:   entities.SeverityWarning,
			LeadDays:   []int{30, 15, 7, 1},
			LagDays:    []int{1, 7},
			RuleTargets: entities.RuleTargets{
				NotifyResponsible: true,
				SendEmail:         true,
			},
		},
		{
			Name:       "Revisión de riesgos",
			Active:     true,
			BuiltIn:    true,
			EntityType: entities.EntityRisk,
			Severity:   entities.SeverityWarning,
			LagDays:    []int{1, 7, 15},
			RuleTargets: entities.RuleTargets{
				NotifyResponsible: true,
				NotifySupervisor:  true,
			},
		},
	}
}

// SeedDefaultRules creates any built-in rule missing by name, so a partial
// seed heals on the next run. It returns how many rules were created.
func SeedDefaultRules(ctx context.Context, repo repository.RuleRepository, log logger.Logger) (int, error) {
	defaults := DefaultExpirationRules()
	var created int
	for i := range defaults {
		count, err := repo.CountExpirationRulesByName(ctx, defaults[i].Name)
		if err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		if err := repo.CreateExpirationRule(ctx, &defaults[i]); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		log.Info("seeded default expiration rules", logger.Int("created", created))
	}
	return created, nil
}
