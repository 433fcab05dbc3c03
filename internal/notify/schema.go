package notify

import "github.com/grcwatch/notify-engine/internal/datastore/entities"

// Schema describes what rules can target, for administrative UIs.
type Schema struct {
	EntityTypes []EntityTypeSchema `json:"entityTypes"`
	Operators   []OperatorSchema   `json:"operators"`
	Severities  []string           `json:"severities"`
	Channels    []string           `json:"channels"`
}

// EntityTypeSchema lists an entity type's events and scan capabilities.
type EntityTypeSchema struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Events []string `json:"events"`
	// Metric describes the value alert rules compare, empty when unsupported.
	Metric string `json:"metric,omitempty"`
	// Filter describes the alert rule filter, empty when unused.
	Filter string `json:"filter,omitempty"`
	// Deadline names the date expiration rules watch, empty when unsupported.
	Deadline string `json:"deadline,omitempty"`
}

// OperatorSchema describes an alert operator.
type OperatorSchema struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

var lifecycleEvents = []string{entities.EventCreate, entities.EventUpdate, entities.EventDelete}

// GetSchema returns the rule catalog.
func GetSchema() Schema {
	return Schema{
		EntityTypes: []EntityTypeSchema{
			{
				Name:   entities.EntityKPI,
				Label:  "KPI",
				Events: lifecycleEvents,
				Metric: "current value of the KPI named by metricName",
			},
			{
				Name:     entities.EntityRisk,
				Label:    "Riesgo",
				Events:   lifecycleEvents,
				Metric:   "number of risks",
				Filter:   "state",
				Deadline: "review date",
			},
			{
				Name:   entities.EntityIncident,
				Label:  "Incidente",
				Events: lifecycleEvents,
				Metric: "number of incidents",
				Filter: "severity",
			},
			{
				Name:     entities.EntityQuestionnaire,
				Label:    "Cuestionario",
				Events:   append(append([]string{}, lifecycleEvents...), entities.EventApproval, entities.EventRejection),
				Metric:   "mean progress of completed assignments",
				Deadline: "due date",
			},
			{
				Name:     entities.EntityEvidence,
				Label:    "Evidencia",
				Events:   lifecycleEvents,
				Deadline: "valid until",
			},
		},
		Operators: []OperatorSchema{
			{Name: OperatorGT, Symbol: operatorSymbol(OperatorGT)},
			{Name: OperatorLT, Symbol: operatorSymbol(OperatorLT)},
			{Name: OperatorGTE, Symbol: operatorSymbol(OperatorGTE)},
			{Name: OperatorLTE, Symbol: operatorSymbol(OperatorLTE)},
			{Name: OperatorEQ, Symbol: operatorSymbol(OperatorEQ)},
			{Name: OperatorNE, Symbol: operatorSymbol(OperatorNE)},
		},
		Severities: []string{entities.SeverityInfo, entities.SeverityWarning, entities.SeverityCritical},
		Channels:   []string{entities.ChannelInApp, entities.ChannelEmail},
	}
}
