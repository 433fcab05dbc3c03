package entities

import (
	"time"

	"gorm.io/gorm"
)

// The records below belong to the compliance application; the engine only
// reads them to compute metrics and deadlines.

type KPI struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	Name         string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CurrentValue float64 `gorm:"not null;default:0" json:"current_value"`
	Unit         string  `gorm:"size:20;default:''" json:"unit"`
}

func (KPI) TableName() string { return "kpis" }

func (k *KPI) BeforeCreate(*gorm.DB) error {
	k.ID = newID(k.ID)
	return nil
}

type Risk struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	State         string     `gorm:"size:30;not null;index" json:"state"`
	ReviewDate    *time.Time `gorm:"index" json:"review_date,omitempty"`
	ResponsibleID string     `gorm:"size:36;default:''" json:"responsible_id"`
}

func (Risk) TableName() string { return "risks" }

func (r *Risk) BeforeCreate(*gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

type Incident struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Severity string `gorm:"size:20;not null;index" json:"severity"`
}

func (Incident) TableName() string { return "incidents" }

func (i *Incident) BeforeCreate(*gorm.DB) error {
	i.ID = newID(i.ID)
	return nil
}

// QuestionnaireAssignment is a questionnaire assigned to a responsible user.
type QuestionnaireAssignment struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	State         string     `gorm:"size:30;not null;index" json:"state"`
	Progress      float64    `gorm:"not null;default:0" json:"progress"`
	DueDate       *time.Time `gorm:"index" json:"due_date,omitempty"`
	ResponsibleID string     `gorm:"size:36;default:''" json:"responsible_id"`
	CreatedBy     string     `gorm:"size:36;default:''" json:"created_by"`
}

func (QuestionnaireAssignment) TableName() string { return "questionnaire_assignments" }

func (a *QuestionnaireAssignment) BeforeCreate(*gorm.DB) error {
	a.ID = newID(a.ID)
	return nil
}

type Evidence struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	ValidUntil    *time.Time `gorm:"index" json:"valid_until,omitempty"`
	ResponsibleID string     `gorm:"size:36;default:''" json:"responsible_id"`
}

func (Evidence) TableName() string { return "evidence" }

func (e *Evidence) BeforeCreate(*gorm.DB) error {
	e.ID = newID(e.ID)
	return nil
}

// All returns every model for AutoMigrate.
func All() []any {
	return []any{
		&NotificationRule{}, &AlertRule{}, &ExpirationRule{},
		&UserNotificationPreferences{}, &Notification{}, &NotificationLog{},
		&User{}, &RoleMembership{},
		&KPI{}, &Risk{}, &Incident{}, &QuestionnaireAssignment{}, &Evidence{},
	}
}
