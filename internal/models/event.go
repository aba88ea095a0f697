package models

import (
	"time"

	"gorm.io/gorm"
)

// Event kinds stored in the journal.
const (
	KindActivation    = "activation"
	KindTermination   = "termination"
	KindPrepopulation = "prepopulation"
)

// FocusEvent is one journaled tracker event. Terminations carry only the
// pid; prepopulation rows carry the KNOWN/GUESS confidence.
type FocusEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	Kind          string         `gorm:"not null;index" json:"kind"`
	PID           int32          `gorm:"not null;index" json:"pid"`
	BundleID      string         `gorm:"not null;default:'';index" json:"bundle_id"`
	AppName       string         `gorm:"not null;default:''" json:"app_name"`
	Confidence    string         `gorm:"not null;default:''" json:"confidence,omitempty"`
	DisplayServer string         `gorm:"not null" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// AppSummary aggregates the activations of one application.
type AppSummary struct {
	BundleID    string    `json:"bundle_id"`
	AppName     string    `json:"app_name"`
	Activations int       `json:"activations"`
	LastSeen    time.Time `json:"last_seen"`
	Percentage  float64   `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period           ReportPeriod `json:"period"`
	Apps             []AppSummary `json:"apps"`
	TotalActivations int          `json:"total_activations"`
	GeneratedAt      time.Time    `json:"generated_at"`
}
