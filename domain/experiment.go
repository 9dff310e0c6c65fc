package domain

import (
	"time"

	"gorm.io/datatypes"
)

// VariantAllocation is one entry of an experiment's ordered traffic table.
// The order of the slice is part of the experiment configuration; buckets are
// walked front to back.
type VariantAllocation struct {
	Variant string `json:"variant"`
	Percent int    `json:"percent"`
}

type Experiment struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ExperimentKey string         `gorm:"column:experiment_key;uniqueIndex;not null;size:100" json:"experiment_key"`
	Name          string         `gorm:"column:name;not null;size:200" json:"name"`
	Description   string         `gorm:"column:description;size:1000" json:"description"`
	Allocations   datatypes.JSON `gorm:"column:allocations;type:jsonb" json:"allocations"`

	StartAt time.Time  `gorm:"column:start_at;not null" json:"start_at"`
	EndAt   *time.Time `gorm:"column:end_at" json:"end_at,omitempty"`

	IsActive bool `gorm:"column:is_active;index" json:"is_active"`

	AutoStopEnabled         bool    `gorm:"column:auto_stop_enabled" json:"auto_stop_enabled"`
	AutoStopThreshold       float64 `gorm:"column:auto_stop_threshold" json:"auto_stop_threshold"`
	AutoStopConsecutiveDays int     `gorm:"column:auto_stop_consecutive_days" json:"auto_stop_consecutive_days"`
	MinSampleSize           int64   `gorm:"column:min_sample_size" json:"min_sample_size"`

	CreatedBy string    `gorm:"column:created_by;size:100" json:"created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Experiment) TableName() string {
	return "experiment"
}

// IsRunning reports whether the experiment is active and inside its window.
func (e *Experiment) IsRunning(now time.Time) bool {
	if !e.IsActive {
		return false
	}
	if now.Before(e.StartAt) {
		return false
	}
	if e.EndAt != nil && now.After(*e.EndAt) {
		return false
	}
	return true
}

// ExperimentAssignment maps (subject, experiment) to a variant. It is a pure
// function of its inputs and is never stored as a source of truth.
type ExperimentAssignment struct {
	SubjectID     string `json:"subject_id"`
	ExperimentKey string `json:"experiment_key"`
	Variant       string `json:"variant"`
	Bucket        int    `json:"bucket"`
	IsActive      bool   `json:"is_active"`
}

// ControlAssignment is the safe default when an experiment is missing,
// inactive, or outside its window.
func ControlAssignment(subjectID, experimentKey string) ExperimentAssignment {
	return ExperimentAssignment{
		SubjectID:     subjectID,
		ExperimentKey: experimentKey,
		Variant:       "control",
		Bucket:        -1,
		IsActive:      false,
	}
}

// ExperimentAlert records an automatic intervention, e.g. an auto-stop.
// Rows stay unresolved until an operator acts on them.
type ExperimentAlert struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ExperimentKey string    `gorm:"column:experiment_key;index;not null;size:100" json:"experiment_key"`
	Kind          string    `gorm:"column:kind;not null;size:50" json:"kind"`
	Message       string    `gorm:"column:message;size:1000" json:"message"`
	ControlCtr    float64   `gorm:"column:control_ctr" json:"control_ctr"`
	TreatmentCtr  float64   `gorm:"column:treatment_ctr" json:"treatment_ctr"`
	Degradation   float64   `gorm:"column:degradation" json:"degradation"`
	Resolved      bool      `gorm:"column:resolved" json:"resolved"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ExperimentAlert) TableName() string {
	return "experiment_alert"
}
