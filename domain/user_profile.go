package domain

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile holds a subject's stated interests. Subjects are anonymous;
// SubjectID is a session- or cookie-scoped identifier.
type UserProfile struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SubjectID string `gorm:"column:subject_id;uniqueIndex;not null;size:100" json:"subject_id"`

	InterestedTickers  datatypes.JSON `gorm:"column:interested_tickers;type:jsonb" json:"interested_tickers"`
	InterestedKeywords datatypes.JSON `gorm:"column:interested_keywords;type:jsonb" json:"interested_keywords"`

	DiversityWeight        float64 `gorm:"column:diversity_weight" json:"diversity_weight"`
	PersonalizationEnabled bool    `gorm:"column:personalization_enabled" json:"personalization_enabled"`

	IsActive  bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_preference"
}
