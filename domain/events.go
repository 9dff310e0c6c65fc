package domain

import "time"

// ImpressionEvent is one served item shown to a subject. Append-only.
type ImpressionEvent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubjectID        string    `gorm:"column:subject_id;index;not null;size:100" json:"subject_id"`
	ItemID           int64     `gorm:"column:item_id;not null" json:"item_id"`
	Position         int       `gorm:"column:position" json:"position"`
	ExperimentKey    string    `gorm:"column:experiment_key;index;size:100" json:"experiment_key"`
	Variant          string    `gorm:"column:variant;size:50" json:"variant"`
	RankScore        float64   `gorm:"column:rank_score" json:"rank_score"`
	Personalized     bool      `gorm:"column:personalized" json:"personalized"`
	DiversityApplied bool      `gorm:"column:diversity_applied" json:"diversity_applied"`
	Timestamp        time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	DatePartition    string    `gorm:"column:date_partition;index;size:10" json:"date_partition"`
}

func (ImpressionEvent) TableName() string {
	return "impression_log"
}

// ClickEvent is a click on a previously served item. Append-only.
type ClickEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubjectID     string    `gorm:"column:subject_id;index;not null;size:100" json:"subject_id"`
	ItemID        int64     `gorm:"column:item_id;not null" json:"item_id"`
	Position      int       `gorm:"column:position" json:"position"`
	ExperimentKey string    `gorm:"column:experiment_key;index;size:100" json:"experiment_key"`
	Variant       string    `gorm:"column:variant;size:50" json:"variant"`
	Tickers       string    `gorm:"column:tickers;size:500" json:"tickers,omitempty"`
	TopicID       *int64    `gorm:"column:topic_id" json:"topic_id,omitempty"`
	Personalized  bool      `gorm:"column:personalized" json:"personalized"`
	DwellTimeMs   int64     `gorm:"column:dwell_time_ms" json:"dwell_time_ms"`
	Timestamp     time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	DatePartition string    `gorm:"column:date_partition;index;size:10" json:"date_partition"`
}

func (ClickEvent) TableName() string {
	return "click_log"
}

// DatePartitionOf formats a timestamp into the YYYY-MM-DD partition key used
// by the aggregation jobs.
func DatePartitionOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
