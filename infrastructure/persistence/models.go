package persistence

import "time"

// FlowRunModel is the flow_runs row.
type FlowRunModel struct {
	ID                string    `gorm:"primaryKey;size:36"`
	Name              string    `gorm:"not null;index"`
	FlowVersion       string    `gorm:"not null;default:''"`
	StateType         string    `gorm:"not null;index"`
	StateName         string    `gorm:"not null;index"`
	ExpectedStartTime *time.Time
	StartTime         *time.Time `gorm:"index"`
	EndTime           *time.Time `gorm:"index"`
	CreatedAt         time.Time  `gorm:"not null;index"`
	UpdatedAt         time.Time  `gorm:"not null"`

	Tags []FlowRunTagModel `gorm:"foreignKey:FlowRunID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name.
func (FlowRunModel) TableName() string { return "flow_runs" }

// FlowRunTagModel is one tag attached to a flow run.
type FlowRunTagModel struct {
	FlowRunID string `gorm:"primaryKey;size:36"`
	Tag       string `gorm:"primaryKey;index"`
}

// TableName returns the table name.
func (FlowRunTagModel) TableName() string { return "flow_run_tags" }
