package models

import (
	"time"

	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Column is one lane of a project's kanban board. Position orders columns
// within a project.
type Column struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	ProjectID uint64         `gorm:"not null;index" json:"project_id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Position  int64          `gorm:"not null" json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Card is a kanban card. Position orders cards within their column.
// CompletedAt is set iff Completed is true.
type Card struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	ProjectID   uint64         `gorm:"not null;index" json:"project_id"`
	ColumnID    uint64         `gorm:"not null;index" json:"column_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Tags        []string       `gorm:"serializer:json;type:text" json:"tags"`
	Priority    Priority       `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	AssigneeID  *uint64        `json:"assignee_id"`
	DueDate     *time.Time     `json:"due_date"`
	Completed   bool           `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time     `json:"completed_at"`
	Position    int64          `gorm:"not null" json:"position"`
	CreatorID   uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
