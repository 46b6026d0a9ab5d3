package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportStatusPending = 0
	ReportStatusPass    = 1
	ReportStatusFail    = 2
)

// Report is a file submission against a topic. Any field is mutable by the
// topic's teacher; the submitting student may only change filename and
// description, never status.
type Report struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID     uuid.UUID `gorm:"type:uuid;not null" json:"topic_id"`
	Topic       Topic     `gorm:"constraint:OnDelete:CASCADE" json:"topic,omitempty"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Description string    `gorm:"type:text" json:"description"`
	Filename    string    `gorm:"type:text;not null" json:"filename"`
	Status      int       `gorm:"not null;default:0" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
