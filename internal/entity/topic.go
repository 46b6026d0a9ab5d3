package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TopicStatusInProcess = "inprocess"
	TopicStatusDone      = "done"

	TopicActionOpen  = "open"
	TopicActionClose = "close"
)

// Topic is a unit of work with a teacher, enrolled students, an open/closed
// lifecycle and an optional score. Once a score is set, status becomes "done"
// and action becomes "close" atomically.
type Topic struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	CreatorID   uuid.UUID  `gorm:"type:uuid;not null" json:"creator_id"`
	Creator     User       `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	TeacherID   *uuid.UUID `gorm:"type:uuid" json:"teacher_id"`
	Teacher     *User      `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Status      string     `gorm:"size:20;not null;default:inprocess" json:"status"`
	Action      string     `gorm:"size:20;not null;default:open" json:"action"`
	Score       float64    `gorm:"default:0" json:"score"`
	TopicUsers  []TopicUser `gorm:"foreignKey:TopicID" json:"-"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Closed reports whether the topic no longer accepts reports or comments.
func (t *Topic) Closed() bool {
	return t.Action == TopicActionClose
}

// TopicUser is the enrollment record. Its presence is the sole authority for
// "is this user a participant of this topic"; the teacher is enrolled too.
type TopicUser struct {
	TopicID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"topic_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
