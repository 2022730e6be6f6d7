package reviews

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewerID string     `gorm:"not null;index:idx_review_once,unique" json:"reviewer_id"`
	SubjectID  string     `gorm:"not null;index;index:idx_review_once,unique" json:"subject_id"`
	ToyID      *uuid.UUID `gorm:"type:uuid;index:idx_review_once,unique" json:"toy_id,omitempty"`
	Rating     int        `gorm:"not null" json:"rating"`
	Comment    string     `json:"comment"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Review) TableName() string { return "app_reviews.reviews" }
