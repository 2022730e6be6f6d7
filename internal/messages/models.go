package messages

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ToyID     uuid.UUID `gorm:"type:uuid;not null;index:idx_convo_toy_buyer,unique" json:"toy_id"`
	BuyerID   string    `gorm:"not null;index:idx_convo_toy_buyer,unique;index" json:"buyer_id"`
	SellerID  string    `gorm:"not null;index" json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       string     `gorm:"not null" json:"sender_id"`
	Body           string     `gorm:"not null" json:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (Conversation) TableName() string { return "app_messages.conversations" }
func (Message) TableName() string      { return "app_messages.messages" }

func (c Conversation) hasParticipant(userID string) bool {
	return c.BuyerID == userID || c.SellerID == userID
}
