package messages

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ToySwap/TS-Backend/internal/db"
	"github.com/ToySwap/TS-Backend/internal/toys"
	"github.com/ToySwap/TS-Backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StartConversationHandler opens (or reuses) the caller's conversation
// about a toy and appends the first message.
func StartConversationHandler(w http.ResponseWriter, r *http.Request) {
	type startRequest struct {
		ToyID uuid.UUID `json:"toy_id"`
		Body  string    `json:"body"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	body.Body = strings.TrimSpace(body.Body)
	if body.ToyID == uuid.Nil || body.Body == "" {
		utils.WriteError(w, http.StatusBadRequest, "toy_id and body are required")
		return
	}

	var toy toys.Toy
	if err := db.DB.First(&toy, "id = ?", body.ToyID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "Toy not found")
		return
	}
	if toy.OwnerID == userID {
		utils.WriteError(w, http.StatusBadRequest, "Can't message your own listing")
		return
	}

	var convo Conversation
	err := db.DB.First(&convo, "toy_id = ? AND buyer_id = ?", toy.ID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		convo = Conversation{
			ID:       uuid.New(),
			ToyID:    toy.ID,
			BuyerID:  userID,
			SellerID: toy.OwnerID,
		}
		if err := db.DB.Create(&convo).Error; err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Failed to start conversation")
			return
		}
	} else if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to start conversation")
		return
	}

	msg := Message{
		ID:             uuid.New(),
		ConversationID: convo.ID,
		SenderID:       userID,
		Body:           body.Body,
	}
	if err := db.DB.Create(&msg).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]any{
		"conversation": convo,
		"message":      msg,
	})
}

type ConversationSummary struct {
	Conversation
	LastMessage string     `json:"last_message"`
	LastAt      *time.Time `json:"last_at,omitempty"`
	Unread      int64      `json:"unread"`
}

// ListConversationsHandler returns the caller's conversations, most recent
// activity first, each with a preview and unread count.
func ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	var convos []Conversation
	if err := db.DB.
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Find(&convos).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load conversations")
		return
	}

	summaries := make([]ConversationSummary, 0, len(convos))
	for _, convo := range convos {
		summary := ConversationSummary{Conversation: convo}

		var last Message
		if err := db.DB.
			Where("conversation_id = ?", convo.ID).
			Order("created_at DESC").
			First(&last).Error; err == nil {
			summary.LastMessage = last.Body
			t := last.CreatedAt
			summary.LastAt = &t
		}

		db.DB.Model(&Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", convo.ID, userID).
			Count(&summary.Unread)

		summaries = append(summaries, summary)
	}

	// Most recent activity first; conversations with no messages sink.
	sort.SliceStable(summaries, func(i, j int) bool {
		return laterThan(summaries[i], summaries[j])
	})

	utils.WriteJSON(w, http.StatusOK, summaries)
}

func laterThan(a, b ConversationSummary) bool {
	if a.LastAt == nil {
		return false
	}
	if b.LastAt == nil {
		return true
	}
	return a.LastAt.After(*b.LastAt)
}

// GetConversationHandler returns a conversation's messages oldest-first and
// marks the other side's messages as read.
func GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	convo, status, errMsg := loadConversation(chi.URLParam(r, "id"), userID)
	if errMsg != "" {
		utils.WriteError(w, status, errMsg)
		return
	}

	var msgs []Message
	if err := db.DB.
		Where("conversation_id = ?", convo.ID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	now := time.Now()
	db.DB.Model(&Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", convo.ID, userID).
		Update("read_at", now)

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"conversation": convo,
		"messages":     msgs,
	})
}

// PostMessageHandler appends a message to an existing conversation.
func PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	type postRequest struct {
		Body string `json:"body"`
	}

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Missing user ID in context")
		return
	}

	convo, status, errMsg := loadConversation(chi.URLParam(r, "id"), userID)
	if errMsg != "" {
		utils.WriteError(w, status, errMsg)
		return
	}

	var body postRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Body) == "" {
		utils.WriteError(w, http.StatusBadRequest, "body is required")
		return
	}

	msg := Message{
		ID:             uuid.New(),
		ConversationID: convo.ID,
		SenderID:       userID,
		Body:           strings.TrimSpace(body.Body),
	}
	if err := db.DB.Create(&msg).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, msg)
}

func loadConversation(rawID, userID string) (Conversation, int, string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Conversation{}, http.StatusBadRequest, "Invalid conversation ID"
	}

	var convo Conversation
	if err := db.DB.First(&convo, "id = ?", id).Error; err != nil {
		return Conversation{}, http.StatusNotFound, "Conversation not found"
	}
	if !convo.hasParticipant(userID) {
		return Conversation{}, http.StatusForbidden, "Not your conversation"
	}
	return convo, http.StatusOK, ""
}
