package services

import (
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/crasadev/crasabot/models"
)

// ChatService persists conversation history for prompt grounding and admin
// review.
type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// Record stores one chat turn. raw may carry the original webhook payload
// for incoming messages; pass nil for outgoing ones.
func (s *ChatService) Record(userID uint, direction, message string, raw []byte) error {
	turn := models.ChatMessage{
		UserID:    userID,
		Direction: direction,
		Message:   message,
	}
	if raw != nil {
		turn.RawPayload = datatypes.JSON(raw)
	}
	return s.db.Create(&turn).Error
}

// RecentHistory returns the latest turns for a user in chronological order.
func (s *ChatService) RecentHistory(userID uint, limit int) ([]models.ChatMessage, error) {
	var turns []models.ChatMessage
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// LastOutgoing returns the bot's most recent message to the user, or empty
// when there is none yet.
func (s *ChatService) LastOutgoing(userID uint) (string, error) {
	var turn models.ChatMessage
	err := s.db.Where("user_id = ? AND direction = ?", userID, models.DirectionOutgoing).
		Order("created_at DESC").
		First(&turn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return turn.Message, nil
}

// ClearHistory deletes every stored turn for a user and returns how many
// rows went away.
func (s *ChatService) ClearHistory(userID uint) (int64, error) {
	result := s.db.Where("user_id = ?", userID).Delete(&models.ChatMessage{})
	return result.RowsAffected, result.Error
}
