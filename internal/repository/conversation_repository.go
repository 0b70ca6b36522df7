package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/patsaid/ts-agentic-api/internal/model"
)

// ConversationRepository defines conversation persistence operations.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *model.Conversation) error
	Save(ctx context.Context, conversation *model.Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a GORM-backed conversation repository.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *conversationRepository) Save(ctx context.Context, conversation *model.Conversation) error {
	return r.db.WithContext(ctx).Save(conversation).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindLatestByUser returns the most recently created conversation for a user.
func (r *conversationRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListByUser returns all conversations for a user, newest first.
func (r *conversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}
	return conversations, nil
}

// DeleteByUser removes every conversation owned by a user and reports how
// many rows were affected. Zero is not an error.
func (r *conversationRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Conversation{})
	return res.RowsAffected, res.Error
}
