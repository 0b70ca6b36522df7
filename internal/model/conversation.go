package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message is a single question/answer exchange. Messages live embedded in
// their conversation and have no identity of their own.
type Message struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Conversation is a per-user ordered log of question/answer exchanges.
// The message list is stored as a JSON column and is append-only: entries
// are never reordered or removed.
type Conversation struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID      `json:"userId" gorm:"type:char(36);not null;index"`
	Summary   string         `json:"summary" gorm:"size:255"`
	Messages  datatypes.JSON `json:"messages" gorm:"type:json"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// BeforeCreate sets UUID and an empty message list before creating the record.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if len(c.Messages) == 0 {
		c.Messages = datatypes.JSON("[]")
	}
	return nil
}

// MessageList decodes the stored message log.
func (c *Conversation) MessageList() ([]Message, error) {
	if len(c.Messages) == 0 {
		return nil, nil
	}
	var messages []Message
	if err := json.Unmarshal(c.Messages, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// AppendMessage adds one exchange to the end of the message log.
func (c *Conversation) AppendMessage(m Message) error {
	messages, err := c.MessageList()
	if err != nil {
		return err
	}
	messages = append(messages, m)
	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	c.Messages = datatypes.JSON(raw)
	return nil
}
