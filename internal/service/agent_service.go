package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/patsaid/ts-agentic-api/internal/agent"
	"github.com/patsaid/ts-agentic-api/internal/cache"
	"github.com/patsaid/ts-agentic-api/internal/model"
	"github.com/patsaid/ts-agentic-api/internal/repository"
)

// summaryLimit is how many characters of the first question become the
// conversation summary.
const summaryLimit = 50

const conversationsCacheTTL = 5 * time.Minute

// AgentService forwards questions to the agent engine and persists the
// resulting exchanges into conversations.
type AgentService interface {
	// Ask runs the question through the agent and appends the exchange to
	// the resolved conversation. conversationID may be empty or stale.
	Ask(ctx context.Context, userID uuid.UUID, question, conversationID string) (string, *model.Conversation, error)
	NewConversation(ctx context.Context, userID uuid.UUID) (*model.Conversation, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
}

type agentService struct {
	conversations repository.ConversationRepository
	agent         agent.Agent
	cache         *cache.Client
	// Mutex map for per-user serialization of conversation resolution
	userMutexes sync.Map
}

// NewAgentService creates an AgentService on top of a conversation store and
// an agent engine.
func NewAgentService(conversations repository.ConversationRepository, engine agent.Agent, cache *cache.Client) AgentService {
	return &agentService{conversations: conversations, agent: engine, cache: cache}
}

func conversationsCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("conversations:%s", userID)
}

// getMutex returns the mutex for a specific user ID.
func (s *agentService) getMutex(userID uuid.UUID) *sync.Mutex {
	value, _ := s.userMutexes.LoadOrStore(userID.String(), &sync.Mutex{})
	return value.(*sync.Mutex)
}

// Ask obtains the answer first; nothing is persisted when the engine fails.
// Resolution and persistence then run under a per-user mutex so two
// concurrent asks without an explicit conversation id cannot race each other
// into duplicate conversations.
func (s *agentService) Ask(ctx context.Context, userID uuid.UUID, question, conversationID string) (string, *model.Conversation, error) {
	answer, err := s.agent.Ask(ctx, question)
	if err != nil {
		return "", nil, err
	}

	mu := s.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	conversation, created, err := s.resolveConversation(ctx, userID, question, conversationID)
	if err != nil {
		return "", nil, err
	}

	if err := conversation.AppendMessage(model.Message{Question: question, Answer: answer}); err != nil {
		return "", nil, fmt.Errorf("append message: %w", err)
	}

	if created {
		err = s.conversations.Create(ctx, conversation)
	} else {
		err = s.conversations.Save(ctx, conversation)
	}
	if err != nil {
		return "", nil, fmt.Errorf("persist conversation: %w", err)
	}

	_ = s.cache.Delete(ctx, conversationsCacheKey(userID))
	return answer, conversation, nil
}

// resolveConversation picks the conversation that receives the next
// exchange. Every ask-style entry point goes through this exact sequence:
//
//  1. an explicit id wins when it parses, exists and belongs to the user;
//  2. otherwise the user's most recently created conversation;
//  3. otherwise a fresh conversation summarized from the question.
func (s *agentService) resolveConversation(ctx context.Context, userID uuid.UUID, question, conversationID string) (*model.Conversation, bool, error) {
	if conversationID != "" {
		if id, err := uuid.Parse(conversationID); err == nil {
			conversation, err := s.conversations.FindByID(ctx, id)
			switch {
			case err == nil && conversation.UserID == userID:
				return conversation, false, nil
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return nil, false, fmt.Errorf("find conversation: %w", err)
			}
			// not found or owned by someone else: fall back below
		}
	}

	conversation, err := s.conversations.FindLatestByUser(ctx, userID)
	if err == nil {
		return conversation, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find latest conversation: %w", err)
	}

	return &model.Conversation{
		ID:      uuid.New(),
		UserID:  userID,
		Summary: summarize(question),
	}, true, nil
}

// NewConversation starts an explicit empty conversation for a user.
func (s *agentService) NewConversation(ctx context.Context, userID uuid.UUID) (*model.Conversation, error) {
	conversation := &model.Conversation{
		ID:     uuid.New(),
		UserID: userID,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	_ = s.cache.Delete(ctx, conversationsCacheKey(userID))
	return conversation, nil
}

// Conversations lists a user's conversations, newest first.
func (s *agentService) Conversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	key := conversationsCacheKey(userID)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var cached []model.Conversation
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	conversations, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(conversations); err == nil {
		_ = s.cache.Set(ctx, key, payload, conversationsCacheTTL)
	}
	return conversations, nil
}

// summarize keeps the first summaryLimit characters of the question and
// always appends the ellipsis marker, mirroring the stored summary format.
func summarize(question string) string {
	runes := []rune(question)
	if len(runes) > summaryLimit {
		runes = runes[:summaryLimit]
	}
	return string(runes) + "..."
}
