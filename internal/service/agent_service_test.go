package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/patsaid/ts-agentic-api/internal/model"
)

// MockConversationRepository is a mock implementation of ConversationRepository.
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, conversation *model.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) Save(ctx context.Context, conversation *model.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// stubAgent is a deterministic stand-in for the external engine.
type stubAgent struct {
	answer    string
	err       error
	questions []string
}

func (a *stubAgent) Ask(ctx context.Context, question string) (string, error) {
	a.questions = append(a.questions, question)
	if a.err != nil {
		return "", a.err
	}
	return a.answer, nil
}

func messageCount(t *testing.T, conversation *model.Conversation) int {
	t.Helper()
	messages, err := conversation.MessageList()
	assert.NoError(t, err)
	return len(messages)
}

func existingConversation(t *testing.T, userID uuid.UUID, exchanges int) *model.Conversation {
	t.Helper()
	conversation := &model.Conversation{
		ID:      uuid.New(),
		UserID:  userID,
		Summary: "earlier talk...",
	}
	for i := 0; i < exchanges; i++ {
		err := conversation.AppendMessage(model.Message{Question: "q", Answer: "a"})
		assert.NoError(t, err)
	}
	return conversation
}

func TestAgentService_Ask_CreatesConversationWhenNoneExists(t *testing.T) {
	userID := uuid.New()
	mockRepo := new(MockConversationRepository)
	mockRepo.On("FindLatestByUser", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)

	var created *model.Conversation
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Conversation")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Conversation)
		}).
		Return(nil)

	engine := &stubAgent{answer: "Emmanuel Macron."}
	svc := NewAgentService(mockRepo, engine, nil)

	answer, conversation, err := svc.Ask(context.Background(), userID, "Who is the president of France?", "")

	assert.NoError(t, err)
	assert.Equal(t, "Emmanuel Macron.", answer)
	assert.NotNil(t, created)
	assert.Equal(t, created.ID, conversation.ID)
	assert.Equal(t, userID, created.UserID)
	assert.Equal(t, "Who is the president of France?...", created.Summary)
	assert.Equal(t, 1, messageCount(t, created))
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestAgentService_Ask_AppendsToExplicitConversation(t *testing.T) {
	userID := uuid.New()
	conversation := existingConversation(t, userID, 2)

	mockRepo := new(MockConversationRepository)
	mockRepo.On("FindByID", mock.Anything, conversation.ID).Return(conversation, nil)
	mockRepo.On("Save", mock.Anything, conversation).Return(nil)

	engine := &stubAgent{answer: "42"}
	svc := NewAgentService(mockRepo, engine, nil)

	answer, resolved, err := svc.Ask(context.Background(), userID, "What is the answer?", conversation.ID.String())

	assert.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Equal(t, conversation.ID, resolved.ID)
	assert.Equal(t, 3, messageCount(t, resolved))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "FindLatestByUser", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestAgentService_Ask_FallbackPaths(t *testing.T) {
	userID := uuid.New()
	foreign := existingConversation(t, uuid.New(), 1)

	tests := []struct {
		name           string
		conversationID string
		setupMock      func(m *MockConversationRepository, latest *model.Conversation)
	}{
		{
			name:           "no conversation id falls back to latest",
			conversationID: "",
			setupMock:      func(m *MockConversationRepository, latest *model.Conversation) {},
		},
		{
			name:           "malformed conversation id falls back to latest",
			conversationID: "not-a-uuid",
			setupMock:      func(m *MockConversationRepository, latest *model.Conversation) {},
		},
		{
			name:           "unknown conversation id falls back to latest",
			conversationID: uuid.NewString(),
			setupMock: func(m *MockConversationRepository, latest *model.Conversation) {
				m.On("FindByID", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
			},
		},
		{
			name:           "conversation owned by another user falls back to latest",
			conversationID: foreign.ID.String(),
			setupMock: func(m *MockConversationRepository, latest *model.Conversation) {
				m.On("FindByID", mock.Anything, foreign.ID).Return(foreign, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := existingConversation(t, userID, 1)
			mockRepo := new(MockConversationRepository)
			tt.setupMock(mockRepo, latest)
			mockRepo.On("FindLatestByUser", mock.Anything, userID).Return(latest, nil)
			mockRepo.On("Save", mock.Anything, latest).Return(nil)

			engine := &stubAgent{answer: "sunny"}
			svc := NewAgentService(mockRepo, engine, nil)

			_, resolved, err := svc.Ask(context.Background(), userID, "What is the weather in Paris?", tt.conversationID)

			assert.NoError(t, err)
			assert.Equal(t, latest.ID, resolved.ID)
			assert.Equal(t, 2, messageCount(t, resolved))
			assert.Equal(t, 1, messageCount(t, foreign), "foreign conversation must stay untouched")
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAgentService_Ask_EngineFailurePersistsNothing(t *testing.T) {
	mockRepo := new(MockConversationRepository)
	engine := &stubAgent{err: errors.New("upstream down")}
	svc := NewAgentService(mockRepo, engine, nil)

	answer, conversation, err := svc.Ask(context.Background(), uuid.New(), "anything", "")

	assert.Error(t, err)
	assert.Empty(t, answer)
	assert.Nil(t, conversation)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAgentService_Ask_PersistenceFailureSurfaces(t *testing.T) {
	userID := uuid.New()
	mockRepo := new(MockConversationRepository)
	mockRepo.On("FindLatestByUser", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("store unavailable"))

	svc := NewAgentService(mockRepo, &stubAgent{answer: "a"}, nil)

	_, _, err := svc.Ask(context.Background(), userID, "q", "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
	mockRepo.AssertExpectations(t)
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("ab", 40) // 80 chars

	tests := []struct {
		name     string
		question string
		expected string
	}{
		{
			name:     "short question keeps full text",
			question: "Hi?",
			expected: "Hi?...",
		},
		{
			name:     "exactly fifty characters",
			question: strings.Repeat("x", 50),
			expected: strings.Repeat("x", 50) + "...",
		},
		{
			name:     "long question truncates to fifty",
			question: long,
			expected: long[:50] + "...",
		},
		{
			name:     "multibyte characters count as characters",
			question: strings.Repeat("é", 60),
			expected: strings.Repeat("é", 50) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, summarize(tt.question))
		})
	}
}

func TestAgentService_NewConversation(t *testing.T) {
	userID := uuid.New()
	mockRepo := new(MockConversationRepository)

	var created *model.Conversation
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Conversation")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Conversation)
		}).
		Return(nil)

	svc := NewAgentService(mockRepo, &stubAgent{}, nil)

	conversation, err := svc.NewConversation(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, userID, conversation.UserID)
	assert.Empty(t, conversation.Summary)
	assert.Equal(t, 0, messageCount(t, created))
	mockRepo.AssertExpectations(t)
}

func TestAgentService_Conversations(t *testing.T) {
	userID := uuid.New()
	listed := []model.Conversation{
		*existingConversation(t, userID, 2),
		*existingConversation(t, userID, 1),
	}

	mockRepo := new(MockConversationRepository)
	mockRepo.On("ListByUser", mock.Anything, userID).Return(listed, nil)

	svc := NewAgentService(mockRepo, &stubAgent{}, nil)

	conversations, err := svc.Conversations(context.Background(), userID)

	assert.NoError(t, err)
	assert.Len(t, conversations, 2)
	assert.Equal(t, listed[0].ID, conversations[0].ID)
	mockRepo.AssertExpectations(t)
}
