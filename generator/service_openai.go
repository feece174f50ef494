package generator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService implements ConversationService on the OpenAI Assistants API.
type OpenAIService struct {
	client *openai.Client
}

// NewOpenAIService builds a client from cfg.
func NewOpenAIService(cfg Settings) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; pass -key or set OPENAI_API_KEY")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &OpenAIService{client: openai.NewClientWithConfig(config)}, nil
}

func (s *OpenAIService) CreateAgent(ctx context.Context, profile AgentProfile) (string, error) {
	assistant, err := s.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:       profile.Model,
		Name:        &profile.Name,
		Description: &profile.Description,
	})
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return assistant.ID, nil
}

func (s *OpenAIService) DeleteAgent(ctx context.Context, agentID string) error {
	if _, err := s.client.DeleteAssistant(ctx, agentID); err != nil {
		return fmt.Errorf("delete assistant %s: %w", agentID, err)
	}
	return nil
}

func (s *OpenAIService) CreateSession(ctx context.Context) (string, error) {
	thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (s *OpenAIService) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.client.DeleteThread(ctx, sessionID); err != nil {
		return fmt.Errorf("delete thread %s: %w", sessionID, err)
	}
	return nil
}

func (s *OpenAIService) PostMessage(ctx context.Context, sessionID, text string) error {
	_, err := s.client.CreateMessage(ctx, sessionID, openai.MessageRequest{
		Role:    RoleUser,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *OpenAIService) StartRun(ctx context.Context, sessionID, agentID string) (Run, error) {
	run, err := s.client.CreateRun(ctx, sessionID, openai.RunRequest{AssistantID: agentID})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return Run{ID: run.ID, Status: RunStatus(run.Status)}, nil
}

func (s *OpenAIService) GetRun(ctx context.Context, sessionID, runID string) (Run, error) {
	run, err := s.client.RetrieveRun(ctx, sessionID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return Run{ID: run.ID, Status: RunStatus(run.Status)}, nil
}

func (s *OpenAIService) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	order := "asc"
	list, err := s.client.ListMessage(ctx, sessionID, nil, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		messages = append(messages, Message{Role: m.Role, Text: firstText(m)})
	}
	return messages, nil
}

// firstText picks the first text part of a message; replies may carry
// non-text parts alongside.
func firstText(m openai.Message) string {
	for _, part := range m.Content {
		if part.Text != nil {
			return part.Text.Value
		}
	}
	return ""
}
