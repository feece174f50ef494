package generator

import (
	"context"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Message roles used by the remote service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Settings carries the remote service configuration, read from the
// environment.
type Settings struct {
	APIKey       string        `envconfig:"OPENAI_API_KEY"`
	BaseURL      string        `envconfig:"OPENAI_BASE_URL"`
	Model        string        `envconfig:"FAIRYTALE_MODEL" default:"gpt-3.5-turbo-1106"`
	PollInterval time.Duration `envconfig:"FAIRYTALE_POLL_INTERVAL" default:"500ms"`
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// AgentProfile describes the persona of a remote agent.
type AgentProfile struct {
	Name        string
	Description string
	Model       string
}

// RunStatus is the remote service's view of one generation run. The service
// may report values beyond the constants below; anything that is neither
// queued nor in progress is terminal, and a terminal status other than
// completed counts as a failure.
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Terminal reports whether the run has stopped.
func (s RunStatus) Terminal() bool {
	return s != RunQueued && s != RunInProgress
}

// Run identifies one generation pass inside a session.
type Run struct {
	ID     string
	Status RunStatus
}

// Message is one entry of a session transcript.
type Message struct {
	Role string
	Text string
}

// ConversationService abstracts the remote conversational capability: agents
// that hold a persona, sessions that hold a transcript, and runs that make
// the agent answer the newest message.
type ConversationService interface {
	CreateAgent(ctx context.Context, profile AgentProfile) (string, error)
	DeleteAgent(ctx context.Context, agentID string) error
	CreateSession(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	PostMessage(ctx context.Context, sessionID, text string) error
	StartRun(ctx context.Context, sessionID, agentID string) (Run, error)
	GetRun(ctx context.Context, sessionID, runID string) (Run, error)
	// ListMessages returns the session transcript in chronological order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}
