package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MockService is an in-memory ConversationService for local runs and tests.
// It never calls out: replies are a pure function of the posted messages,
// and runs advance one state per poll so callers actually wait.
type MockService struct {
	// FailContaining fails any run whose triggering message contains the
	// substring.
	FailContaining string
	// FailTitleContaining fails a session's second run when the session's
	// first message contains the substring.
	FailTitleContaining string

	mu       sync.Mutex
	agents   map[string]AgentProfile
	sessions map[string]*mockSession
	closed   map[string]*mockSession
	runs     map[string]*mockRun
}

type mockSession struct {
	messages []Message
	runCount int
}

type mockRun struct {
	sessionID string
	status    RunStatus
	fail      bool
	polls     int
}

func (m *MockService) init() {
	if m.agents == nil {
		m.agents = make(map[string]AgentProfile)
		m.sessions = make(map[string]*mockSession)
		m.closed = make(map[string]*mockSession)
		m.runs = make(map[string]*mockRun)
	}
}

func (m *MockService) CreateAgent(_ context.Context, profile AgentProfile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	id := "asst_" + uuid.NewString()
	m.agents[id] = profile
	return id, nil
}

func (m *MockService) DeleteAgent(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if _, ok := m.agents[agentID]; !ok {
		return fmt.Errorf("agent %s not found", agentID)
	}
	delete(m.agents, agentID)
	return nil
}

func (m *MockService) CreateSession(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	id := "thread_" + uuid.NewString()
	m.sessions[id] = &mockSession{}
	return id, nil
}

func (m *MockService) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	m.closed[sessionID] = sess
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockService) PostMessage(_ context.Context, sessionID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	sess.messages = append(sess.messages, Message{Role: RoleUser, Text: text})
	return nil
}

func (m *MockService) StartRun(_ context.Context, sessionID, agentID string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	if _, ok := m.agents[agentID]; !ok {
		return Run{}, fmt.Errorf("agent %s not found", agentID)
	}
	sess, ok := m.sessions[sessionID]
	if !ok {
		return Run{}, fmt.Errorf("session %s not found", sessionID)
	}
	sess.runCount++
	id := "run_" + uuid.NewString()
	m.runs[id] = &mockRun{
		sessionID: sessionID,
		status:    RunQueued,
		fail:      m.shouldFail(sess),
	}
	return Run{ID: id, Status: RunQueued}, nil
}

func (m *MockService) shouldFail(sess *mockSession) bool {
	if m.FailContaining != "" && strings.Contains(lastUserText(sess.messages), m.FailContaining) {
		return true
	}
	if m.FailTitleContaining != "" && sess.runCount == 2 &&
		len(sess.messages) > 0 && strings.Contains(sess.messages[0].Text, m.FailTitleContaining) {
		return true
	}
	return false
}

func (m *MockService) GetRun(_ context.Context, sessionID, runID string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	run, ok := m.runs[runID]
	if !ok || run.sessionID != sessionID {
		return Run{}, fmt.Errorf("run %s not found", runID)
	}
	run.polls++
	switch run.status {
	case RunQueued:
		run.status = RunInProgress
	case RunInProgress:
		if run.fail {
			run.status = RunFailed
		} else {
			run.status = RunCompleted
			if sess, ok := m.sessions[sessionID]; ok {
				sess.messages = append(sess.messages, Message{Role: RoleAssistant, Text: mockReply(sess.messages)})
			}
		}
	}
	return Run{ID: runID, Status: run.status}, nil
}

func (m *MockService) ListMessages(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	out := make([]Message, len(sess.messages))
	copy(out, sess.messages)
	return out, nil
}

// mockReply derives a deterministic answer from the transcript: the first
// run gets a little story around the prompt, later runs get a title built
// from the first prompt's last word.
func mockReply(messages []Message) string {
	replies := 0
	for _, msg := range messages {
		if msg.Role == RoleAssistant {
			replies++
		}
	}
	if replies == 0 {
		return fmt.Sprintf("Once upon a time, a storyteller was asked: %q.\n\nThe wish was granted, and everyone lived *happily* ever after.", lastUserText(messages))
	}
	return "The Tale of " + lastWord(firstUserText(messages))
}

func lastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Text
		}
	}
	return ""
}

func firstUserText(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == RoleUser {
			return msg.Text
		}
	}
	return ""
}

func lastWord(s string) string {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if len(fields) == 0 {
		return "Nothing"
	}
	return fields[len(fields)-1]
}

// --- Inspection helpers ---

// OpenSessions counts sessions created and not yet deleted.
func (m *MockService) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// OpenAgents counts agents created and not yet deleted.
func (m *MockService) OpenAgents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agents)
}

// Polls counts GetRun calls across all runs.
func (m *MockService) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, run := range m.runs {
		total += run.polls
	}
	return total
}

// RunPolls reports how many times each run was retrieved.
func (m *MockService) RunPolls() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.runs))
	for id, run := range m.runs {
		out[id] = run.polls
	}
	return out
}

// Transcripts returns a copy of every session transcript, open or closed.
func (m *MockService) Transcripts() map[string][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]Message, len(m.sessions)+len(m.closed))
	for id, sess := range m.sessions {
		out[id] = append([]Message(nil), sess.messages...)
	}
	for id, sess := range m.closed {
		out[id] = append([]Message(nil), sess.messages...)
	}
	return out
}
