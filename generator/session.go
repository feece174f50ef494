package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is how often a run's status is re-checked while a
// reply is being generated.
const DefaultPollInterval = 500 * time.Millisecond

// Exchange is one request/response round trip: the outbound prompt, the run
// that answered it, and the reply when the run completed.
type Exchange struct {
	Prompt string
	Run    Run
	Reply  string
}

// Completed reports whether the exchange's run finished successfully.
func (e Exchange) Completed() bool { return e.Run.Status == RunCompleted }

// Session owns one remote dialogue. Exchanges are strictly sequential: a
// message is posted, then its reply is awaited before the next message.
type Session struct {
	svc          ConversationService
	agentID      string
	pollInterval time.Duration

	id      string
	pending string
}

// NewSession prepares a session against svc; Open creates the remote side.
// A non-positive pollInterval falls back to DefaultPollInterval.
func NewSession(svc ConversationService, agentID string, pollInterval time.Duration) *Session {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Session{svc: svc, agentID: agentID, pollInterval: pollInterval}
}

// ID returns the remote session handle, empty before Open.
func (s *Session) ID() string { return s.id }

// Open creates the remote session.
func (s *Session) Open(ctx context.Context) error {
	id, err := s.svc.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	s.id = id
	return nil
}

// Post sends a user message; the reply is produced by the next AwaitReply.
func (s *Session) Post(ctx context.Context, text string) error {
	if s.id == "" {
		return errors.New("session is not open")
	}
	if err := s.svc.PostMessage(ctx, s.id, text); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	s.pending = text
	return nil
}

// AwaitReply starts a run for the pending message and polls its status until
// it turns terminal, suspending between polls. On completion the exchange
// carries the newest assistant reply; on any other terminal status the reply
// is empty and the caller decides what to do with the run.
func (s *Session) AwaitReply(ctx context.Context) (Exchange, error) {
	if s.id == "" {
		return Exchange{}, errors.New("session is not open")
	}
	run, err := s.svc.StartRun(ctx, s.id, s.agentID)
	if err != nil {
		return Exchange{}, fmt.Errorf("start run: %w", err)
	}
	for !run.Status.Terminal() {
		select {
		case <-ctx.Done():
			return Exchange{}, ctx.Err()
		case <-time.After(s.pollInterval):
		}
		next, err := s.svc.GetRun(ctx, s.id, run.ID)
		if err != nil {
			return Exchange{}, fmt.Errorf("poll run %s: %w", run.ID, err)
		}
		run = next
	}

	ex := Exchange{Prompt: s.pending, Run: run}
	s.pending = ""
	if run.Status != RunCompleted {
		return ex, nil
	}
	reply, err := s.latestReply(ctx)
	if err != nil {
		return Exchange{}, err
	}
	ex.Reply = reply
	return ex, nil
}

// latestReply returns the newest assistant message of the transcript.
func (s *Session) latestReply(ctx context.Context) (string, error) {
	messages, err := s.svc.ListMessages(ctx, s.id)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant {
			return messages[i].Text, nil
		}
	}
	return "", errors.New("run completed but no assistant reply found")
}

// Close deletes the remote session. It still runs when the surrounding
// operation was cancelled; failures are logged, never returned.
func (s *Session) Close(ctx context.Context) {
	if s.id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.svc.DeleteSession(ctx, s.id); err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("failed to close session")
	}
	s.id = ""
}
