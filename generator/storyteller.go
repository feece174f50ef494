package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoTopics is returned when a Storyteller is built without any topic.
var ErrNoTopics = errors.New("at least one topic is required")

// Story is one finished fairy tale.
type Story struct {
	Content string
	Title   string
}

// Storyteller drives one remote agent to write a fairy tale per topic.
type Storyteller struct {
	svc          ConversationService
	topics       []string
	profile      AgentProfile
	prompts      Prompts
	pollInterval time.Duration

	agentID string
}

// Option tweaks a Storyteller.
type Option func(*Storyteller)

// WithPollInterval overrides how often run status is checked; zero or
// negative keeps DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(st *Storyteller) { st.pollInterval = d }
}

// WithProfile overrides the agent persona.
func WithProfile(p AgentProfile) Option {
	return func(st *Storyteller) { st.profile = p }
}

// WithPrompts overrides the two-message protocol; empty fields keep the
// defaults.
func WithPrompts(p Prompts) Option {
	return func(st *Storyteller) {
		if p.ContentPrefix != "" {
			st.prompts.ContentPrefix = p.ContentPrefix
		}
		if p.Title != "" {
			st.prompts.Title = p.Title
		}
	}
}

// NewStoryteller validates the topics and prepares an orchestrator. The
// remote agent is not created until Start.
func NewStoryteller(svc ConversationService, topics []string, opts ...Option) (*Storyteller, error) {
	if svc == nil {
		return nil, errors.New("conversation service is required")
	}
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	for _, t := range topics {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("topic %q is blank", t)
		}
	}
	st := &Storyteller{
		svc:     svc,
		topics:  topics,
		profile: DefaultProfile(),
		prompts: DefaultPrompts(),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st, nil
}

// Start creates the remote agent. Failing here is fatal for the whole run.
func (st *Storyteller) Start(ctx context.Context) error {
	id, err := st.svc.CreateAgent(ctx, st.profile)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	st.agentID = id
	log.Debug().Str("agent", id).Str("model", st.profile.Model).Msg("agent created")
	return nil
}

// Shutdown deletes the remote agent created by Start. It is a no-op when
// Start did not succeed, and only the first call attempts the delete.
func (st *Storyteller) Shutdown(ctx context.Context) error {
	if st.agentID == "" {
		return nil
	}
	id := st.agentID
	st.agentID = ""
	if err := st.svc.DeleteAgent(ctx, id); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	return nil
}

// WriteStories runs one session per topic concurrently and collects the
// finished stories in topic order. A topic whose session, run, or reply
// fails is dropped without affecting its siblings; only cancellation aborts
// the whole batch, and then no partial results are returned.
func (st *Storyteller) WriteStories(ctx context.Context) ([]Story, error) {
	if st.agentID == "" {
		return nil, errors.New("storyteller is not started")
	}
	slots := make([]*Story, len(st.topics))
	g, gctx := errgroup.WithContext(ctx)
	for i, topic := range st.topics {
		i, topic := i, topic
		g.Go(func() error {
			story, err := st.tell(gctx, topic)
			if err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("topic dropped")
				return nil
			}
			slots[i] = &story
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stories := make([]Story, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			stories = append(stories, *s)
		}
	}
	return stories, nil
}

// tell runs the two-step dialogue for one topic: the tale itself, then its
// title. The second request is only posted when the first run completed.
func (st *Storyteller) tell(ctx context.Context, topic string) (Story, error) {
	sess := NewSession(st.svc, st.agentID, st.pollInterval)
	if err := sess.Open(ctx); err != nil {
		return Story{}, err
	}
	defer sess.Close(ctx)

	if err := sess.Post(ctx, st.prompts.Content(topic)); err != nil {
		return Story{}, err
	}
	content, err := sess.AwaitReply(ctx)
	if err != nil {
		return Story{}, err
	}
	if !content.Completed() {
		return Story{}, fmt.Errorf("content run ended with status %q", content.Run.Status)
	}

	if err := sess.Post(ctx, st.prompts.Title); err != nil {
		return Story{}, err
	}
	title, err := sess.AwaitReply(ctx)
	if err != nil {
		return Story{}, err
	}
	if !title.Completed() {
		return Story{}, fmt.Errorf("title run ended with status %q", title.Run.Status)
	}

	log.Debug().Str("topic", topic).Str("session", sess.ID()).Msg("story finished")
	return Story{
		Content: FlattenMarkdown(content.Reply),
		Title:   CleanTitle(title.Reply),
	}, nil
}
