package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, svc *MockService) *Session {
	t.Helper()
	agentID, err := svc.CreateAgent(context.Background(), DefaultProfile())
	require.NoError(t, err)
	return NewSession(svc, agentID, time.Millisecond)
}

func TestSessionExchange(t *testing.T) {
	svc := &MockService{}
	sess := newTestSession(t, svc)
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	require.NotEmpty(t, sess.ID())

	prompt := DefaultPrompts().Content("a brave hedgehog")
	require.NoError(t, sess.Post(ctx, prompt))

	ex, err := sess.AwaitReply(ctx)
	require.NoError(t, err)
	assert.Equal(t, prompt, ex.Prompt)
	assert.True(t, ex.Completed())
	assert.Contains(t, ex.Reply, "a brave hedgehog")

	sess.Close(ctx)
	assert.Empty(t, sess.ID())
	assert.Zero(t, svc.OpenSessions())
}

func TestSessionRequiresOpen(t *testing.T) {
	svc := &MockService{}
	sess := newTestSession(t, svc)

	t.Run("post", func(t *testing.T) {
		assert.Error(t, sess.Post(context.Background(), "hello"))
	})
	t.Run("await reply", func(t *testing.T) {
		_, err := sess.AwaitReply(context.Background())
		assert.Error(t, err)
	})
}

func TestSessionPollsUntilTerminal(t *testing.T) {
	svc := &MockService{}
	sess := newTestSession(t, svc)
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	require.NoError(t, sess.Post(ctx, DefaultPrompts().Content("dragons")))
	ex, err := sess.AwaitReply(ctx)
	require.NoError(t, err)

	assert.True(t, ex.Completed())
	polls := svc.RunPolls()
	require.Len(t, polls, 1)
	for id, n := range polls {
		assert.GreaterOrEqual(t, n, 2, "run %s must be polled through queued and in_progress", id)
	}
}

func TestSessionFailedRunHasNoReply(t *testing.T) {
	svc := &MockService{FailContaining: "dragons"}
	sess := newTestSession(t, svc)
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	require.NoError(t, sess.Post(ctx, DefaultPrompts().Content("dragons")))

	ex, err := sess.AwaitReply(ctx)
	require.NoError(t, err)
	assert.False(t, ex.Completed())
	assert.Equal(t, RunFailed, ex.Run.Status)
	assert.Empty(t, ex.Reply)
}

func TestSessionAwaitReplyHonorsCancellation(t *testing.T) {
	svc := &MockService{}
	sess := newTestSession(t, svc)

	require.NoError(t, sess.Open(context.Background()))
	require.NoError(t, sess.Post(context.Background(), DefaultPrompts().Content("dragons")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sess.AwaitReply(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Cleanup still works after cancellation.
	sess.Close(ctx)
	assert.Zero(t, svc.OpenSessions())
}
