package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_fairy_tale_writer/generator"
)

func testServer(t *testing.T, svc generator.ConversationService) *httptest.Server {
	t.Helper()
	srv, err := New(svc)
	require.NoError(t, err)
	srv.PollInterval = time.Millisecond
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestStorybookEndpoint(t *testing.T) {
	svc := &generator.MockService{}
	ts := testServer(t, svc)

	resp, err := http.Post(ts.URL+"/api/storybooks", "application/json",
		strings.NewReader(`{"topics":["dragon","princess"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Fairy tales.pdf")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	// The per-request agent and all sessions were cleaned up.
	assert.Zero(t, svc.OpenAgents())
	assert.Zero(t, svc.OpenSessions())
}

func TestStorybookEndpointRejectsBadRequests(t *testing.T) {
	ts := testServer(t, &generator.MockService{})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/storybooks")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/storybooks", "application/json",
			strings.NewReader(`{"topics":`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("no topics", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/storybooks", "application/json",
			strings.NewReader(`{"topics":[]}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStorybookEndpointWhenNothingGenerated(t *testing.T) {
	svc := &generator.MockService{FailContaining: "Write a fairy tale"}
	ts := testServer(t, svc)

	resp, err := http.Post(ts.URL+"/api/storybooks", "application/json",
		strings.NewReader(`{"topics":["dragon"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Zero(t, svc.OpenAgents())
}

func TestHealthz(t *testing.T) {
	ts := testServer(t, &generator.MockService{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
