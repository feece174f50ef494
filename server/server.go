package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"auto_fairy_tale_writer/book"
	"auto_fairy_tale_writer/generator"
)

// Server exposes the storyteller over HTTP: one synchronous endpoint that
// generates a book of fairy tales and returns the PDF.
type Server struct {
	svc     generator.ConversationService
	builder *book.Builder

	// Timeout bounds one whole generation request.
	Timeout time.Duration
	// PollInterval is handed to the storyteller; zero keeps the default.
	PollInterval time.Duration
	// Profile is the agent persona; zero value keeps the default.
	Profile generator.AgentProfile
}

func New(svc generator.ConversationService) (*Server, error) {
	if svc == nil {
		return nil, errors.New("conversation service required")
	}
	return &Server{
		svc:     svc,
		builder: book.NewBuilder(),
		Timeout: 10 * time.Minute,
		Profile: generator.DefaultProfile(),
	}, nil
}

// Routes wires the handlers.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/storybooks", s.handleStorybook)
	mux.HandleFunc("/healthz", s.handleHealth)
	return logMiddleware(mux)
}

// --- Handlers ---

type storybookReq struct {
	Topics []string `json:"topics"`
}

func (s *Server) handleStorybook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req storybookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := []generator.Option{generator.WithPollInterval(s.PollInterval)}
	if s.Profile != (generator.AgentProfile{}) {
		opts = append(opts, generator.WithProfile(s.Profile))
	}
	teller, err := generator.NewStoryteller(s.svc, req.Topics, opts...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.Timeout)
	defer cancel()
	if err := teller.Start(ctx); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer func() {
		cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer ccancel()
		if err := teller.Shutdown(cctx); err != nil {
			log.Warn().Err(err).Msg("agent cleanup failed")
		}
	}()

	stories, err := teller.WriteStories(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if len(stories) == 0 {
		http.Error(w, "no stories were generated", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := s.builder.Render(stories, &buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="Fairy tales.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
