// Package web serves the chat widget API: answers, personality management and
// the signed media links handed out in answers.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/edgard/companionbot/internal/agent"
	"github.com/edgard/companionbot/internal/config"
	"github.com/edgard/companionbot/internal/database"
	"github.com/edgard/companionbot/internal/personality"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
	defaultSession  = "default"
)

// Answerer answers chat input. *chat.Service satisfies it.
type Answerer interface {
	Answer(ctx context.Context, chatKey, input string, adapters ...agent.ChannelAdapter) (*agent.Result, error)
}

// PersonalityStore reads and changes the active personality. *personality.Store satisfies it.
type PersonalityStore interface {
	Current(ctx context.Context) (personality.Personality, error)
	Set(ctx context.Context, p personality.Personality) error
	SetPreset(ctx context.Context, name string) (personality.Personality, error)
}

// BlockSource loads stored media. database.Store satisfies it.
type BlockSource interface {
	GetBlock(ctx context.Context, id string) (*database.Block, error)
}

// URLVerifier checks the signature of a media link. *media.SignedURLPublisher satisfies it.
type URLVerifier interface {
	Verify(id, exp, sig string) error
}

// Deps are the collaborators of the web server. Verifier may be nil, in which
// case no media is served.
type Deps struct {
	Logger        *slog.Logger
	Config        config.WebConfig
	Messages      config.MessagesConfig
	Chat          Answerer
	Personalities PersonalityStore
	Blocks        BlockSource
	Verifier      URLVerifier
}

// Server is the HTTP front end of the web widget.
type Server struct {
	deps    Deps
	log     *slog.Logger
	handler http.Handler
}

// NewServer builds the routes and wraps them in the configured CORS policy.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps, log: deps.Logger.With("component", "web")}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /answer", s.handleAnswer)
	mux.HandleFunc("GET /personality", s.handleGetPersonality)
	mux.HandleFunc("POST /personality", s.handleSetPersonality)
	mux.HandleFunc("GET /media/{id}", s.handleMedia)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.handler = corsPolicy(deps.Config.AllowedOrigins).Handler(mux)
	return s
}

func corsPolicy(origins []string) *cors.Cors {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return cors.AllowAll()
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.deps.Config.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Web server shutdown failed", "error", err)
		}
	}()

	s.log.Info("Web server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("Web server stopped")
	return nil
}

type answerRequest struct {
	Question      string `json:"question"`
	ChatSessionID string `json:"chat_session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}
	session := strings.TrimSpace(req.ChatSessionID)
	if session == "" {
		session = defaultSession
	}

	collector := &Collector{}
	_, err := s.deps.Chat.Answer(ctx, ChatKey(session), req.Question, collector)
	items := collector.Items()
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to answer", "error", err, "session", session)
		if len(items) == 0 {
			items = []Item{{Who: WhoBot, Text: s.deps.Messages.ErrorGeneralMsg}}
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetPersonality(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Personalities.Current(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to load personality", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: s.deps.Messages.ErrorGeneralMsg})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// personalityRequest either names a preset or carries a full personality.
type personalityRequest struct {
	Preset string `json:"preset"`
	personality.Personality
}

func (s *Server) handleSetPersonality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req personalityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var (
		p   personality.Personality
		err error
	)
	if req.Preset != "" {
		p, err = s.deps.Personalities.SetPreset(ctx, req.Preset)
	} else {
		p = req.Personality
		err = s.deps.Personalities.Set(ctx, p)
	}

	switch {
	case errors.Is(err, personality.ErrUnknownPreset), errors.Is(err, personality.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case err != nil:
		s.log.ErrorContext(ctx, "Failed to set personality", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: s.deps.Messages.ErrorGeneralMsg})
	default:
		s.log.InfoContext(ctx, "Personality changed via web", "name", p.Name)
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Verifier == nil || s.deps.Blocks == nil {
		http.NotFound(w, r)
		return
	}

	id := r.PathValue("id")
	q := r.URL.Query()
	if err := s.deps.Verifier.Verify(id, q.Get("exp"), q.Get("sig")); err != nil {
		s.log.InfoContext(ctx, "Rejected media request", "id", id, "error", err)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	block, err := s.deps.Blocks.GetBlock(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load media", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", block.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "", block.CreatedAt, bytes.NewReader(block.Data))
}

// ChatKey scopes history to one widget session.
func ChatKey(session string) string {
	return "web:" + session
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
