package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"langtutor/internal/models"
	"langtutor/internal/services/llm"
	"langtutor/internal/services/news"
	"langtutor/internal/services/roleplay"
)

const (
	wsWriteWait  = 10 * time.Second
	wsMaxPending = 8
)

// Keepalive timings; variables so tests can shorten them.
var (
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// sseWriter frames server-sent events onto a flushing response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

// send writes one event. An empty name produces an unnamed data event.
func (s *sseWriter) send(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

type fragmentEvent struct {
	Text string `json:"text"`
}

// relay forwards fragments as data events and returns the concatenated
// reply. It stops pulling from the stream once the client goes away.
func (s *sseWriter) relay(ctx context.Context, fragments iter.Seq[string]) (string, error) {
	var sb strings.Builder
	for f := range fragments {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		sb.WriteString(f)
		if err := s.send("", fragmentEvent{Text: f}); err != nil {
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

type chatRequest struct {
	providerRequest
	Language string               `json:"language"`
	Messages []models.ChatMessage `json:"messages"`
}

func (req chatRequest) validate() error {
	if len(req.Messages) == 0 {
		return errors.New("messages are required")
	}
	for i, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem, models.RoleUser, models.RoleAssistant:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}

// ChatStream streams a free-conversation reply as server-sent events: one
// data event per fragment, then a "done" event carrying the full reply.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, err.Error())
		return
	}
	p, model, ok := h.provider(w, req.providerRequest)
	if !ok {
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, news.ErrCodeInternal, "streaming unsupported")
		return
	}

	reply, err := sse.relay(r.Context(), p.StreamChat(r.Context(), model, req.Messages, req.Language))
	if err != nil {
		log.Ctx(r.Context()).Debug().Err(err).Msg("Chat stream ended early")
		return
	}
	_ = sse.send("done", fragmentEvent{Text: reply})
}

type wsInbound struct {
	Type     string               `json:"type"`
	Provider string               `json:"provider,omitempty"`
	Model    string               `json:"model,omitempty"`
	Language string               `json:"language,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
}

type wsOutbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChatWS serves the conversation over a websocket. Each inbound "chat"
// message streams back "fragment" messages followed by one "done".
// Requests on one connection are answered in order. The connection keeps
// reading while a reply streams so pongs extend the read deadline.
func (h *Handler) ChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := log.Ctx(r.Context()).With().Str("session_id", uuid.NewString()).Logger()
	logger.Info().Msg("Chat websocket opened")
	defer func() { logger.Info().Msg("Chat websocket closed") }()

	ctx, cancel := context.WithCancel(logger.WithContext(r.Context()))
	defer cancel()

	pongWait, pingEvery := wsPongWait, wsPingEvery
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writeCh := make(chan wsOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	push := func(out wsOutbound) bool {
		select {
		case writeCh <- out:
			return true
		case <-ctx.Done():
			return false
		}
	}

	inbound := make(chan wsInbound, wsMaxPending)
	go func() {
		defer cancel()
		for {
			var in wsInbound
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			select {
			case inbound <- in:
			default:
				push(wsOutbound{Type: "error", Code: "resource_exhausted", Message: "too many pending requests"})
			}
		}
	}()

	for {
		var in wsInbound
		select {
		case <-ctx.Done():
			<-writerDone
			return
		case in = <-inbound:
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			push(wsOutbound{Type: "pong"})
		case "chat":
			req := chatRequest{
				providerRequest: providerRequest{Provider: in.Provider, Model: in.Model},
				Language:        in.Language,
				Messages:        in.Messages,
			}
			if err := req.validate(); err != nil {
				push(wsOutbound{Type: "error", Code: "invalid_argument", Message: err.Error()})
				continue
			}
			p, model, err := h.registry.Resolve(in.Provider, in.Model)
			if err != nil {
				push(wsOutbound{Type: "error", Code: "invalid_argument", Message: err.Error()})
				continue
			}
			logger.Debug().Str("provider", p.Name()).Str("model", model).Int("messages", len(req.Messages)).Msg("Chat request")
			h.streamWS(ctx, p, model, req, push)
		default:
			push(wsOutbound{Type: "error", Code: "invalid_argument", Message: "unknown message type"})
		}
	}
}

func (h *Handler) streamWS(ctx context.Context, p llm.Provider, model string, req chatRequest, push func(wsOutbound) bool) {
	var sb strings.Builder
	for f := range p.StreamChat(ctx, model, req.Messages, req.Language) {
		sb.WriteString(f)
		if !push(wsOutbound{Type: "fragment", Text: f}) {
			return
		}
	}
	push(wsOutbound{Type: "done", Text: sb.String()})
}

// Scenarios lists the built-in roleplay scenarios.
func (h *Handler) Scenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": roleplay.Scenarios()})
}

type roleplayStartRequest struct {
	providerRequest
	Scenario    string `json:"scenario"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type roleplayDone struct {
	Text       string               `json:"text"`
	Messages   []models.ChatMessage `json:"messages"`
	Correction bool                 `json:"correction"`
}

// RoleplayStart streams the character's opening line. The "done" event
// carries the conversation the client sends back with each turn.
func (h *Handler) RoleplayStart(w http.ResponseWriter, r *http.Request) {
	var req roleplayStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "language is required")
		return
	}
	scenario, err := roleplay.Resolve(req.Scenario, req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, err.Error())
		return
	}
	p, model, ok := h.provider(w, req.providerRequest)
	if !ok {
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, news.ErrCodeInternal, "streaming unsupported")
		return
	}

	history := roleplay.Opening(scenario, req.Language)
	reply, err := sse.relay(r.Context(), p.StreamChat(r.Context(), model, history, req.Language))
	if err != nil {
		return
	}
	history = append(history, models.ChatMessage{Role: models.RoleAssistant, Content: reply})
	_ = sse.send("done", roleplayDone{Text: reply, Messages: history})
}

type roleplayTurnRequest struct {
	providerRequest
	roleplay.Turn
	Scenario    string `json:"scenario"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// RoleplayTurn answers one learner reply. A stop word ends the session with
// a plain JSON response instead of a stream.
func (h *Handler) RoleplayTurn(w http.ResponseWriter, r *http.Request) {
	var req roleplayTurnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if roleplay.IsStop(req.Input) {
		writeJSON(w, http.StatusOK, map[string]any{"ended": true, "messages": req.History})
		return
	}
	if strings.TrimSpace(req.Input) == "" || req.Language == "" {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, "input and language are required")
		return
	}
	scenario, err := roleplay.Resolve(req.Scenario, req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, news.ErrCodeValidation, err.Error())
		return
	}
	p, model, ok := h.provider(w, req.providerRequest)
	if !ok {
		return
	}
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, news.ErrCodeInternal, "streaming unsupported")
		return
	}

	reply, err := sse.relay(r.Context(), p.StreamChat(r.Context(), model, req.Turn.Messages(scenario, req.Language), req.Language))
	if err != nil {
		return
	}

	history := make([]models.ChatMessage, 0, len(req.History)+2)
	history = append(history, req.History...)
	history = append(history,
		models.ChatMessage{Role: models.RoleUser, Content: req.Input},
		models.ChatMessage{Role: models.RoleAssistant, Content: reply},
	)
	_ = sse.send("done", roleplayDone{
		Text:       reply,
		Messages:   history,
		Correction: roleplay.LooksLikeCorrection(reply),
	})
}
