package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alphalink/alphalink/internal/adapters/ws"
	"github.com/alphalink/alphalink/internal/app/chat"
	"github.com/alphalink/alphalink/internal/app/registry"
	"github.com/alphalink/alphalink/internal/app/workflow"
	"github.com/alphalink/alphalink/internal/domain"
)

// Server exposes the session registry, message log and collaboration
// workflow over HTTP JSON, plus per-channel WebSocket watch endpoints.
type Server struct {
	registry *registry.Service
	chat     *chat.Service
	workflow *workflow.Service
	hub      *ws.Hub
	validate *validator.Validate
}

// NewServer wires the routes. hub may be nil, which disables the watch
// endpoints.
func NewServer(reg *registry.Service, chatSvc *chat.Service, wf *workflow.Service, hub *ws.Hub) http.Handler {
	s := &Server{
		registry: reg,
		chat:     chatSvc,
		workflow: wf,
		hub:      hub,
		validate: validator.New(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /personas", s.handleListPersonas)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}/participants", s.handleListParticipants)
	mux.HandleFunc("POST /sessions/{id}/participants", s.handleJoinSession)
	mux.HandleFunc("DELETE /sessions/{id}/participants/{userID}", s.handleLeaveSession)
	mux.HandleFunc("GET /sessions/{id}/messages", s.handleListMessages)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handlePostMessage)
	mux.HandleFunc("GET /sessions/{id}/watch", s.handleWatchSession)

	mux.HandleFunc("POST /projects", s.handleCreateProject)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	mux.HandleFunc("POST /projects/{id}/suggestions", s.entityHandler(domain.KindProject, s.addSuggestion))
	mux.HandleFunc("POST /projects/{id}/analysis", s.entityHandler(domain.KindProject, s.runAnalysis))
	mux.HandleFunc("GET /projects/{id}/watch", s.entityHandler(domain.KindProject, s.watchEntity))

	mux.HandleFunc("POST /copilot-sessions", s.handleCreateCopilotSession)
	mux.HandleFunc("GET /copilot-sessions/{id}", s.handleGetCopilotSession)
	mux.HandleFunc("POST /copilot-sessions/{id}/suggestions", s.entityHandler(domain.KindCopilotSession, s.addSuggestion))
	mux.HandleFunc("POST /copilot-sessions/{id}/analysis", s.entityHandler(domain.KindCopilotSession, s.runAnalysis))
	mux.HandleFunc("GET /copilot-sessions/{id}/watch", s.entityHandler(domain.KindCopilotSession, s.watchEntity))

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────

type createSessionRequest struct {
	Name string `json:"name" validate:"required"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions     []sessionResponse `json:"sessions"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

type joinSessionRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type participantResponse struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type listParticipantsResponse struct {
	Participants []participantResponse `json:"participants"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

type postMessageRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Text      string `json:"text" validate:"required_without=MediaURL"`
	MediaURL  string `json:"media_url" validate:"omitempty,url"`
	PersonaID string `json:"persona_id"`
}

type messageResponse struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	Text           string    `json:"text,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	IsAIMessage    bool      `json:"is_ai_message,omitempty"`
}

type postMessageResponse struct {
	Success      bool             `json:"success"`
	MessageID    string           `json:"message_id,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	AIMessage    *messageResponse `json:"ai_message,omitempty"`
}

type listMessagesResponse struct {
	Messages     []messageResponse `json:"messages"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

type personaResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createProjectRequest struct {
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	IsPrivate     bool   `json:"is_private"`
	CreatedBy     string `json:"created_by" validate:"required"`
	CreatorID     string `json:"creator_id" validate:"required"`
	Roadmap       string `json:"roadmap"`
	Canvas        string `json:"canvas"`
	Documentation string `json:"documentation"`
}

type analyzedSuggestionResponse struct {
	Suggestion             string `json:"suggestion"`
	IncorporationRationale string `json:"incorporation_rationale"`
	IsIncorporated         bool   `json:"is_incorporated"`
}

type analysisResponse struct {
	AnalyzedSuggestions  []analyzedSuggestionResponse `json:"analyzed_suggestions"`
	RevisedDocumentation string                       `json:"revised_documentation"`
}

type projectResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	IsPrivate     bool              `json:"is_private"`
	CreatedBy     string            `json:"created_by"`
	CreatorID     string            `json:"creator_id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Roadmap       string            `json:"roadmap"`
	Canvas        string            `json:"canvas"`
	Documentation string            `json:"documentation"`
	Suggestions   []string          `json:"suggestions"`
	Analysis      *analysisResponse `json:"analysis,omitempty"`
	State         string            `json:"state"`
}

type listProjectsResponse struct {
	Projects     []projectResponse `json:"projects"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

type createCopilotSessionRequest struct {
	Name               string `json:"name" validate:"required"`
	ProjectDescription string `json:"project_description"`
	CreatedBy          string `json:"created_by" validate:"required"`
	CreatorID          string `json:"creator_id" validate:"required"`
}

type copilotSessionResponse struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	ProjectDescription string            `json:"project_description"`
	CreatedBy          string            `json:"created_by"`
	CreatorID          string            `json:"creator_id"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Suggestions        []string          `json:"suggestions"`
	Analysis           *analysisResponse `json:"analysis,omitempty"`
	State              string            `json:"state"`
}

type addSuggestionRequest struct {
	Suggestion string `json:"suggestion" validate:"required"`
}

// ─────────────────────────────────────────────
// Session handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	personas := s.chat.Personas()
	out := make([]personaResponse, 0, len(personas))
	for _, p := range personas {
		out = append(out, personaResponse{ID: p.ID, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"personas": out})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	session, err := s.registry.CreateSession(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: string(session.ID)})
}

// handleListSessions degrades to an empty list with an error message:
// read paths favor availability over failure.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.registry.ListSessions(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, listSessionsResponse{
			Sessions:     []sessionResponse{},
			ErrorMessage: "Could not load sessions.",
		})
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionResponse{
			ID:        string(session.ID),
			Name:      session.Name,
			CreatedAt: session.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: out})
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.registry.JoinSession(
		r.Context(),
		domain.SessionID(r.PathValue("id")),
		domain.UserID(req.UserID),
		req.Username,
	)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	result, err := s.registry.LeaveSession(
		r.Context(),
		domain.SessionID(r.PathValue("id")),
		domain.UserID(r.PathValue("userID")),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.registry.ListParticipants(r.Context(), domain.SessionID(r.PathValue("id")))
	if err != nil {
		writeJSON(w, http.StatusOK, listParticipantsResponse{
			Participants: []participantResponse{},
			ErrorMessage: "Could not load participants.",
		})
		return
	}

	out := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, participantResponse{
			ID:       string(p.ID),
			UserID:   string(p.UserID),
			Username: p.Username,
			JoinedAt: p.JoinedAt,
		})
	}
	writeJSON(w, http.StatusOK, listParticipantsResponse{Participants: out})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	out, err := s.chat.PostMessage(r.Context(), chat.PostMessageInput{
		SessionID: domain.SessionID(r.PathValue("id")),
		UserID:    domain.UserID(req.UserID),
		Username:  req.Username,
		Text:      req.Text,
		MediaURL:  req.MediaURL,
		PersonaID: req.PersonaID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := postMessageResponse{
		Success:      out.Success,
		ErrorMessage: out.ErrorMessage,
	}
	if out.UserMessage != nil {
		resp.MessageID = string(out.UserMessage.ID)
	}
	if out.AIMessage != nil {
		m := toMessageResponse(out.AIMessage)
		resp.AIMessage = &m
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.ListMessages(r.Context(), domain.SessionID(r.PathValue("id")))
	if err != nil {
		writeJSON(w, http.StatusOK, listMessagesResponse{
			Messages:     []messageResponse{},
			ErrorMessage: "Could not load messages.",
		})
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, listMessagesResponse{Messages: out})
}

func (s *Server) handleWatchSession(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.NotFound(w, r)
		return
	}
	s.hub.Serve(w, r, domain.SessionChannel(domain.SessionID(r.PathValue("id"))))
}

// ─────────────────────────────────────────────
// Collaboration handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !s.decode(w, r, &req) {
		return
	}

	project, err := s.workflow.CreateProject(r.Context(), workflow.CreateProjectInput{
		Name:          req.Name,
		Description:   req.Description,
		IsPrivate:     req.IsPrivate,
		CreatedBy:     req.CreatedBy,
		CreatorID:     domain.UserID(req.CreatorID),
		Roadmap:       req.Roadmap,
		Canvas:        req.Canvas,
		Documentation: req.Documentation,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.workflow.ListProjects(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, listProjectsResponse{
			Projects:     []projectResponse{},
			ErrorMessage: "Could not load projects.",
		})
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, listProjectsResponse{Projects: out})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.workflow.GetProject(r.Context(), domain.EntityID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(project))
}

func (s *Server) handleCreateCopilotSession(w http.ResponseWriter, r *http.Request) {
	var req createCopilotSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	session, err := s.workflow.CreateCopilotSession(r.Context(), workflow.CreateCopilotSessionInput{
		Name:               req.Name,
		ProjectDescription: req.ProjectDescription,
		CreatedBy:          req.CreatedBy,
		CreatorID:          domain.UserID(req.CreatorID),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCopilotSessionResponse(session))
}

func (s *Server) handleGetCopilotSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.workflow.GetCopilotSession(r.Context(), domain.EntityID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCopilotSessionResponse(session))
}

// entityHandler binds the collaboration kind for routes shared between
// projects and co-pilot sessions.
func (s *Server) entityHandler(kind domain.CollabKind, h func(http.ResponseWriter, *http.Request, domain.CollabKind, domain.EntityID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, kind, domain.EntityID(r.PathValue("id")))
	}
}

func (s *Server) addSuggestion(w http.ResponseWriter, r *http.Request, kind domain.CollabKind, id domain.EntityID) {
	var req addSuggestionRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.workflow.AddSuggestion(r.Context(), kind, id, req.Suggestion)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, kind domain.CollabKind, id domain.EntityID) {
	result, err := s.workflow.RunAnalysis(r.Context(), kind, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse(result))
}

func (s *Server) watchEntity(w http.ResponseWriter, r *http.Request, kind domain.CollabKind, id domain.EntityID) {
	if s.hub == nil {
		http.NotFound(w, r)
		return
	}
	s.hub.Serve(w, r, domain.EntityChannel(kind, id))
}

// ─────────────────────────────────────────────
// Mapping helpers
// ─────────────────────────────────────────────

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:             string(m.ID),
		SessionID:      string(m.SessionID),
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		Text:           m.Text,
		MediaURL:       m.MediaURL,
		Timestamp:      m.Timestamp,
		IsAIMessage:    m.IsAIMessage,
	}
}

func toAnalysisResponse(a *domain.Analysis) *analysisResponse {
	if a == nil {
		return nil
	}
	out := &analysisResponse{RevisedDocumentation: a.RevisedDocumentation}
	for _, s := range a.AnalyzedSuggestions {
		out.AnalyzedSuggestions = append(out.AnalyzedSuggestions, analyzedSuggestionResponse(s))
	}
	return out
}

func toProjectResponse(p *domain.Project) projectResponse {
	suggestions := p.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return projectResponse{
		ID:            string(p.ID),
		Name:          p.Name,
		Description:   p.Description,
		IsPrivate:     p.IsPrivate,
		CreatedBy:     p.CreatedBy,
		CreatorID:     string(p.CreatorID),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Roadmap:       p.Roadmap,
		Canvas:        p.Canvas,
		Documentation: p.Documentation,
		Suggestions:   suggestions,
		Analysis:      toAnalysisResponse(p.Analysis),
		State:         string(p.View().State()),
	}
}

func toCopilotSessionResponse(c *domain.CopilotSession) copilotSessionResponse {
	suggestions := c.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return copilotSessionResponse{
		ID:                 string(c.ID),
		Name:               c.Name,
		ProjectDescription: c.ProjectDescription,
		CreatedBy:          c.CreatedBy,
		CreatorID:          string(c.CreatorID),
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		Suggestions:        suggestions,
		Analysis:           toAnalysisResponse(c.Analysis),
		State:              string(c.View().State()),
	}
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

// decode parses and validates a JSON body, writing the 400 itself when
// the input is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		badRequest(w, err.Error())
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrGenerationFailure):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "the AI service returned no usable output"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
