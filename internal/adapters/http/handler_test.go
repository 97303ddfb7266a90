package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/alphalink/alphalink/internal/adapters/http"
	"github.com/alphalink/alphalink/internal/adapters/llm"
	"github.com/alphalink/alphalink/internal/adapters/storage/memory"
	"github.com/alphalink/alphalink/internal/app/chat"
	"github.com/alphalink/alphalink/internal/app/registry"
	"github.com/alphalink/alphalink/internal/app/workflow"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	sessions := memory.NewSessionStore()
	messages := memory.NewMessageStore()
	collab := memory.NewCollabStore()
	mock := llm.NewMockClient()

	registrySvc := registry.NewService(sessions, nil)
	chatSvc := chat.NewService(sessions, messages, mock, nil, chat.DefaultCatalog())
	workflowSvc := workflow.NewService(collab, mock, nil)

	return httpadapter.NewServer(registrySvc, chatSvc, workflowSvc, nil)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinMissingSessionIsSoft(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/sessions/missing/participants", map[string]string{
		"user_id":  "u1",
		"username": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, w, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "Session not found.", resp.Message)
}

func TestSessionChatFlow(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{"name": "Design Review"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		SessionID string `json:"session_id"`
	}
	decodeBody(t, w, &created)
	require.NotEmpty(t, created.SessionID)

	base := "/sessions/" + created.SessionID

	w = doJSON(t, srv, http.MethodPost, base+"/participants", map[string]string{
		"user_id": "uA", "username": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, base+"/messages", map[string]string{
		"user_id": "uA", "username": "alice", "text": "Let's ship v2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, base+"/messages", map[string]string{
		"user_id": "uB", "username": "bob", "text": "@ai summarize the plan",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var posted struct {
		Success   bool `json:"success"`
		AIMessage *struct {
			SenderID string `json:"sender_id"`
			Text     string `json:"text"`
		} `json:"ai_message"`
	}
	decodeBody(t, w, &posted)
	assert.True(t, posted.Success)
	require.NotNil(t, posted.AIMessage)
	assert.Equal(t, "ai", posted.AIMessage.SenderID)
	assert.NotEmpty(t, posted.AIMessage.Text)

	w = doJSON(t, srv, http.MethodGet, base+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Messages []struct {
			Text        string `json:"text"`
			SenderID    string `json:"sender_id"`
			IsAIMessage bool   `json:"is_ai_message"`
		} `json:"messages"`
	}
	decodeBody(t, w, &listed)
	require.Len(t, listed.Messages, 3)
	assert.Equal(t, "@ai summarize the plan", listed.Messages[1].Text)
	assert.True(t, listed.Messages[2].IsAIMessage)
}

func TestPostMessageRequiresTextOrMedia(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{"name": "x"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	decodeBody(t, w, &created)

	w = doJSON(t, srv, http.MethodPost, "/sessions/"+created.SessionID+"/messages", map[string]string{
		"user_id": "uA", "username": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectWorkflowFlow(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/projects", map[string]any{
		"name":          "Launch plan",
		"created_by":    "alice",
		"creator_id":    "uA",
		"documentation": "Initial draft.",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var project struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	decodeBody(t, w, &project)
	require.NotEmpty(t, project.ID)
	assert.Equal(t, "empty", project.State)

	base := "/projects/" + project.ID

	// Analysis before any suggestion is a soft failure.
	w = doJSON(t, srv, http.MethodPost, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, w, &result)
	assert.False(t, result.Success)
	assert.Equal(t, "No suggestions to analyze.", result.Message)

	for i := 0; i < 2; i++ {
		w = doJSON(t, srv, http.MethodPost, base+"/suggestions", map[string]string{
			"suggestion": fmt.Sprintf("idea %d", i),
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &result)
	assert.True(t, result.Success)

	w = doJSON(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var full struct {
		State    string `json:"state"`
		Analysis *struct {
			AnalyzedSuggestions  []any  `json:"analyzed_suggestions"`
			RevisedDocumentation string `json:"revised_documentation"`
		} `json:"analysis"`
		Documentation string `json:"documentation"`
	}
	decodeBody(t, w, &full)
	assert.Equal(t, "analyzed", full.State)
	require.NotNil(t, full.Analysis)
	assert.Len(t, full.Analysis.AnalyzedSuggestions, 2)
	assert.Equal(t, full.Analysis.RevisedDocumentation, full.Documentation)
}

func TestGetMissingProjectIs404(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/projects/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPersonas(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/personas", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Personas []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"personas"`
	}
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.Personas)
}
