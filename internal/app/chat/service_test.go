package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalink/alphalink/internal/adapters/llm"
	"github.com/alphalink/alphalink/internal/adapters/storage/memory"
	"github.com/alphalink/alphalink/internal/app/chat"
	"github.com/alphalink/alphalink/internal/domain"
)

type fixture struct {
	svc      *chat.Service
	sessions *memory.SessionStore
	mock     *llm.MockClient
}

func newFixture(t *testing.T) (*fixture, domain.SessionID) {
	t.Helper()

	sessions := memory.NewSessionStore()
	messages := memory.NewMessageStore()
	mock := llm.NewMockClient()
	svc := chat.NewService(sessions, messages, mock, nil, chat.DefaultCatalog())

	session := &domain.Session{ID: "s1", Name: "Design Review", CreatedAt: time.Now()}
	require.NoError(t, sessions.CreateSession(context.Background(), session))

	return &fixture{svc: svc, sessions: sessions, mock: mock}, session.ID
}

func TestPostMessagePersists(t *testing.T) {
	ctx := context.Background()
	f, sessionID := newFixture(t)

	out, err := f.svc.PostMessage(ctx, chat.PostMessageInput{
		SessionID: sessionID,
		UserID:    "uA",
		Username:  "alice",
		Text:      "Let's ship v2",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.UserMessage)
	assert.Nil(t, out.AIMessage)

	msgs, err := f.svc.ListMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Let's ship v2", msgs[0].Text)
	assert.Equal(t, "uA", msgs[0].SenderID)
	assert.False(t, msgs[0].IsAIMessage)
}

func TestPostMessageMissingSessionIsSoft(t *testing.T) {
	f, _ := newFixture(t)

	out, err := f.svc.PostMessage(context.Background(), chat.PostMessageInput{
		SessionID: "missing",
		UserID:    "uA",
		Username:  "alice",
		Text:      "hello",
	})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "Session not found.", out.ErrorMessage)
}

func TestPostMessageRequiresTextOrMedia(t *testing.T) {
	f, sessionID := newFixture(t)

	_, err := f.svc.PostMessage(context.Background(), chat.PostMessageInput{
		SessionID: sessionID,
		UserID:    "uA",
		Username:  "alice",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

// The scenario from the product brief: a user message, an @ai command
// and the AI reply make exactly three messages in post order.
func TestAICommandAppendsReply(t *testing.T) {
	ctx := context.Background()
	f, sessionID := newFixture(t)

	_, err := f.svc.PostMessage(ctx, chat.PostMessageInput{
		SessionID: sessionID, UserID: "uA", Username: "alice", Text: "Let's ship v2",
	})
	require.NoError(t, err)

	out, err := f.svc.PostMessage(ctx, chat.PostMessageInput{
		SessionID: sessionID, UserID: "uB", Username: "bob", Text: "@ai summarize the plan",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.ErrorMessage)
	require.NotNil(t, out.AIMessage)

	msgs, err := f.svc.ListMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// The command message is persisted verbatim, prefix included.
	assert.Equal(t, "@ai summarize the plan", msgs[1].Text)
	assert.Equal(t, "uB", msgs[1].SenderID)

	reply := msgs[2]
	assert.Equal(t, domain.SenderAI, reply.SenderID)
	assert.True(t, reply.IsAIMessage)
	assert.NotEmpty(t, reply.Text)
	assert.Equal(t, domain.DefaultPersonaLabel, reply.SenderUsername)
}

func TestAICommandUsesPersonaName(t *testing.T) {
	ctx := context.Background()
	f, sessionID := newFixture(t)

	out, err := f.svc.PostMessage(ctx, chat.PostMessageInput{
		SessionID: sessionID,
		UserID:    "uA",
		Username:  "alice",
		Text:      "@AI what do you think?",
		PersonaID: "atlas",
	})
	require.NoError(t, err)
	require.NotNil(t, out.AIMessage)
	assert.Equal(t, "Atlas", out.AIMessage.SenderUsername)
}

func TestAIFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	f, sessionID := newFixture(t)
	f.mock.ReplyErr = errors.New("backend unavailable")

	out, err := f.svc.PostMessage(ctx, chat.PostMessageInput{
		SessionID: sessionID, UserID: "uA", Username: "alice", Text: "@ai help",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.ErrorMessage)
	assert.Nil(t, out.AIMessage)

	msgs, err := f.svc.ListMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "@ai help", msgs[0].Text)
}

func TestStripAICommand(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		command bool
	}{
		{"@ai summarize the plan", "summarize the plan", true},
		{"@AI Summarize", "Summarize", true},
		{"  @ai   spaced out  ", "spaced out", true},
		{"@ai", "", true},
		{"@aid something", "", false},
		{"plain message", "", false},
		{"ask @ai later", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, isCommand := chat.StripAICommand(tc.in)
		assert.Equal(t, tc.command, isCommand, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
