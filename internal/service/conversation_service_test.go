package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"insightdocs-be/internal/constant"
	"insightdocs-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIdIsStableUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	doc := env.seedDocument(t, owner, "notes.pdf")

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = env.conversations.SessionId(context.Background(), doc.Id, owner)
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	count, err := env.uowFactory.NewUnitOfWork(context.Background()).ChatSessionRepository().Count(
		context.Background(), specification.ByDocumentID{DocumentID: doc.Id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	cached, ok := env.cache.Get(doc.Id, owner)
	assert.True(t, ok)
	assert.Equal(t, ids[0], cached)
}

func TestAppendMessageTouchesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	doc := env.seedDocument(t, owner, "notes.pdf")

	session, err := env.conversations.GetOrCreateSession(ctx, doc.Id, owner)
	require.NoError(t, err)

	msg, err := env.conversations.AppendMessage(ctx, session.Id, constant.ChatMessageRoleUser, "hello")
	require.NoError(t, err)
	assert.NotZero(t, msg.Id)
	assert.False(t, msg.CreatedAt.IsZero())

	reloaded, err := env.uowFactory.NewUnitOfWork(ctx).ChatSessionRepository().FindOne(ctx, specification.ByID{ID: session.Id})
	require.NoError(t, err)
	require.NotNil(t, reloaded.UpdatedAt)
	assert.WithinDuration(t, msg.CreatedAt, *reloaded.UpdatedAt, time.Second)
}

func TestHistoryIsChronologicalWithoutPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	doc := env.seedDocument(t, owner, "notes.pdf")
	session, err := env.conversations.GetOrCreateSession(ctx, doc.Id, owner)
	require.NoError(t, err)

	first, err := env.conversations.AppendMessage(ctx, session.Id, constant.ChatMessageRoleUser, "one")
	require.NoError(t, err)
	_, err = env.conversations.AppendMessage(ctx, session.Id, constant.ChatMessageRoleAssistant, constant.GeneratingPlaceholder)
	require.NoError(t, err)
	_, err = env.conversations.AppendMessage(ctx, session.Id, constant.ChatMessageRoleAssistant, "two")
	require.NoError(t, err)
	last, err := env.conversations.AppendMessage(ctx, session.Id, constant.ChatMessageRoleUser, "three")
	require.NoError(t, err)

	history, err := env.conversations.History(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{history[0].Content, history[1].Content, history[2].Content})
	assert.Equal(t, first.Id, history[0].Id)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.Before(history[i-1].CreatedAt))
	}

	before, err := env.conversations.HistoryBefore(ctx, session.Id, last.Id)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, "two", before[1].Content)
}
