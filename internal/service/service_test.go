package service

import (
	"context"
	"sync"
	"testing"

	"insightdocs-be/internal/entity"
	"insightdocs-be/internal/model"
	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/internal/repository/memory"
	"insightdocs-be/internal/repository/unitofwork"
	"insightdocs-be/pkg/database"
	"insightdocs-be/pkg/events"
	"insightdocs-be/pkg/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	uowFactory    unitofwork.RepositoryFactory
	cache         *memory.ChatSessionCache
	storages      *storage.Registry
	local         *storage.LocalStorage
	publisher     *recordingPublisher
	conversations IConversationService
	documents     IDocumentService
	log           logger.ILogger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewInMemorySqlite(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	storages, err := storage.NewRegistry(storage.BackendLocal, local)
	require.NoError(t, err)

	env := &testEnv{
		db:         db,
		uowFactory: unitofwork.NewRepositoryFactory(db),
		cache:      memory.NewChatSessionCache(),
		storages:   storages,
		local:      local,
		publisher:  &recordingPublisher{},
		log:        logger.NewNopLogger(),
	}
	env.conversations = NewConversationService(env.uowFactory, env.cache)
	env.documents = NewDocumentService(env.uowFactory, storages, env.conversations, env.cache, env.publisher, env.log)
	return env
}

func (e *testEnv) seedDocument(t *testing.T, owner uuid.UUID, originalName string) *entity.Document {
	t.Helper()
	doc := &entity.Document{
		OwnerId:        owner,
		Title:          "Seeded",
		StorageBackend: storage.BackendLocal,
		StorageKey:     "documents/" + uuid.NewString() + "-" + originalName,
		OriginalName:   originalName,
	}
	uow := e.uowFactory.NewUnitOfWork(context.Background())
	require.NoError(t, uow.DocumentRepository().Create(context.Background(), doc))
	return doc
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}
