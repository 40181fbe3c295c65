package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ChatSessionCache remembers which chat session belongs to a (document, user)
// pair so each chat turn can skip the lookup.
type ChatSessionCache struct {
	cache *cache.Cache
}

func NewChatSessionCache() *ChatSessionCache {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ChatSessionCache{
		cache: c,
	}
}

func sessionKey(documentId uint, userId uuid.UUID) string {
	return fmt.Sprintf("%d:%s", documentId, userId)
}

func (r *ChatSessionCache) Save(documentId uint, userId uuid.UUID, sessionId uint) {
	r.cache.Set(sessionKey(documentId, userId), sessionId, cache.DefaultExpiration)
}

func (r *ChatSessionCache) Get(documentId uint, userId uuid.UUID) (uint, bool) {
	if x, found := r.cache.Get(sessionKey(documentId, userId)); found {
		return x.(uint), true
	}
	return 0, false
}

// ForgetDocument drops every cached session of a document, whatever the user.
func (r *ChatSessionCache) ForgetDocument(documentId uint) {
	prefix := fmt.Sprintf("%d:", documentId)
	for key := range r.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			r.cache.Delete(key)
		}
	}
}
