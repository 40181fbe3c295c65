package memory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChatSessionCache(t *testing.T) {
	c := NewChatSessionCache()
	alice, bob := uuid.New(), uuid.New()

	_, found := c.Get(1, alice)
	assert.False(t, found)

	c.Save(1, alice, 10)
	c.Save(1, bob, 11)
	c.Save(12, alice, 20)

	id, found := c.Get(1, alice)
	assert.True(t, found)
	assert.Equal(t, uint(10), id)

	c.ForgetDocument(1)

	_, found = c.Get(1, alice)
	assert.False(t, found)
	_, found = c.Get(1, bob)
	assert.False(t, found)

	// document 12 shares the "1" prefix digit but not the key prefix
	id, found = c.Get(12, alice)
	assert.True(t, found)
	assert.Equal(t, uint(20), id)
}
