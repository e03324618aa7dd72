package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStoreToggles(t *testing.T) {
	s := NewSessionStore()

	assert.False(t, s.AssistantActive("5215550001"))
	s.SetAssistant("5215550001", true)
	assert.True(t, s.AssistantActive("5215550001"))
	assert.False(t, s.AssistantActive("5215550002"))
	s.SetAssistant("5215550001", false)
	assert.False(t, s.AssistantActive("5215550001"))
}

func TestDedupCacheSuppressesRepeats(t *testing.T) {
	d := NewDedupCache(10)
	now := time.Now()

	assert.False(t, d.Seen("5215550001", "hello", now))
	assert.True(t, d.Seen("5215550001", "hello", now))

	// Different sender or text is a different fingerprint.
	assert.False(t, d.Seen("5215550002", "hello", now))
	assert.False(t, d.Seen("5215550001", "hello again", now))

	// A later time bucket makes the same text fresh again.
	assert.False(t, d.Seen("5215550001", "hello", now.Add(2*time.Minute)))
}

func TestDedupCacheEvictsOldestFirst(t *testing.T) {
	d := NewDedupCache(3)
	now := time.Now()

	d.Seen("u", "m1", now)
	d.Seen("u", "m2", now)
	d.Seen("u", "m3", now)

	// Capacity reached; the next insert evicts m1.
	assert.False(t, d.Seen("u", "m4", now))
	assert.False(t, d.Seen("u", "m1", now))

	// m3 survived the eviction.
	assert.True(t, d.Seen("u", "m3", now))
}

func TestDedupCacheBoundedUnderChurn(t *testing.T) {
	d := NewDedupCache(5)
	now := time.Now()

	for i := 0; i < 100; i++ {
		d.Seen("u", fmt.Sprintf("m%d", i), now)
	}
	assert.Equal(t, 5, d.order.Len())
	assert.Equal(t, 5, len(d.seen))
}
