package reactstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemReactionStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rs := NewMemReactionStore(100, time.Hour)

	set, err := rs.Add(ctx, "msg1", "user1", "🇳")
	assert.NoError(err)
	assert.ElementsMatch([]string{"🇳"}, set)

	set, err = rs.Add(ctx, "msg1", "user1", "I")
	assert.NoError(err)
	assert.ElementsMatch([]string{"🇳", "I"}, set)

	// adding the same emoji twice is a no-op on the set
	set, err = rs.Add(ctx, "msg1", "user1", "I")
	assert.NoError(err)
	assert.ElementsMatch([]string{"🇳", "I"}, set)

	// keys are scoped to (message, user)
	set, err = rs.Add(ctx, "msg2", "user1", "G")
	assert.NoError(err)
	assert.ElementsMatch([]string{"G"}, set)
	set, err = rs.Add(ctx, "msg1", "user2", "G")
	assert.NoError(err)
	assert.ElementsMatch([]string{"G"}, set)

	assert.NoError(rs.Clear(ctx, "msg1", "user1"))
	set, err = rs.Add(ctx, "msg1", "user1", "G")
	assert.NoError(err)
	assert.ElementsMatch([]string{"G"}, set)
}

func TestMemReactionStoreEviction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// capacity of two keys: the oldest entry is dropped when a third arrives
	rs := NewMemReactionStore(2, time.Hour)
	_, err := rs.Add(ctx, "msg1", "user1", "a")
	assert.NoError(err)
	_, err = rs.Add(ctx, "msg2", "user1", "b")
	assert.NoError(err)
	_, err = rs.Add(ctx, "msg3", "user1", "c")
	assert.NoError(err)

	set, err := rs.Add(ctx, "msg1", "user1", "d")
	assert.NoError(err)
	assert.ElementsMatch([]string{"d"}, set)
}

func TestMemReactionStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	rs := NewMemReactionStore(1000, time.Hour)

	// hammer the same key from several goroutines; run with -race
	var wg sync.WaitGroup
	emojis := []string{"a", "b", "c", "d"}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(emoji string) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := rs.Add(ctx, "msg1", "user1", emoji)
				assert.NoError(err)
				time.Sleep(time.Nanosecond)
			}
		}(emojis[i])
	}
	wg.Wait()

	set, err := rs.Add(ctx, "msg1", "user1", "e")
	assert.NoError(err)
	assert.ElementsMatch([]string{"a", "b", "c", "d", "e"}, set)
}
