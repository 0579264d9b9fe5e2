package moderation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alertium/alertium/moderation/offensestore"
	"github.com/alertium/alertium/moderation/reactstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedActor struct {
	punishments []Punishment
	scrubbed    []string
	logged      int
	timeoutErr  error
}

func (a *capturedActor) ApplyTimeout(ctx context.Context, p Punishment) error {
	a.punishments = append(a.punishments, p)
	return a.timeoutErr
}

func (a *capturedActor) ScrubReactions(ctx context.Context, channelID, messageID, userID string) error {
	a.scrubbed = append(a.scrubbed, messageID+"/"+userID)
	return nil
}

func (a *capturedActor) LogPunishment(ctx context.Context, p Punishment) error {
	a.logged++
	return nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func engineFixture() (*Engine, *capturedActor, *testClock) {
	actor := &capturedActor{}
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	eng := &Engine{
		Reactions: reactstore.NewMemReactionStore(1000, time.Hour),
		Offenses:  offensestore.NewMemOffenseStore(),
		Combos:    DefaultCombos(),
		Actor:     actor,
		Now:       func() time.Time { return clock.now },
	}
	return eng, actor, clock
}

func react(t *testing.T, eng *Engine, messageID, userID string, emojis ...string) {
	t.Helper()
	ctx := context.Background()
	for _, e := range emojis {
		require.NoError(t, eng.ProcessReactionAdd(ctx, ReactionEvent{
			MessageID: messageID,
			ChannelID: "chan1",
			GuildID:   "guild1",
			UserID:    userID,
			Emoji:     e,
		}))
	}
}

func TestComboMatching(t *testing.T) {
	assert := assert.New(t)

	combo := NewCombo("🇳", "I", "G")
	assert.False(combo.MatchedBy([]string{"🇳", "I"}))
	assert.True(combo.MatchedBy([]string{"🇳", "I", "G"}))
	// superset still matches
	assert.True(combo.MatchedBy([]string{"🎉", "🇳", "I", "G"}))
	assert.False(NewCombo().MatchedBy([]string{"a"}))
}

func TestFirstOffense(t *testing.T) {
	assert := assert.New(t)

	eng, actor, _ := engineFixture()
	react(t, eng, "msg1", "user1", "🇳", "I", "G")

	require.Len(t, actor.punishments, 1)
	p := actor.punishments[0]
	assert.Equal("user1", p.UserID)
	assert.Equal(1*time.Minute, p.Duration)
	assert.Equal(1, p.OffenseCount)
	assert.Equal([]string{"🇳", "I", "G"}, p.Combo.Tokens)
	assert.Equal("msg1", p.MessageID)
	assert.Equal([]string{"msg1/user1"}, actor.scrubbed)
	assert.Equal(1, actor.logged)
}

func TestCooldownSuppression(t *testing.T) {
	assert := assert.New(t)

	eng, actor, clock := engineFixture()
	react(t, eng, "msg1", "user1", "🇳", "I", "G")
	require.Len(t, actor.punishments, 1)

	// tracking was cleared on punishment; a second full combo within the
	// cooldown window matches again but is suppressed
	clock.Advance(3 * time.Second)
	react(t, eng, "msg1", "user1", "🇳", "I", "G")
	assert.Len(actor.punishments, 1)

	// after the window passes the residual tracked set (not cleared by
	// suppression) triggers on the next reaction event
	clock.Advance(11 * time.Second)
	react(t, eng, "msg1", "user1", "G")
	require.Len(t, actor.punishments, 2)
	assert.Equal(5*time.Minute, actor.punishments[1].Duration)
	assert.Equal(2, actor.punishments[1].OffenseCount)
}

func TestCooldownIsPerUserAcrossMessages(t *testing.T) {
	assert := assert.New(t)

	eng, actor, clock := engineFixture()
	react(t, eng, "msg1", "user1", "🇳", "I", "G")
	require.Len(t, actor.punishments, 1)

	// same user, different message, still inside the cooldown window
	clock.Advance(5 * time.Second)
	react(t, eng, "msg2", "user1", "😡", "🤬")
	assert.Len(actor.punishments, 1)

	// a different user is unaffected by user1's cooldown
	react(t, eng, "msg2", "user2", "😡", "🤬")
	require.Len(t, actor.punishments, 2)
	assert.Equal("user2", actor.punishments[1].UserID)
	assert.Equal(1, actor.punishments[1].OffenseCount)
}

func TestEscalationLadderCaps(t *testing.T) {
	assert := assert.New(t)

	eng, actor, clock := engineFixture()

	want := []time.Duration{1 * time.Minute, 5 * time.Minute, 15 * time.Minute, 60 * time.Minute, 60 * time.Minute, 60 * time.Minute}
	for i := range want {
		react(t, eng, fmt.Sprintf("msg%d", i), "user1", "🇳", "I", "G")
		clock.Advance(time.Minute)
	}

	require.Len(t, actor.punishments, len(want))
	for i, p := range actor.punishments {
		assert.Equal(want[i], p.Duration, "offense %d", i+1)
		assert.Equal(i+1, p.OffenseCount)
	}
}

func TestClearedTrackingBlocksRetrigger(t *testing.T) {
	assert := assert.New(t)

	eng, actor, clock := engineFixture()
	react(t, eng, "msg1", "user1", "🇳", "I", "G")
	require.Len(t, actor.punishments, 1)

	// tracking was cleared: a single further reaction outside the cooldown
	// window is not enough to re-match the combo
	clock.Advance(time.Minute)
	react(t, eng, "msg1", "user1", "G")
	assert.Len(actor.punishments, 1)
}

func TestOnlyFirstComboFires(t *testing.T) {
	assert := assert.New(t)

	eng, actor, _ := engineFixture()
	// this set matches both the three-token combo and its longer variants;
	// only the first in priority order is acted on
	react(t, eng, "msg1", "user1", "🇳", "I", "🇬", "E", "R", "G")

	require.Len(t, actor.punishments, 1)
	assert.Equal([]string{"🇳", "I", "G"}, actor.punishments[0].Combo.Tokens)
}

func TestTimeoutFailureKeepsBookkeeping(t *testing.T) {
	assert := assert.New(t)

	eng, actor, clock := engineFixture()
	actor.timeoutErr = fmt.Errorf("missing permissions")
	react(t, eng, "msg1", "user1", "🇳", "I", "G")
	require.Len(t, actor.punishments, 1)

	// the offense was committed despite the delivery failure: the next
	// trigger escalates rather than repeating the first tier
	actor.timeoutErr = nil
	clock.Advance(time.Minute)
	react(t, eng, "msg2", "user1", "😡", "🤬")
	require.Len(t, actor.punishments, 2)
	assert.Equal(2, actor.punishments[1].OffenseCount)
	assert.Equal(5*time.Minute, actor.punishments[1].Duration)
}
