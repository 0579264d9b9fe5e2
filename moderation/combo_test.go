package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombos(t *testing.T) {
	assert := assert.New(t)

	combos, err := ParseCombos("🇳,I,G;😡,🤬")
	require.NoError(t, err)
	require.Len(t, combos, 2)
	assert.Equal([]string{"🇳", "I", "G"}, combos[0].Tokens)
	assert.Equal([]string{"😡", "🤬"}, combos[1].Tokens)

	combos, err = ParseCombos(" 😡 , 🤬 ")
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal([]string{"😡", "🤬"}, combos[0].Tokens)

	_, err = ParseCombos("🇳,I,G;;😡")
	assert.Error(err)

	_, err = ParseCombos("")
	assert.Error(err)
}

func TestParseTimeoutLadder(t *testing.T) {
	assert := assert.New(t)

	ladder, err := ParseTimeoutLadder("1m,5m,15m,60m")
	require.NoError(t, err)
	assert.Equal([]time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		60 * time.Minute,
	}, ladder)

	ladder, err = ParseTimeoutLadder("30s")
	require.NoError(t, err)
	assert.Equal([]time.Duration{30 * time.Second}, ladder)

	_, err = ParseTimeoutLadder("1m,bogus")
	assert.Error(err)

	_, err = ParseTimeoutLadder("1m,-5m")
	assert.Error(err)
}
