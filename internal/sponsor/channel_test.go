package sponsor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/concierge-bot/internal/core/domain"
)

func TestNormalizeEquivalentForms(t *testing.T) {
	for _, raw := range []string{"https://t.me/foo", "http://t.me/foo", "t.me/foo", "@foo", "foo", "  @foo  "} {
		ch, err := Normalize(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, "@foo", ch.ID)
		assert.Equal(t, "@foo", ch.Label)
		assert.Equal(t, "https://t.me/foo", ch.URL)
	}
}

func TestNormalizeRejectsInviteLinks(t *testing.T) {
	for _, raw := range []string{"+AbCdEf", "joinchat/xyz", "https://t.me/+AbCdEf", "t.me/joinchat/xyz"} {
		_, err := Normalize(raw)
		require.Error(t, err, "input %q", raw)
		assert.Equal(t, domain.KindInvalidChannel, domain.KindOf(err))
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "@", "-1001234567890", "12345", "has space", "emoji🙂"} {
		_, err := Normalize(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestNormalizeIsCaseSensitive(t *testing.T) {
	a, err := Normalize("@Foo")
	require.NoError(t, err)
	b, err := Normalize("@foo")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNormalizeListDeduplicates(t *testing.T) {
	channels, err := NormalizeList([]string{"@foo", "https://t.me/foo", "@bar", "foo"})
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "@foo", channels[0].ID)
	assert.Equal(t, "@bar", channels[1].ID)
}

func TestParseCSV(t *testing.T) {
	channels, err := ParseCSV(" @foo , t.me/bar ,, @foo ")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "@foo", channels[0].ID)
	assert.Equal(t, "@bar", channels[1].ID)

	_, err = ParseCSV("@ok, +invite")
	assert.Error(t, err)
}
