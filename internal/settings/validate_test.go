package settings

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/concierge-bot/internal/core/domain"
)

func TestValidateInt(t *testing.T) {
	spec := &Setting{Key: "max_retries", Kind: KindInt, Min: bound(0), Max: bound(10)}

	v, err := Validate(spec, "3")
	require.NoError(t, err)
	assert.Equal(t, 3, v.Int)

	// inclusive bounds
	_, err = Validate(spec, "10")
	assert.NoError(t, err)
	_, err = Validate(spec, "11")
	assert.Error(t, err)

	// non-ASCII digits are rejected even though strconv could parse some
	_, err = Validate(spec, "٣")
	assert.Error(t, err)

	_, err = Validate(spec, "3.5")
	assert.Error(t, err)
	_, err = Validate(spec, "-1")
	assert.Error(t, err)
}

func TestValidateFloat(t *testing.T) {
	spec := &Setting{Key: "retry_backoff", Kind: KindFloat, Min: bound(0), Max: bound(60)}

	v, err := Validate(spec, "0.5")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v.Float)

	_, err = Validate(spec, "1e3")
	assert.Error(t, err)
	_, err = Validate(spec, "61")
	assert.Error(t, err)
}

func TestValidateBoolStrict(t *testing.T) {
	spec := &Setting{Key: "sponsor_fail_closed", Kind: KindBool}

	v, err := Validate(spec, "true")
	require.NoError(t, err)
	assert.True(t, v.Bool)

	v, err = Validate(spec, "false")
	require.NoError(t, err)
	assert.False(t, v.Bool)

	// strict path: only the exact lowercase literals are accepted
	for _, raw := range []string{"True", "FALSE", "yes", "1", "on"} {
		_, err := Validate(spec, raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestValidateEnumCaseVariants(t *testing.T) {
	spec := &Setting{Key: "mode", Kind: KindEnum, Allowed: []string{"Fast", "slow", "OFF"}}

	for raw, want := range map[string]string{
		"Fast": "Fast", // exact
		"SLOW": "slow", // lowercased input matches
		"off":  "OFF",  // uppercased input matches
		"slow": "slow",
	} {
		v, err := Validate(spec, raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, want, v.Str)
		assert.Contains(t, spec.Allowed, v.Str)
	}

	// mixed-case input that no case variant can reach is rejected
	_, err := Validate(spec, "sLoW")
	assert.Error(t, err)
	_, err = Validate(spec, "medium")
	assert.Error(t, err)
}

func TestValidateStringClearSentinels(t *testing.T) {
	optional := &Setting{Key: "fallback_model", Kind: KindString, Optional: true}
	required := &Setting{Key: "default_model", Kind: KindString, MinLen: 1}

	for _, raw := range []string{"", "none", "null", "unset", "-", "None"} {
		v, err := Validate(optional, raw)
		require.NoError(t, err, "sentinel %q", raw)
		assert.True(t, v.Cleared)

		_, err = Validate(required, raw)
		assert.Error(t, err, "required setting must reject sentinel %q", raw)
	}
}

func TestValidateStringConstraints(t *testing.T) {
	spec := &Setting{
		Key: "base_url", Kind: KindString,
		MinLen: 1, MaxLen: 20, Pattern: regexp.MustCompile(`^https?://\S+$`),
	}

	_, err := Validate(spec, "https://api.example")
	assert.NoError(t, err)

	_, err = Validate(spec, "ftp://api.example")
	assert.Error(t, err)

	_, err = Validate(spec, "https://api.example.com/very/long/path")
	assert.Error(t, err)
}

func TestValidateChannelList(t *testing.T) {
	spec, ok := Lookup(KeySponsorChannels)
	require.True(t, ok)

	v, err := Validate(spec, "https://t.me/foo, @bar, foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"@foo", "@bar"}, v.List)

	_, err = Validate(spec, "@foo, +AbCdEf")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidChannel, domain.KindOf(err))
}

func TestValidateModelList(t *testing.T) {
	spec, ok := Lookup(KeyAllowedModels)
	require.True(t, ok)

	v, err := Validate(spec, "gpt-4o, claude-3.5, gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "claude-3.5"}, v.List)

	_, err = Validate(spec, "gpt 4o")
	assert.Error(t, err)
}

func TestValueEncode(t *testing.T) {
	assert.Equal(t, "3", Value{Kind: KindInt, Int: 3}.Encode())
	assert.Equal(t, "0.5", Value{Kind: KindFloat, Float: 0.5}.Encode())
	assert.Equal(t, "true", Value{Kind: KindBool, Bool: true}.Encode())
	assert.Equal(t, "@a,@b", Value{Kind: KindChannelList, List: []string{"@a", "@b"}}.Encode())
	assert.Equal(t, "", Value{Kind: KindString, Cleared: true}.Encode())
}
