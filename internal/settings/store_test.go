package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	calls  map[string]string
	failOn string
}

func (f *fakePersister) SetSetting(_ context.Context, key, value string) error {
	if key == f.failOn {
		return errors.New("disk full")
	}
	if f.calls == nil {
		f.calls = make(map[string]string)
	}
	f.calls[key] = value
	return nil
}

func TestStoreUpdateSwapsSnapshot(t *testing.T) {
	st := NewStore(DefaultSnapshot(), nil)

	before := st.Snapshot()
	require.NoError(t, st.Update(context.Background(), KeyMaxRetries, "4"))

	assert.Equal(t, 4, st.Snapshot().MaxRetries)
	assert.Equal(t, 1, before.MaxRetries, "old snapshot must stay intact")
}

func TestStoreUpdateFailureLeavesStateUnchanged(t *testing.T) {
	st := NewStore(DefaultSnapshot(), nil)

	require.NoError(t, st.Update(context.Background(), KeyDefaultModel, "gpt-4o-mini"))
	want := st.View(true)

	err := st.Update(context.Background(), KeyMaxRetries, "not-a-number")
	require.Error(t, err)
	assert.Equal(t, want, st.View(true), "failed update must not change the view")

	err = st.Update(context.Background(), "no_such_key", "x")
	require.Error(t, err)
	assert.Equal(t, want, st.View(true))
}

func TestStoreUpdatePersistsBeforeSwap(t *testing.T) {
	p := &fakePersister{failOn: KeyRetryBackoff}
	st := NewStore(DefaultSnapshot(), p)

	require.NoError(t, st.Update(context.Background(), KeyMaxRetries, "2"))
	assert.Equal(t, "2", p.calls[KeyMaxRetries])

	// persistence failure aborts the swap
	err := st.Update(context.Background(), KeyRetryBackoff, "1.5")
	require.Error(t, err)
	assert.Equal(t, 0.5, st.Snapshot().RetryBackoff)
}

func TestStoreViewMasking(t *testing.T) {
	st := NewStore(DefaultSnapshot(), nil)
	require.NoError(t, st.Update(context.Background(), KeyAPIKey, "sk-verysecretkey-123"))

	masked := entryFor(t, st.View(true), KeyAPIKey)
	assert.Equal(t, "sk-***123", masked)

	unmasked := entryFor(t, st.View(false), KeyAPIKey)
	assert.Equal(t, "sk-verysecretkey-123", unmasked)
}

func TestStoreViewEmptyAndLists(t *testing.T) {
	st := NewStore(DefaultSnapshot(), nil)

	assert.Equal(t, "-", entryFor(t, st.View(true), KeyFallbackModel))
	assert.Equal(t, "-", entryFor(t, st.View(true), KeySponsorChannels))
	assert.Equal(t, "-", entryFor(t, st.View(true), KeyAPIKey))

	require.NoError(t, st.Update(context.Background(), KeySponsorChannels, "@a, t.me/b"))
	assert.Equal(t, "@a,@b", entryFor(t, st.View(true), KeySponsorChannels))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "-", MaskSecret(""))
	assert.Equal(t, "ab***ab", MaskSecret("ab"))
	assert.Equal(t, "abc***bcd", MaskSecret("abcd"))
	assert.Equal(t, "sk-***xyz", MaskSecret("sk-aaaaaxyz"))
}

func TestApplyOverrides(t *testing.T) {
	st := NewStore(DefaultSnapshot(), nil)

	var bad []string
	st.ApplyOverrides(map[string]string{
		KeyDefaultModel: "gpt-4.1",
		KeyMaxRetries:   "oops",
		"stale_key":     "x",
	}, func(key string, err error) {
		bad = append(bad, key)
	})

	assert.Equal(t, "gpt-4.1", st.Snapshot().DefaultModel)
	assert.Equal(t, 1, st.Snapshot().MaxRetries, "invalid override skipped")
	assert.ElementsMatch(t, []string{KeyMaxRetries, "stale_key"}, bad)
}

func entryFor(t *testing.T, entries []Entry, key string) string {
	t.Helper()
	for _, e := range entries {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("key %s not found in view", key)
	return ""
}
