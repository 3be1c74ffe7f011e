package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFetchSingleUpstreamCallWithinTTL(t *testing.T) {
	c := New[string](time.Hour)

	calls := 0
	fetch := func() (string, error) {
		calls++
		return "payload", nil
	}

	v, err := c.GetOrFetch("repo:lodash/lodash", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)

	v, err = c.GetOrFetch("repo:lodash/lodash", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)

	assert.Equal(t, 1, calls, "second lookup within TTL must not hit upstream")
}

func TestExpiredEntryTriggersNewFetch(t *testing.T) {
	c := New[int](time.Minute)

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrFetch("k", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute + time.Second)

	v, err = c.GetOrFetch("k", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "lookup after TTL expiry must fetch again")
	assert.Equal(t, 2, calls)
}

func TestLazyEvictionOnGet(t *testing.T) {
	c := New[string](time.Minute)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	assert.Equal(t, 1, c.Len())

	now = now.Add(2 * time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry must be removed on access")
}

func TestFetchErrorNotCached(t *testing.T) {
	c := New[string](time.Hour)

	calls := 0
	_, err := c.GetOrFetch("k", func() (string, error) {
		calls++
		return "", errors.New("upstream down")
	})
	require.Error(t, err)

	v, err := c.GetOrFetch("k", func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New[string](0)

	calls := 0
	fetch := func() (string, error) {
		calls++
		return "v", nil
	}

	_, _ = c.GetOrFetch("k", fetch)
	_, _ = c.GetOrFetch("k", fetch)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len())
}
