package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestAtCarriesTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 1, 35, 20, 0, time.UTC)
	s := At(ts)
	assert.Len(t, s, 26)

	got, err := Time(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	assert.Less(t, At(ts), At(ts.Add(20*time.Second)))

	_, err = Time("not-an-id")
	assert.Error(t, err)
}
