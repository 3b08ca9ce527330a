package ulid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()
	assert.Len(t, id, 26)
	assert.True(t, IsValid(id))
	assert.False(t, IsValid("not-a-ulid"))
}

func TestNewFromTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := NewFromTime(ts)
	second := NewFromTime(ts)
	assert.Less(t, first, second)

	got, err := Time(first)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got.UTC()))

	_, err = Time("bad")
	assert.Error(t, err)
}
