package markup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedAnnotatorHit(t *testing.T) {
	inner := &fixedAnnotator{mentions: []Mention{{Tag: "PERSON", Phrase: "Ada"}}}
	c := NewCachedAnnotator(inner, 4)
	ctx := context.Background()

	first, err := c.Annotate(ctx, "I am Ada")
	require.NoError(t, err)
	second, err := c.Annotate(ctx, "I am Ada")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, c.Len())

	// Mutating a returned slice must not poison the cache.
	second[0].Phrase = "Eve"
	third, err := c.Annotate(ctx, "I am Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", third[0].Phrase)
}

func TestCachedAnnotatorEviction(t *testing.T) {
	inner := &fixedAnnotator{}
	c := NewCachedAnnotator(inner, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := c.Annotate(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	// "a" was evicted first.
	_, err := c.Annotate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(4), inner.calls.Load())

	_, err = c.Annotate(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int32(4), inner.calls.Load())
}

func TestCachedAnnotatorErrorsNotCached(t *testing.T) {
	boom := errors.New("boom")
	inner := &fixedAnnotator{err: boom}
	c := NewCachedAnnotator(inner, 2)

	_, err := c.Annotate(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	_, err = c.Annotate(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCachedAnnotatorDisabled(t *testing.T) {
	inner := &fixedAnnotator{}
	c := NewCachedAnnotator(inner, 0)

	for i := 0; i < 3; i++ {
		_, err := c.Annotate(context.Background(), "same")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, 0, c.Len())
}
