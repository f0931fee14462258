package errors

import (
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "wrapping")
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "wrapping: test error", wrapped.Error())

	// Ensure log values are coming through.
	group := err.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestAnnotatedError_nestedLogValue(t *testing.T) {
	inner := New("inner", slog.String("detail", "deep"))
	outer := Wrap(inner, "outer")

	var annotated AnnotatedError
	require.ErrorAs(t, outer, &annotated)
	group := annotated.LogValue().Group()
	wrappedIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "wrapped"
	})
	require.NotEqual(t, -1, wrappedIdx)
}
