package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(FileTooLarge, "file exceeds %d bytes", 100)
	assert.Equal(t, FileTooLarge, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, FileTooLarge, KindOf(wrapped), "kind survives wrapping")
}

func TestWithFile(t *testing.T) {
	err := New(BadType, "only PDF files are accepted").WithFile("cat.png")
	assert.Equal(t, "cat.png", err.File)
	assert.Equal(t, BadType, err.Kind)
	assert.Contains(t, err.Error(), "bad_type")
}

func TestIsMatchesByKind(t *testing.T) {
	a := New(StaleReport, "old")
	b := Wrap(StaleReport, errors.New("different cause"))
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, New(NameMismatch, "x")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(LLMTransport, cause)
	assert.ErrorIs(t, err, cause)
}
