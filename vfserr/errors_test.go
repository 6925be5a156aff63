package vfserr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndError(t *testing.T) {
	err := New(NotFound, "node %s missing", "n1")
	assert.Equal(t, "NOT_FOUND: node n1 missing", err.Error())
	assert.Equal(t, NotFound, CodeOf(err))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, TransactionFailed, "committing")
	assert.Same(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestIsChasesWrappedCause(t *testing.T) {
	inner := New(InvalidPath, "bad path")
	outer := Wrap(inner, TransactionFailed, "wrapping")
	assert.True(t, Is(outer, TransactionFailed))
	assert.True(t, Is(outer, InvalidPath))
	assert.False(t, Is(outer, NotFound))
}

func TestCodeOfNonVfsError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
