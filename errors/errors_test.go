package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLazyErrorMessage(t *testing.T) {
	err := NewInvalidBlockSizeError(0)
	require.Equal(t, ErrorCode(InvalidBlockSize), err.Code)
	require.Equal(t, "LZR0003 - Block size must be > 0, got 0", err.Error())
}

func TestInvalidCommandMessageIsNotAFormat(t *testing.T) {
	err := NewInvalidCommandError("unsupported command SHOW 50%s")
	require.Equal(t, "LZR0007 - unsupported command SHOW 50%s", err.Error())
}

func TestHasCodeThroughWrap(t *testing.T) {
	err := Wrap(NewCursorClosedError(), "moving cursor")
	require.True(t, HasCode(err, CursorClosed))
	require.False(t, HasCode(err, UnknownColumn))
	require.False(t, HasCode(io.EOF, CursorClosed))
}

func TestMaybeAddStack(t *testing.T) {
	require.Nil(t, MaybeAddStack(nil))
	le := NewUnknownColumnError("foo")
	require.Equal(t, le, MaybeAddStack(le))
	wrapped := MaybeAddStack(io.EOF)
	require.NotEqual(t, io.EOF, wrapped)
	require.True(t, Is(wrapped, io.EOF))
	require.Equal(t, io.EOF, wrapped.(*stackErr).Cause())
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, "x"))
	require.Nil(t, Wrapf(nil, "x %d", 1))
	require.Nil(t, WithStack(nil))
}

func TestRedundantStackIsDropped(t *testing.T) {
	inner := New("boom")
	outer := WithStack(inner)
	require.Equal(t, "boom", outer.Error())
	se, ok := outer.(*stackErr)
	require.True(t, ok)
	require.Nil(t, se.StackTrace())
	require.Contains(t, fmt.Sprintf("%+v", outer), "boom")
}

func TestWrapfMessage(t *testing.T) {
	err := Wrapf(io.ErrUnexpectedEOF, "fetching window %d", 3)
	require.Equal(t, "fetching window 3: unexpected EOF", err.Error())
	require.Equal(t, `"fetching window 3: unexpected EOF"`, fmt.Sprintf("%q", err))
}
