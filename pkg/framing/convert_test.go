package framing

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	f := newFramer(t, MustTerminator([]byte(",")))
	require.NoError(t, f.AddChannel("k"))

	var sum int
	var bad []string
	fn := Convert(
		func(_ string, p []byte) (int, error) { return strconv.Atoi(string(p)) },
		func(_ string, v int) bool {
			sum += v
			return true
		},
		func(_ string, p []byte, err error) bool {
			bad = append(bad, string(p))
			return errors.Is(err, strconv.ErrSyntax)
		},
	)

	handled, err := f.Analyse("k", []byte("1,2,x,39,"), fn)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 42, sum)
	assert.Equal(t, []string{"x"}, bad)

	n, _, _ := f.Buffered("k")
	assert.Zero(t, n)
}

func TestConvert_NilErrorHandlerRejects(t *testing.T) {
	f := newFramer(t, MustTerminator([]byte(",")))
	require.NoError(t, f.AddChannel("k"))

	fn := Convert(
		func(_ string, p []byte) (int, error) { return strconv.Atoi(string(p)) },
		func(string, int) bool { return true },
		nil,
	)

	handled, err := f.Analyse("k", []byte("nope,"), fn)
	require.NoError(t, err)
	assert.False(t, handled)

	_, off, _ := f.Buffered("k")
	assert.Equal(t, 5, off)
}
