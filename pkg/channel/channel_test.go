package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChannel(t *testing.T, capacity, maxSize int) *Channel {
	t.Helper()
	ch, err := New("test", capacity, maxSize)
	require.NoError(t, err)
	return ch
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		capacity int
		maxSize  int
		wantErr  error
	}{
		{"empty key", "", 16, 32, ErrInvalidKey},
		{"zero capacity", "k", 0, 32, ErrInvalidSize},
		{"negative capacity", "k", -1, 32, ErrInvalidSize},
		{"max below capacity", "k", 64, 32, ErrInvalidSize},
		{"equal sizes", "k", 32, 32, nil},
		{"valid", "k", 16, 1024, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := New(tt.key, tt.capacity, tt.maxSize)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, ch.Key())
			assert.Equal(t, tt.capacity, ch.Capacity())
			assert.Equal(t, tt.maxSize, ch.MaxSize())
			assert.Zero(t, ch.Len())
			assert.Zero(t, ch.Offset())
		})
	}
}

func TestChannel_AddAndGetRange(t *testing.T) {
	ch := newTestChannel(t, 4, 64)

	ch.AddRange([]byte("hello"))
	ch.AddRange(nil)
	ch.AddRange([]byte(" world"))

	assert.Equal(t, 11, ch.Len())
	assert.Equal(t, []byte("hello world"), ch.Bytes())

	got, err := ch.GetRange(6, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	// Snapshot is independent of the buffer.
	got[0] = 'W'
	assert.Equal(t, []byte("hello world"), ch.Bytes())

	_, err = ch.GetRange(8, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = ch.GetRange(-1, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestChannel_RemoveRange_AdjustsOffset(t *testing.T) {
	tests := []struct {
		name       string
		offset     int
		start, n   int
		wantOffset int
		wantData   string
	}{
		{"head window before cursor", 6, 0, 4, 2, "45678"},
		{"head window through cursor", 6, 0, 9, 0, ""},
		{"window after cursor", 2, 4, 3, 2, "012378"},
		{"window containing cursor", 5, 3, 4, 3, "01278"},
		{"window ending at cursor", 5, 2, 3, 2, "015678"},
		{"cursor at start of window", 3, 3, 2, 3, "0125678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newTestChannel(t, 4, 64)
			ch.AddRange([]byte("012345678"))
			require.NoError(t, ch.SetOffset(tt.offset))

			require.NoError(t, ch.RemoveRange(tt.start, tt.n))
			assert.Equal(t, tt.wantOffset, ch.Offset())
			assert.Equal(t, tt.wantData, string(ch.Bytes()))
			assert.LessOrEqual(t, ch.Offset(), ch.Len())
		})
	}
}

func TestChannel_RemoveRange_OutOfBounds(t *testing.T) {
	ch := newTestChannel(t, 4, 64)
	ch.AddRange([]byte("abc"))

	assert.ErrorIs(t, ch.RemoveRange(2, 2), ErrOutOfRange)
	assert.ErrorIs(t, ch.RemoveRange(-1, 1), ErrOutOfRange)
	assert.ErrorIs(t, ch.RemoveRange(0, -1), ErrOutOfRange)
	assert.NoError(t, ch.RemoveRange(3, 0))
	assert.Equal(t, "abc", string(ch.Bytes()))
}

func TestChannel_Consume(t *testing.T) {
	ch := newTestChannel(t, 4, 64)
	ch.AddRange([]byte("AB\nCD"))
	require.NoError(t, ch.SetOffset(3))

	require.NoError(t, ch.Consume(3))
	assert.Equal(t, "CD", string(ch.Bytes()))
	assert.Zero(t, ch.Offset())
	assert.Equal(t, int64(3), ch.Removed())
}

func TestChannel_CompactsOnAppend(t *testing.T) {
	ch := newTestChannel(t, 8, 1024)
	var want []byte

	for i := 0; i < 100; i++ {
		chunk := []byte{byte(i), byte(i + 1), byte(i + 2), byte(i + 3)}
		ch.AddRange(chunk)
		want = append(want, chunk...)

		require.NoError(t, ch.Consume(3))
		want = want[3:]
		require.Equal(t, want, ch.Bytes())
	}

	assert.Equal(t, 100, ch.Len())
	assert.Equal(t, int64(300), ch.Removed())
}

func TestChannel_SetOffset(t *testing.T) {
	ch := newTestChannel(t, 4, 64)
	ch.AddRange([]byte("abcd"))

	require.NoError(t, ch.SetOffset(4))
	assert.Zero(t, ch.Available())

	assert.ErrorIs(t, ch.SetOffset(5), ErrOutOfRange)
	assert.ErrorIs(t, ch.SetOffset(-1), ErrOutOfRange)
	assert.Equal(t, 4, ch.Offset())
}

func TestChannel_CheckOverflow_KeepsNewest(t *testing.T) {
	ch := newTestChannel(t, 4, 8)
	ch.AddRange([]byte("0123456789AB"))
	require.NoError(t, ch.SetOffset(6))

	evicted := ch.CheckOverflow()
	assert.Equal(t, 4, evicted)
	assert.Equal(t, "456789AB", string(ch.Bytes()))
	assert.Equal(t, 2, ch.Offset())

	assert.Zero(t, ch.CheckOverflow())
}

func TestChannel_CheckOverflow_CursorInsideEvicted(t *testing.T) {
	ch := newTestChannel(t, 4, 4)
	ch.AddRange([]byte("0123456789"))
	require.NoError(t, ch.SetOffset(3))

	assert.Equal(t, 6, ch.CheckOverflow())
	assert.Equal(t, "6789", string(ch.Bytes()))
	assert.Zero(t, ch.Offset())
}

func TestChannel_CheckOverflow_StabilisesAtMaxSize(t *testing.T) {
	ch := newTestChannel(t, 4, 32)

	for i := 0; i < 50; i++ {
		ch.AddRange([]byte("xxxxxxx"))
		ch.CheckOverflow()
		require.LessOrEqual(t, ch.Len(), 32)
	}
	assert.Equal(t, 32, ch.Len())
}

func TestChannel_Clear(t *testing.T) {
	ch := newTestChannel(t, 4, 64)
	ch.AddRange([]byte("abcdef"))
	require.NoError(t, ch.SetOffset(2))

	ch.Clear()
	assert.Zero(t, ch.Len())
	assert.Zero(t, ch.Offset())
	assert.Equal(t, int64(6), ch.Removed())
}
