package compress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("Heavy Data Heavy data "), 64)
	comp, err := Compress(nil, raw)
	require.NoError(t, err)
	require.Less(t, len(comp), len(raw))

	out, err := Decompress(nil, comp, 0)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestDecompressAppends(t *testing.T) {
	comp, err := Compress(nil, []byte("payload"))
	require.NoError(t, err)
	out, err := Decompress([]byte("pre:"), comp, 0)
	require.NoError(t, err)
	require.Equal(t, "pre:payload", string(out))
}

func TestDecompressLimit(t *testing.T) {
	raw := bytes.Repeat([]byte{'a'}, 4096)
	comp, err := Compress(nil, raw)
	require.NoError(t, err)
	_, err = Decompress(nil, comp, 1024)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDecompressGarbage(t *testing.T) {
	_, err := Decompress(nil, []byte("not zstd at all"), 0)
	require.Error(t, err)
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw := bytes.Repeat([]byte("concurrent"), 100)
			comp, err := Compress(nil, raw)
			require.NoError(t, err)
			out, err := Decompress(nil, comp, 0)
			require.NoError(t, err)
			require.Equal(t, raw, out)
		}()
	}
	wg.Wait()
}
