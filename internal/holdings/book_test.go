package holdings

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_SetGetSnapshot(t *testing.T) {
	b := NewBook(map[string]int{"aapl": 10, "BAD": -3, " ": 4})
	assert.Equal(t, 10, b.Get("AAPL"))
	assert.Equal(t, 0, b.Get("BAD"))

	require.NoError(t, b.Set("msft", 5))
	assert.Equal(t, 5, b.Get("MSFT"))

	snap := b.Snapshot()
	snap["MSFT"] = 99
	assert.Equal(t, 5, b.Get("MSFT"), "snapshot is a copy")

	require.NoError(t, b.Set("AAPL", 0))
	assert.Equal(t, map[string]int{"MSFT": 5}, b.Snapshot())
}

func TestBook_SetRejectsInvalid(t *testing.T) {
	b := NewBook(nil)
	assert.ErrorIs(t, b.Set("", 1), ErrEmptyTicker)
	assert.ErrorIs(t, b.Set("AAPL", -1), ErrNegativeShares)
	assert.Empty(t, b.Snapshot())
}

func TestBook_ConcurrentAccess(t *testing.T) {
	b := NewBook(nil)
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = b.Set("AAPL", n)
			_ = b.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Positive(t, b.Get("AAPL"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(dir, "holdings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aapl: 10\nBHP.AX: 25\n"), 0644))
	got, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"AAPL": 10, "BHP.AX": 25}, got)

	require.NoError(t, os.WriteFile(path, []byte("AAPL: -1\n"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("AAPL: [1, 2]\n"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	b, err := Open("")
	require.NoError(t, err)
	assert.Empty(t, b.Snapshot())

	path := filepath.Join(t.TempDir(), "h.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CBA.AX: 3\n"), 0644))
	b, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Get("cba.ax"))
}
