package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fitsync/internal/model"
)

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(rowID string, day int, modified time.Time) model.ProgressRecord {
	return model.ProgressRecord{
		RowID:        rowID,
		Day:          day,
		LastModified: modified,
	}
}
