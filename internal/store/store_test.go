package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitsync.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveRecord(context.Background(), testRecord("r1", 1, base)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	recs, err := s2.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveRecord(context.Background(), testRecord("r1", 1, base)))
	recs, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.DB().Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, s.DB().Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestSchemaVersion(t *testing.T) {
	s := createTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
