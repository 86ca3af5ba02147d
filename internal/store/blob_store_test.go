package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *sql.DB {
	d, err := sql.Open("sqlite", fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", testDBSeq.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	// Create tables manually for test
	_, err = d.Exec(`
		CREATE TABLE kv_entries (
			key        TEXT     PRIMARY KEY,
			value      BLOB     NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);
	`)
	require.NoError(t, err)

	return d
}

// failingBlobStore fails every operation with err.
type failingBlobStore struct {
	err     error
	getData []byte
}

func (f *failingBlobStore) Get(_ context.Context, _ string) ([]byte, bool, error) {
	if f.getData != nil {
		return f.getData, true, nil
	}
	return nil, false, f.err
}

func (f *failingBlobStore) Put(_ context.Context, _ string, _ []byte) error { return f.err }

func (f *failingBlobStore) Delete(_ context.Context, _ string) error { return f.err }

func TestSQLiteBlobStorePutGet(t *testing.T) {
	s := NewSQLiteBlobStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v1")))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Put(ctx, "k", []byte("v2")))
	v, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}

func TestSQLiteBlobStoreMissingKey(t *testing.T) {
	s := NewSQLiteBlobStore(openTestDB(t))

	v, found, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestSQLiteBlobStoreDelete(t *testing.T) {
	s := NewSQLiteBlobStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryBlobStoreCopiesValues(t *testing.T) {
	s := NewMemoryBlobStore()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", in))
	in[0] = 'z'

	out, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("abc"), out)
}

func TestStorageErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&StorageError{Op: "write", Key: KeyInstallations, Err: cause})

	assert.ErrorIs(t, err, cause)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "write", se.Op)
	assert.Contains(t, err.Error(), "installations")
}
