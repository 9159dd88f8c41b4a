package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir() + "/nested/db"
	backend, err := OpenBackend(tmpDir, false, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestBackendWithTx_DiscardsUncommittedWrites(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	boom := errors.New("boom")
	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return boom
	}, true)
	assert.ErrorIs(t, err, boom)

	err = backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte("k"))
		return err
	}, false)
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestBackendRun_CanceledContext(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = backend.Run(ctx, func(tx *badger.Txn) error {
		called = true
		return nil
	}, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found passes through", fmt.Errorf("%w: doc", core.ErrNotFound), core.ErrNotFound},
		{"dimension mismatch passes through", core.ErrDimensionMismatch, core.ErrDimensionMismatch},
		{"transition passes through", core.ErrInvalidStatusTransition, core.ErrInvalidStatusTransition},
		{"conflict is unavailable", badger.ErrConflict, storage.ErrStoreUnavailable},
		{"txn too big is unavailable", badger.ErrTxnTooBig, storage.ErrStoreUnavailable},
		{"closed db", badger.ErrDBClosed, storage.ErrStorageClosed},
		{"io failure is unavailable", errors.New("disk on fire"), storage.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}
	assert.NoError(t, mapError(nil))
	assert.True(t, storage.IsTransient(mapError(badger.ErrConflict)))
	assert.False(t, storage.IsTransient(mapError(badger.ErrTxnTooBig)))
}
