package entity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xlnfinance/xln-sub008/ledger"
)

func TestBoltEntityStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.db")
	store, err := OpenBoltEntityStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.LoadSnapshot(ledger.EntityID(1))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveSnapshot(ledger.EntityID(1), []byte("snapshot-v1")))
	data, ok, err := store.LoadSnapshot(ledger.EntityID(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("snapshot-v1"), data)

	require.NoError(t, store.SaveSnapshot(ledger.EntityID(1), []byte("snapshot-v2")))
	data, ok, err = store.LoadSnapshot(ledger.EntityID(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("snapshot-v2"), data)
}

func TestBoltEntityStoreReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.db")
	store, err := OpenBoltEntityStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ledger.EntityID(9), []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltEntityStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	data, ok, err := reopened.LoadSnapshot(ledger.EntityID(9))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("persisted"), data)
}
