package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBPutGetDelete(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, db.Delete([]byte("k")))
	has, err = db.Has([]byte("k"))
	require.NoError(t, err)
	require.False(t, has)
	require.Equal(t, 0, db.Len())
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("abc")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'z'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db1.WriteBatch(map[string][]byte{"a": []byte("1"), "b": []byte("2")}, nil))
	require.NoError(t, db1.WriteBatch(nil, [][]byte{[]byte("b")}))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)

	_, err = db2.Get([]byte("b"))
	require.ErrorIs(t, err, ErrNotFound)
}
