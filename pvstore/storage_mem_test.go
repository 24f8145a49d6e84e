package pvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorage_snapshots(t *testing.T) {
	st := newMemStorage()

	w, err := st.BeginTx(true)
	require.NoError(t, err)
	b, err := w.CreateBucket("root", "sub")
	require.NoError(t, err)
	require.NoError(t, b.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
	assert.NotNil(t, w.Bucket("root", ""))
	require.NoError(t, w.Commit())

	r, err := st.BeginTx(false)
	require.NoError(t, err)
	defer r.Rollback()
	rb := r.Bucket("root", "sub")
	require.NotNil(t, rb)
	assert.ErrorIs(t, rb.Put([]byte("x"), nil), errNotWritable)
	assert.ErrorIs(t, r.Commit(), errNotWritable)

	// later writes do not show through an open read transaction
	w, err = st.BeginTx(true)
	require.NoError(t, err)
	wb := w.Bucket("root", "sub")
	require.NoError(t, wb.Put([]byte("k1"), []byte("changed")))
	require.NoError(t, wb.Delete([]byte("k2")))
	require.NoError(t, w.Commit())

	assert.Equal(t, []byte("v1"), rb.Get([]byte("k1")))
	assert.Equal(t, 2, rb.KeyCount())
	c := rb.Cursor()
	k, v := c.Seek([]byte("k"))
	assert.Equal(t, "k1", string(k))
	assert.Equal(t, "v1", string(v))
	k, _ = c.Next()
	assert.Equal(t, "k2", string(k))
	k, _ = c.Next()
	assert.Nil(t, k)

	// a rolled back write leaves the committed state alone
	w, err = st.BeginTx(true)
	require.NoError(t, err)
	require.NoError(t, w.Bucket("root", "sub").Put([]byte("k3"), []byte("v3")))
	require.NoError(t, w.Rollback())
	require.NoError(t, w.Rollback())

	r2, err := st.BeginTx(false)
	require.NoError(t, err)
	b2 := r2.Bucket("root", "sub")
	assert.Equal(t, []byte("changed"), b2.Get([]byte("k1")))
	assert.Nil(t, b2.Get([]byte("k3")))
	assert.Equal(t, 1, b2.KeyCount())
	assert.Equal(t, int64(len("k1")+len("changed")), r2.Size())
	require.NoError(t, r2.Rollback())

	require.NoError(t, st.Close())
	_, err = st.BeginTx(true)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = st.BeginTx(false)
	assert.ErrorIs(t, err, ErrClosed)
}
