package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentRoundtrip(t *testing.T) {
	store, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	content := []byte("quarterly report contents")

	id, hash, size, err := store.SaveAttachment(bytes.NewReader(content))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.EqualValues(t, len(content), size)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)

	reader, err := store.GetAttachment(id)
	require.NoError(t, err)
	defer reader.Close()

	back, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, back)
}

func TestGetAttachmentMissing(t *testing.T) {
	store, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.GetAttachment("nope")
	assert.Error(t, err)
}

func TestDeleteAttachment(t *testing.T) {
	store, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	id, _, _, err := store.SaveAttachment(bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, store.DeleteAttachment(id))

	_, err = store.GetAttachment(id)
	assert.Error(t, err)
}
