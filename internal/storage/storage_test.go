package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

type recordingMirror struct {
	name        string
	contentType string
	data        []byte
	err         error
}

func (m *recordingMirror) Put(_ context.Context, name, contentType string, data []byte) error {
	m.name, m.contentType, m.data = name, contentType, data
	return m.err
}

func TestLocalStore_SaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	mirror := &recordingMirror{}
	store, err := NewLocalStore(dir, 1<<20, mirror)
	require.NoError(t, err)

	path, err := store.Save(context.Background(), fileHeader(t, "leaf.png", pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.Equal(t, filepath.ToSlash(dir), filepath.ToSlash(filepath.Dir(path)))
	saved, err := os.ReadFile(filepath.FromSlash(path))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, saved)

	assert.Equal(t, filepath.Base(path), mirror.name)
	assert.Equal(t, "image/png", mirror.contentType)

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(filepath.FromSlash(path))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(path))
}

func TestLocalStore_UniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 0, nil)
	require.NoError(t, err)

	a, err := store.Save(context.Background(), fileHeader(t, "leaf.jpg", jpegHeader))
	require.NoError(t, err)
	b, err := store.Save(context.Background(), fileHeader(t, "leaf.jpg", jpegHeader))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".jpg"))
}

func TestLocalStore_Rejects(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 16, nil)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), fileHeader(t, "notes.txt", []byte("hello")))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte{}, pngHeader...), make([]byte, 64)...)
	_, err = store.Save(context.Background(), fileHeader(t, "big.png", big))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestLocalStore_MirrorFailureIsNotFatal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 0, &recordingMirror{err: errors.New("access denied")})
	require.NoError(t, err)

	path, err := store.Save(context.Background(), fileHeader(t, "leaf.png", pngHeader))
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Mirror_Put(t *testing.T) {
	putter := &fakePutter{}
	m := newS3Mirror(putter, "leafscan-archive")

	require.NoError(t, m.Put(context.Background(), "abc.png", "image/png", pngHeader))

	assert.Equal(t, "leafscan-archive", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "uploads/abc.png", aws.ToString(putter.input.Key))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, pngHeader, putter.body)
}
