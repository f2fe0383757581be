package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livescore-client/logger"
	"livescore-client/pkg/common"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard, io.Discard)
	os.Exit(m.Run())
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "one"))

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Remove("a"))
	_, ok, _ = s.Get("a")
	assert.False(t, ok)

	require.NoError(t, s.Clear())
	keys, err = s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "nested", "store.json"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("match_2_score", `{"home":1,"away":0}`))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get("match_2_score")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"home":1,"away":0}`, v)
}

func TestFileStoreCorruptDocumentStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{trunc"), 0o644))

	s, release, err := Open(BackendFile, path, "", "viewer")
	require.NoError(t, err)
	defer release()

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	aside, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
	data, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, "{trunc", string(data))

	require.NoError(t, s.Set("k", "v"))
	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

type failingStore struct{}

var errBroken = errors.New("broken")

func (failingStore) Get(string) (string, bool, error) { return "", false, errBroken }
func (failingStore) Set(string, string) error         { return errBroken }
func (failingStore) Remove(string) error              { return errBroken }
func (failingStore) Clear() error                     { return errBroken }
func (failingStore) Keys() ([]string, error)          { return nil, errBroken }

func TestServiceFailsSoft(t *testing.T) {
	svc := NewService(failingStore{}, nil)

	svc.SetItem("k", "v")
	_, ok := svc.GetItem("k")
	assert.False(t, ok)
	svc.RemoveItem("k")
	svc.Clear()
	assert.Nil(t, svc.Keys())
	assert.Zero(t, svc.Size())
	assert.False(t, svc.Available())

	svc.SetSessionItem("s", "v")
	v, ok := svc.GetSessionItem("s")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestServiceObjects(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	type score struct{ Home, Away int }
	svc.SetObject("score", score{Home: 2, Away: 1})

	var got score
	require.True(t, svc.GetObject("score", &got))
	assert.Equal(t, score{Home: 2, Away: 1}, got)

	svc.SetItem("broken", "{")
	assert.False(t, svc.GetObject("broken", &got))
	assert.False(t, svc.GetObject("absent", &got))

	assert.True(t, svc.Available())
	assert.Equal(t, len("score")+len(`{"Home":2,"Away":1}`)+len("broken")+1, svc.Size())
}

func TestServiceSessionIsSeparate(t *testing.T) {
	svc := NewService(NewMemoryStore(), NewMemoryStore())
	svc.SetSessionItem("k", "session")
	svc.SetItem("k", "local")

	v, _ := svc.GetSessionItem("k")
	assert.Equal(t, "session", v)
	svc.ClearSession()
	_, ok := svc.GetSessionItem("k")
	assert.False(t, ok)
	v, _ = svc.GetItem("k")
	assert.Equal(t, "local", v)
	svc.RemoveSessionItem("k")
}

func TestOpenBackends(t *testing.T) {
	s, release, err := Open(BackendMemory, "", "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, release())

	path := filepath.Join(t.TempDir(), "nested", "store.json")
	s, release, err = Open(BackendFile, path, "", "")
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	assert.NoError(t, release())
	_, err = os.Stat(path)
	assert.NoError(t, err)

	_, _, err = Open("redis", "", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
