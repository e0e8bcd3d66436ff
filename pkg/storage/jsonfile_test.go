package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"socialfeed/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() model.Document {
	doc := model.NewDocument()
	doc.Users.Add(model.User{ID: "u2", Username: "환자"})
	doc.Users.Add(model.User{ID: "u1", Username: "간호사"})
	created := time.Date(2025, 8, 17, 9, 15, 0, 0, time.UTC)
	doc.Posts = []model.Post{
		{
			ID:             "p2",
			AuthorID:       "u1",
			Content:        `리트윗: " hello "`,
			CreatedAt:      created.Add(time.Minute),
			LikedBy:        []string{"u2", "u1"},
			OriginalPostID: "p1",
			Comments:       []model.Comment{},
		},
		{
			ID:           "p1",
			AuthorID:     "u2",
			Content:      "hello",
			YoutubeURL:   "https://youtu.be/dQw4w9WgXcQ",
			CreatedAt:    created,
			LikedBy:      []string{},
			RetweetCount: 1,
			Comments:     []model.Comment{{Text: "first", CreatedAt: created}, {Text: "second", CreatedAt: created}},
		},
	}
	return doc
}

func TestJSONFileStoreMissingFileLoadsEmpty(t *testing.T) {
	s, err := NewJSONFileStore(filepath.Join(t.TempDir(), "nested", "feed.json"))
	require.NoError(t, err)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Users.Len())
	assert.Empty(t, doc.Posts)
	assert.NotNil(t, doc.Posts)
}

func TestJSONFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feed.json")
	s, err := NewJSONFileStore(path)
	require.NoError(t, err)

	want := sampleDocument()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Users.All(), got.Users.All())
	require.Len(t, got.Posts, 2)
	for i := range want.Posts {
		assert.Equal(t, want.Posts[i].ID, got.Posts[i].ID)
		assert.True(t, want.Posts[i].CreatedAt.Equal(got.Posts[i].CreatedAt))
		assert.ElementsMatch(t, want.Posts[i].LikedBy, got.Posts[i].LikedBy)
		assert.Equal(t, want.Posts[i].RetweetCount, got.Posts[i].RetweetCount)
		assert.Equal(t, want.Posts[i].OriginalPostID, got.Posts[i].OriginalPostID)
		assert.Equal(t, len(want.Posts[i].Comments), len(got.Posts[i].Comments))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestJSONFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "feed.json")
	s, err := NewJSONFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, model.NewDocument()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":{},"posts":[]}`, string(data))
}

func TestJSONFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	s, err := NewJSONFileStore(path)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStorage))
}

func TestJSONFileStoreUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONFileStore(filepath.Join(dir, "feed.json"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	err = s.Save(context.Background(), model.NewDocument())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStorage))
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc := sampleDocument()
	require.NoError(t, s.Save(ctx, doc))

	doc.Posts[0].LikedBy[0] = "mutated"
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.Posts[0].LikedBy[0])
	assert.Equal(t, 1, s.Saves())
}
