package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bilgisen/noticias/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	keys []string
	err  error
}

func (u *recordingUploader) Upload(ctx context.Context, key string, data []byte) error {
	u.keys = append(u.keys, key)
	return u.err
}

func article(url, title string) models.Article {
	return models.Article{Title: title, URL: url, Source: models.ArticleSource{Name: "Wire"}}
}

func newArchive(t *testing.T, up Uploader) *Archive {
	t.Helper()
	a, err := NewArchive(t.TempDir(), up)
	require.NoError(t, err)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return a
}

func TestSaveAndGet(t *testing.T) {
	a := newArchive(t, nil)
	ctx := context.Background()

	item, err := a.Save(ctx, article("https://e.x/1", "One"))
	require.NoError(t, err)
	assert.Contains(t, item.FilePath, "2025/03/01")
	assert.Empty(t, item.RemoteKey)

	got, err := a.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", got.Article.Title)

	_, err = a.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReplacesSameArticle(t *testing.T) {
	a := newArchive(t, nil)
	ctx := context.Background()

	_, err := a.Save(ctx, article("https://e.x/1", "Old title"))
	require.NoError(t, err)
	_, err = a.Save(ctx, article("https://e.x/1", "New title"))
	require.NoError(t, err)

	items, err := a.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "New title", items[0].Article.Title)
}

func TestListNewestFirstPaginated(t *testing.T) {
	a := newArchive(t, nil)
	ctx := context.Background()
	for _, n := range []string{"1", "2", "3"} {
		_, err := a.Save(ctx, article("https://e.x/"+n, "T"+n))
		require.NoError(t, err)
	}

	first, err := a.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "T3", first[0].Article.Title)
	assert.Equal(t, "T2", first[1].Article.Title)

	second, err := a.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "T1", second[0].Article.Title)

	empty, err := a.List(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDelete(t *testing.T) {
	a := newArchive(t, nil)
	ctx := context.Background()

	item, err := a.Save(ctx, article("https://e.x/1", "One"))
	require.NoError(t, err)
	require.NoError(t, a.Delete(ctx, item.ID))
	assert.ErrorIs(t, a.Delete(ctx, item.ID), ErrNotFound)
}

func TestUploadKeys(t *testing.T) {
	up := &recordingUploader{}
	a := newArchive(t, up)

	item, err := a.Save(context.Background(), article("https://e.x/1", "One"))
	require.NoError(t, err)
	require.Len(t, up.keys, 1)
	assert.True(t, strings.HasPrefix(item.RemoteKey, "articles/2025/03/01/"))
	assert.Equal(t, item.RemoteKey, up.keys[0])
}

func TestUploadFailureKeepsLocalCopy(t *testing.T) {
	a := newArchive(t, &recordingUploader{err: errors.New("bucket unreachable")})

	item, err := a.Save(context.Background(), article("https://e.x/1", "One"))
	require.NoError(t, err)
	assert.Empty(t, item.RemoteKey)
	assert.FileExists(t, item.FilePath)
}

func TestSaveRequiresURL(t *testing.T) {
	a := newArchive(t, nil)
	_, err := a.Save(context.Background(), article("", "No url"))
	assert.Error(t, err)
}

func TestR2UploaderPutsObject(t *testing.T) {
	var gotPath, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up, err := NewR2Uploader(context.Background(), R2Config{
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "noticias",
	})
	require.NoError(t, err)

	require.NoError(t, up.Upload(context.Background(), "articles/a.json", []byte(`{}`)))
	assert.Equal(t, "/noticias/articles/a.json", gotPath)
	assert.Equal(t, "application/json", gotType)
}

func TestR2DefaultEndpoint(t *testing.T) {
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", R2Config{AccountID: "acct"}.endpoint())
}
