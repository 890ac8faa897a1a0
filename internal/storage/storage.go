package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/utils"
)

// ErrNotFound is returned for ids that are not in the archive
var ErrNotFound = errors.New("archived article not found")

// Uploader copies an archived file somewhere else
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// Archive keeps saved articles as JSON files under basePath/YYYY/MM/DD.
type Archive struct {
	basePath string
	uploader Uploader
	now      func() time.Time

	mu sync.RWMutex
}

// NewArchive creates the base directory if needed. uploader may be nil.
func NewArchive(basePath string, uploader Uploader) (*Archive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Archive{basePath: basePath, uploader: uploader, now: time.Now}, nil
}

// ArticleID derives a stable id from the article URL
func ArticleID(a models.Article) string {
	return utils.Hash(a.URL)[:16]
}

// Save writes an article to disk and uploads it when an uploader is set.
// Saving the same article again replaces the earlier copy.
func (s *Archive) Save(ctx context.Context, article models.Article) (*models.ArchivedArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(article.URL) == "" {
		return nil, errors.New("article has no url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ArticleID(article)
	if old, err := s.find(id); err == nil {
		if err := os.Remove(old); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to replace archived article: %w", err)
		}
	}

	now := s.now().UTC()
	rel := filepath.Join(now.Format("2006/01/02"), fmt.Sprintf("%d_%s.json", now.Unix(), id))
	filePath := filepath.Join(s.basePath, rel)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create date directory: %w", err)
	}

	item := &models.ArchivedArticle{ID: id, Article: article, SavedAt: now}
	if s.uploader != nil {
		item.RemoteKey = "articles/" + filepath.ToSlash(rel)
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal article: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write article file: %w", err)
	}
	item.FilePath = filePath

	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, item.RemoteKey, data); err != nil {
			clog := logger.Component("archive")
			clog.Warn().Err(err).Str("key", item.RemoteKey).Msg("upload failed, kept local copy")
			item.RemoteKey = ""
		}
	}
	return item, nil
}

// Get returns one archived article
func (s *Archive) Get(ctx context.Context, id string) (*models.ArchivedArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return readItem(path)
}

// List returns a page of archived articles, newest first.
func (s *Archive) List(ctx context.Context, page, pageSize int) ([]*models.ArchivedArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var files []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking the archive: %w", err)
	}

	// file names start with the unix time of the save
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) > filepath.Base(files[j])
	})

	start := (page - 1) * pageSize
	if start >= len(files) {
		return []*models.ArchivedArticle{}, nil
	}
	end := start + pageSize
	if end > len(files) {
		end = len(files)
	}

	items := make([]*models.ArchivedArticle, 0, end-start)
	for _, file := range files[start:end] {
		item, err := readItem(file)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Delete removes an archived article. Remote copies are kept.
func (s *Archive) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete article file: %w", err)
	}
	return nil
}

// find must be called with mu held.
func (s *Archive) find(id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	var found string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), "_"+id+".json") {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error walking the archive: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

func readItem(path string) (*models.ArchivedArticle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	var item models.ArchivedArticle
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("error unmarshaling archived article: %w", err)
	}
	item.FilePath = path
	return &item, nil
}
