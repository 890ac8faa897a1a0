package news

import (
	"context"
	"errors"
	"sync"

	"github.com/bilgisen/noticias/internal/models"
)

// PageSize is the number of articles per page. A shorter page is the last.
const PageSize = 10

// Messages shown around news browsing
const (
	MsgConnected        = "Conexion exitosa "
	MsgConnectionFailed = "Conexion fallida ocurrio un error"
	MsgLoadMoreFailed   = "Error al cargar más noticias: "
)

// ErrNoMoreResults is returned by LoadMore after the last page.
var ErrNoMoreResults = errors.New("no more headlines")

// Source returns one page of headlines; *Client implements it.
type Source interface {
	TopHeadlines(ctx context.Context, page, pageSize int) ([]models.Article, error)
}

// Page is one fetched page with the paging flag.
type Page struct {
	Articles []models.Article `json:"articles"`
	Page     int              `json:"page"`
	HasMore  bool             `json:"hasMore"`
}

// FetchPage fetches a single page for stateless callers.
func FetchPage(ctx context.Context, src Source, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	articles, err := src.TopHeadlines(ctx, page, PageSize)
	if err != nil {
		return Page{}, err
	}
	return Page{Articles: articles, Page: page, HasMore: len(articles) >= PageSize}, nil
}

// Browser accumulates pages for one reader. Safe for concurrent use; calls
// are serialised so a page is never fetched twice.
type Browser struct {
	src Source

	mu       sync.Mutex
	articles []models.Article
	page     int
	hasMore  bool
}

// NewBrowser creates an empty browser
func NewBrowser(src Source) *Browser {
	return &Browser{src: src, hasMore: true}
}

// Load replaces the list with the first page. On error the list is left
// as it was.
func (b *Browser) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := FetchPage(ctx, b.src, 1)
	if err != nil {
		return err
	}
	b.articles = p.Articles
	b.page = 1
	b.hasMore = p.HasMore
	return nil
}

// LoadMore appends the next page. The page number only advances when the
// fetch succeeds.
func (b *Browser) LoadMore(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasMore {
		return ErrNoMoreResults
	}

	p, err := FetchPage(ctx, b.src, b.page+1)
	if err != nil {
		return err
	}
	if b.page == 0 {
		b.articles = p.Articles
	} else {
		b.articles = append(b.articles, p.Articles...)
	}
	b.page = p.Page
	b.hasMore = p.HasMore
	return nil
}

// Articles returns a copy of the loaded articles
func (b *Browser) Articles() []models.Article {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Article(nil), b.articles...)
}

// Page returns the last loaded page number, 0 before the first load
func (b *Browser) Page() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// HasMore reports whether LoadMore may fetch another page
func (b *Browser) HasMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasMore
}
