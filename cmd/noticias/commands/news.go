package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bilgisen/noticias/internal/cache"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/news"
	"github.com/bilgisen/noticias/internal/storage"
	"github.com/spf13/cobra"
)

func newNewsCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "news",
		Aliases: []string{"noticias"},
		Args:    cobra.NoArgs,
		Short:   "Read top headlines and keep the ones you want",
	}

	cmd.AddCommand(
		newNewsBrowseCommand(s),
		newNewsCheckCommand(s),
		newNewsSaveCommand(s),
		newNewsSavedCommand(s),
		newNewsUnsaveCommand(s),
	)

	return protect(cmd)
}

// newsClient builds the provider client, cached when NEWS_CACHE_TTL is set.
func (s *session) newsClient(cmd *cobra.Command) (*news.Client, error) {
	opts := []news.Option{
		news.WithURL(s.cfg.NewsAPIURL),
		news.WithCountry(s.cfg.NewsCountry),
		news.WithTimeout(s.cfg.HTTPTimeout),
	}
	if s.cfg.NewsCacheTTL > 0 {
		store, err := cache.Open(s.ctx(cmd), s.cfg.RedisURL, s.cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		opts = append(opts, news.WithCache(store, s.cfg.NewsCacheTTL))
	}
	return news.NewClient(s.cfg.NewsAPIKey, opts...), nil
}

// archive opens the local archive, uploading to R2 when it is configured.
func (s *session) archive(cmd *cobra.Command) (*storage.Archive, error) {
	var uploader storage.Uploader
	if s.cfg.R2Enabled() {
		r2, err := storage.NewR2Uploader(s.ctx(cmd), storage.R2Config{
			Endpoint:  s.cfg.R2Endpoint,
			AccountID: s.cfg.R2AccountID,
			AccessKey: s.cfg.R2AccessKey,
			SecretKey: s.cfg.R2SecretKey,
			Bucket:    s.cfg.R2Bucket,
		})
		if err != nil {
			return nil, err
		}
		uploader = r2
	}
	return storage.NewArchive(s.cfg.ArchivePath, uploader)
}

func (s *session) printArticles(offset int, articles []models.Article) {
	for i, a := range articles {
		fmt.Fprintf(s.out, "%3d. %s\n     %s | %s\n", offset+i+1, a.Title, a.Source.Name, a.URL)
	}
}

func newNewsBrowseCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Page through top headlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.newsClient(cmd)
			if err != nil {
				return err
			}
			b := news.NewBrowser(client)
			if err := b.Load(s.ctx(cmd)); err != nil {
				s.notify.Error(news.MsgConnectionFailed)
				return err
			}
			s.printArticles(0, b.Articles())

			for b.HasMore() {
				more, err := s.confirm("¿Cargar más noticias?")
				if err != nil || !more {
					return nil
				}
				shown := len(b.Articles())
				if err := b.LoadMore(s.ctx(cmd)); err != nil {
					if errors.Is(err, news.ErrNoMoreResults) {
						return nil
					}
					s.notify.Error(news.MsgLoadMoreFailed + err.Error())
					continue
				}
				s.printArticles(shown, b.Articles()[shown:])
			}
			return nil
		},
	}
}

func newNewsCheckCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the news provider answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.newsClient(cmd)
			if err != nil {
				return err
			}
			if !client.CheckConnection(s.ctx(cmd)) {
				s.notify.Error(news.MsgConnectionFailed)
				return errors.New("news provider unreachable")
			}
			s.notify.Success(news.MsgConnected)
			return nil
		},
	}
}

func newNewsSaveCommand(s *session) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "save [number...]",
		Short: "Archive headlines from a page (all of them when no number is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.newsClient(cmd)
			if err != nil {
				return err
			}
			archive, err := s.archive(cmd)
			if err != nil {
				return err
			}

			result, err := news.FetchPage(s.ctx(cmd), client, page)
			if err != nil {
				s.notify.Error(news.MsgConnectionFailed)
				return err
			}

			picked, err := pick(result, args)
			if err != nil {
				return err
			}
			for _, a := range picked {
				item, err := archive.Save(s.ctx(cmd), a)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "%s  %s\n", item.ID, a.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page the numbers refer to")
	return cmd
}

// pick selects articles by their printed number (1-based across pages).
func pick(p news.Page, args []string) ([]models.Article, error) {
	if len(args) == 0 {
		return p.Articles, nil
	}
	offset := (p.Page - 1) * news.PageSize
	out := make([]models.Article, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		i := n - offset - 1
		if err != nil || i < 0 || i >= len(p.Articles) {
			return nil, fmt.Errorf("no hay una noticia número %s en la página %d", arg, p.Page)
		}
		out = append(out, p.Articles[i])
	}
	return out, nil
}

func newNewsSavedCommand(s *session) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "saved [id]",
		Short: "List archived headlines, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := s.archive(cmd)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				item, err := archive.Get(s.ctx(cmd), args[0])
				if err != nil {
					return err
				}
				a := item.Article
				fmt.Fprintf(s.out, "%s\n%s\n%s\n", a.Title, a.URL, a.PublishedAt)
				if a.Description != nil {
					fmt.Fprintln(s.out, strings.TrimSpace(*a.Description))
				}
				return nil
			}

			items, err := archive.List(s.ctx(cmd), page, size)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(s.out, "%s  %s  %s\n", item.ID, item.SavedAt.Format("2006-01-02"), item.Article.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 20, "items per page")
	return cmd
}

func newNewsUnsaveCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "unsave <id>",
		Short: "Remove a headline from the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := s.archive(cmd)
			if err != nil {
				return err
			}
			return archive.Delete(s.ctx(cmd), args[0])
		},
	}
}
