package models

import "time"

// ArticleSource identifies the outlet an article came from
type ArticleSource struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// Article is a headline as returned by the news provider. It is passed
// through untouched, so publishedAt stays the provider's text whatever its
// format.
type Article struct {
	Source      ArticleSource `json:"source"`
	Author      *string       `json:"author"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	URL         string        `json:"url"`
	URLToImage  *string       `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
	Content     *string       `json:"content"`
}

// HeadlinesResponse is the provider's top-headlines envelope
type HeadlinesResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// ArchivedArticle is an article saved by the archive, with bookkeeping fields
type ArchivedArticle struct {
	ID        string    `json:"id"`
	Article   Article   `json:"article"`
	SavedAt   time.Time `json:"saved_at"`
	FilePath  string    `json:"file_path,omitempty"`
	RemoteKey string    `json:"remote_key,omitempty"`
}
