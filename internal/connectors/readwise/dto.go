package readwise

import "github.com/custodia-labs/shelfsync/internal/connectors/apiclient"

type exportResponse struct {
	Count          int             `json:"count"`
	NextPageCursor *string         `json:"nextPageCursor"`
	Results        []exportBookDTO `json:"results"`
}

// exportBookDTO is an item with its highlights nested.
type exportBookDTO struct {
	UserBookID    int64          `json:"user_book_id"`
	Title         string         `json:"title"`
	ReadableTitle string         `json:"readable_title"`
	Author        string         `json:"author"`
	Category      string         `json:"category"`
	CoverImageURL string         `json:"cover_image_url"`
	SourceURL     string         `json:"source_url"`
	UniqueURL     string         `json:"unique_url"`
	Highlights    []highlightDTO `json:"highlights"`
}

type highlightDTO struct {
	ID            int64          `json:"id"`
	Text          string         `json:"text"`
	Note          string         `json:"note"`
	Location      *int64         `json:"location"`
	LocationType  string         `json:"location_type"`
	Color         string         `json:"color"`
	HighlightedAt apiclient.Time `json:"highlighted_at"`
	Updated       apiclient.Time `json:"updated"`
	Tags          []tagDTO       `json:"tags"`
	IsFavorite    bool           `json:"is_favorite"`
	IsDiscard     bool           `json:"is_discard"`
}

type tagDTO struct {
	Name string `json:"name"`
}

type booksResponse struct {
	Count   int       `json:"count"`
	Next    *string   `json:"next"`
	Results []bookDTO `json:"results"`
}

type bookDTO struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Author        string         `json:"author"`
	Category      string         `json:"category"`
	CoverImageURL string         `json:"cover_image_url"`
	SourceURL     string         `json:"source_url"`
	NumHighlights int            `json:"num_highlights"`
	Updated       apiclient.Time `json:"updated"`
}
