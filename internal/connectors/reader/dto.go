package reader

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/custodia-labs/shelfsync/internal/connectors/apiclient"
)

type listResponse struct {
	Count          int           `json:"count"`
	NextPageCursor *string       `json:"nextPageCursor"`
	Results        []documentDTO `json:"results"`
}

type documentDTO struct {
	ID              string         `json:"id"`
	URL             string         `json:"url"`
	SourceURL       string         `json:"source_url"`
	Title           string         `json:"title"`
	Author          string         `json:"author"`
	SiteName        string         `json:"site_name"`
	Summary         string         `json:"summary"`
	ImageURL        string         `json:"image_url"`
	Category        string         `json:"category"`
	Location        string         `json:"location"`
	Tags            tagSet         `json:"tags"`
	WordCount       int            `json:"word_count"`
	ReadingProgress float64        `json:"reading_progress"`
	PublishedDate   apiclient.Time `json:"published_date"`
	UpdatedAt       apiclient.Time `json:"updated_at"`
	HTMLContent     string         `json:"html_content"`
}

// tagSet accepts the object form ({"name": {...}}) the API uses and a
// plain list of names.
type tagSet []string

func (t *tagSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = nil
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		*t = names
		return nil
	}

	var byName map[string]struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &byName); err != nil {
		return err
	}
	names := make([]string, 0, len(byName))
	for key, tag := range byName {
		if tag.Name != "" {
			names = append(names, tag.Name)
		} else {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	*t = names
	return nil
}
