package config

import (
	"fmt"
	"net/http"

	"github.com/custodia-labs/shelfsync/internal/connectors/goodreads"
	"github.com/custodia-labs/shelfsync/internal/connectors/reader"
	"github.com/custodia-labs/shelfsync/internal/connectors/readwise"
	"github.com/custodia-labs/shelfsync/internal/connectors/vault"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
)

// BuildSources creates an adapter for every configured source. Sources
// without settings stay nil. hc may be nil for the default HTTP client.
func (c *Config) BuildSources(hc *http.Client) (driven.Sources, error) {
	var sources driven.Sources

	if c.Reader.Token != "" {
		client, err := reader.New(reader.Config{
			Token:      c.Reader.Token,
			BaseURL:    c.Reader.BaseURL,
			HTTPClient: hc,
		})
		if err != nil {
			return driven.Sources{}, err
		}
		sources.Reader = client
	}

	if c.Readwise.Token != "" {
		client, err := readwise.New(readwise.Config{
			Token:      c.Readwise.Token,
			BaseURL:    c.Readwise.BaseURL,
			PageSize:   c.Readwise.PageSize,
			HTTPClient: hc,
		})
		if err != nil {
			return driven.Sources{}, err
		}
		sources.Export = client
		sources.Books = client
	}

	for _, v := range c.Vaults {
		src, err := v.Build(hc)
		if err != nil {
			return driven.Sources{}, err
		}
		sources.Vaults = append(sources.Vaults, src)
	}

	if c.Goodreads.CSVPath != "" {
		lib, err := goodreads.New(goodreads.Config{Path: c.Goodreads.CSVPath})
		if err != nil {
			return driven.Sources{}, err
		}
		sources.Library = lib
	}

	return sources, nil
}

// Build creates the adapter for one vault.
func (v VaultConfig) Build(hc *http.Client) (driven.VaultSource, error) {
	if v.Local() {
		local, err := vault.NewLocal(v.Name, v.Path, v.URL)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
	if v.URL == "" {
		return nil, fmt.Errorf("vault %s: no url or path", v.Name)
	}
	remote, err := vault.NewQuartz(v.Name, v.URL, v.Token, hc)
	if err != nil {
		return nil, err
	}
	return remote, nil
}
