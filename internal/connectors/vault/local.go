package vault

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/shelfsync/internal/connectors/apiclient"
	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// Ensure Local implements the interface.
var _ driven.VaultSource = (*Local)(nil)

// Local reads a vault from a directory of markdown files.
type Local struct {
	name    string
	root    string
	baseURL string
}

// NewLocal creates an adapter for the vault at root. baseURL, when set, is
// where the vault is published and is used to build note links.
func NewLocal(name, root, baseURL string) (*Local, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("vault: %w: name is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s: %w: %s is not a directory", name, domain.ErrInvalidInput, root)
	}
	return &Local{
		name:    name,
		root:    root,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// Name is the vault's scope name.
func (l *Local) Name() string {
	return l.name
}

// Root is the directory the vault is read from.
func (l *Local) Root() string {
	return l.root
}

// FetchNotes reads every markdown file under the root. Hidden directories
// are skipped.
func (l *Local) FetchNotes(ctx context.Context) ([]domain.VaultNote, error) {
	var notes []domain.VaultNote
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != l.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdown(path) {
			return nil
		}

		note, err := l.readNote(path)
		if err != nil {
			return err
		}
		notes = append(notes, note)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", l.name, err)
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Slug < notes[j].Slug })
	return notes, nil
}

func (l *Local) readNote(path string) (domain.VaultNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VaultNote{}, err
	}
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return domain.VaultNote{}, err
	}
	slug := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	fm, body := parseNote(data)
	title := fm.Title
	if title == "" {
		title = firstHeading(body)
	}

	note := domain.VaultNote{
		Slug:        slug,
		Vault:       l.name,
		Title:       title,
		Content:     body,
		Description: fm.Description,
		Tags:        fm.Tags,
		Date:        apiclient.ParseTime(fm.Date),
	}
	if l.baseURL != "" {
		note.SourceURL = l.baseURL + "/" + slug
	}
	return note, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}

// frontmatter holds the keys shelfsync reads from a note header.
type frontmatter struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Date        string     `yaml:"date"`
	Tags        stringList `yaml:"tags"`
}

// stringList accepts a YAML list or a single comma or space separated string.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*s = items
	case yaml.ScalarNode:
		*s = strings.FieldsFunc(value.Value, func(r rune) bool {
			return r == ',' || r == ' '
		})
	}
	return nil
}

// parseNote splits YAML frontmatter between leading --- lines from the body.
// Notes without frontmatter, or with frontmatter that does not parse, are
// all body.
func parseNote(data []byte) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter

	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, strings.TrimSpace(string(data))
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, strings.TrimSpace(string(data))
	}

	block := rest[:idx]
	body := rest[idx+1+len(delim):]
	if err := yaml.Unmarshal(block, &fm); err != nil {
		logger.Debug("vault: ignoring unparseable frontmatter: %v", err)
		return frontmatter{}, strings.TrimSpace(string(data))
	}
	return fm, strings.TrimSpace(string(body))
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
