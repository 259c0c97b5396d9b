package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/example/readdaily/pkg/models"
)

// ErrCatalogUnavailable is returned when the catalog resource is missing or malformed
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Catalog holds the immutable list of articles. It is loaded lazily from its
// source on first use; a failed load is retried on the next call.
type Catalog struct {
	src Source

	mu       sync.Mutex
	loaded   bool
	articles []models.Article
	byID     map[string]models.Article
}

// New creates a catalog backed by src
func New(src Source) *Catalog {
	return &Catalog{src: src}
}

// FromArticles creates an already loaded catalog. Mostly useful in tests.
func FromArticles(articles []models.Article) (*Catalog, error) {
	c := &Catalog{}
	if err := c.set(articles); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadAll returns every article in catalog order
func (c *Catalog) LoadAll(ctx context.Context) ([]models.Article, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.load(ctx); err != nil {
			log.Printf("Failed to load article catalog: %v", err)
			return nil, err
		}
	}
	return append([]models.Article(nil), c.articles...), nil
}

// GetByIDs returns the articles for ids in the order of ids. Unknown ids are skipped.
func (c *Catalog) GetByIDs(ctx context.Context, ids []string) []models.Article {
	if _, err := c.LoadAll(ctx); err != nil {
		return []models.Article{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := c.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Get returns a single article by id
func (c *Catalog) Get(ctx context.Context, id string) (models.Article, bool) {
	found := c.GetByIDs(ctx, []string{id})
	if len(found) == 0 {
		return models.Article{}, false
	}
	return found[0], true
}

// Genres lists the distinct genres in the order they first appear
func (c *Catalog) Genres(ctx context.Context) []string {
	articles, err := c.LoadAll(ctx)
	if err != nil {
		return []string{}
	}
	genres := make([]string, 0)
	seen := make(map[string]bool)
	for _, a := range articles {
		key := strings.ToLower(a.Genre)
		if a.Genre == "" || seen[key] {
			continue
		}
		seen[key] = true
		genres = append(genres, a.Genre)
	}
	return genres
}

func (c *Catalog) load(ctx context.Context) error {
	if c.src == nil {
		return fmt.Errorf("%w: no source configured", ErrCatalogUnavailable)
	}
	r, err := c.src.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrCatalogUnavailable, c.src, err)
	}
	defer r.Close()

	articles, err := Decode(r)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, c.src, err)
	}
	if err := c.set(articles); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, c.src, err)
	}
	log.Printf("Loaded %d articles from %s", len(articles), c.src)
	return nil
}

func (c *Catalog) set(articles []models.Article) error {
	byID := make(map[string]models.Article, len(articles))
	for i, a := range articles {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("article %d has no id", i)
		}
		if _, dup := byID[a.ID]; dup {
			return fmt.Errorf("duplicate article id %q", a.ID)
		}
		byID[a.ID] = a
	}
	c.articles = append([]models.Article(nil), articles...)
	c.byID = byID
	c.loaded = true
	return nil
}

// Decode parses a catalog JSON array
func Decode(r io.Reader) ([]models.Article, error) {
	var articles []models.Article
	dec := json.NewDecoder(r)
	if err := dec.Decode(&articles); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if articles == nil {
		return nil, fmt.Errorf("parse catalog: expected a JSON array")
	}
	return articles, nil
}

// Encode writes articles as an indented JSON array
func Encode(w io.Writer, articles []models.Article) error {
	if articles == nil {
		articles = []models.Article{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(articles)
}
