// Package dictionary looks up word definitions on dictionaryapi.dev.
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the free English dictionary endpoint
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en/"

// ErrWordNotFound is returned when the dictionary has no entry for a word
var ErrWordNotFound = errors.New("word not found in dictionary")

// Entry is one dictionary result for a word
type Entry struct {
	Word       string     `json:"word"`
	Phonetic   string     `json:"phonetic,omitempty"`
	Phonetics  []Phonetic `json:"phonetics"`
	Meanings   []Meaning  `json:"meanings"`
	License    License    `json:"license"`
	SourceURLs []string   `json:"sourceUrls"`
}

// Phonetic is a transcription with an optional audio link
type Phonetic struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Meaning groups definitions by part of speech
type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
	Synonyms     []string     `json:"synonyms"`
	Antonyms     []string     `json:"antonyms"`
}

// Definition is a single sense of a word
type Definition struct {
	Definition string   `json:"definition"`
	Example    string   `json:"example,omitempty"`
	Synonyms   []string `json:"synonyms"`
	Antonyms   []string `json:"antonyms"`
}

// License describes the terms of the returned data
type License struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Client represents a client for the dictionary API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new dictionary client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup fetches every entry the dictionary holds for word
func (c *Client) Lookup(ctx context.Context, word string) ([]Entry, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("%w: empty word", ErrWordNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(word), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrWordNotFound, word)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dictionary API error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWordNotFound, word)
	}
	return entries, nil
}

// Summary renders the first few definitions as plain text
func Summary(entries []Entry, limit int) string {
	var b strings.Builder
	n := 0
	for _, e := range entries {
		if b.Len() == 0 {
			b.WriteString(e.Word)
			if e.Phonetic != "" {
				b.WriteString(" " + e.Phonetic)
			}
			b.WriteString("\n")
		}
		for _, m := range e.Meanings {
			for _, d := range m.Definitions {
				if n == limit {
					return strings.TrimSpace(b.String())
				}
				n++
				fmt.Fprintf(&b, "\n%d. (%s) %s", n, m.PartOfSpeech, d.Definition)
				if d.Example != "" {
					fmt.Fprintf(&b, "\n   \"%s\"", d.Example)
				}
			}
		}
	}
	return strings.TrimSpace(b.String())
}
