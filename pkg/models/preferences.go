package models

import "strings"

// GenrePreferences holds the genres a user wants to read
type GenrePreferences struct {
	Genres             []string `json:"genres"`
	HasSeenGenreScreen bool     `json:"hasSeenGenreScreen"`
}

// Matches reports whether genre is one of the preferred genres, ignoring case.
func (p GenrePreferences) Matches(genre string) bool {
	for _, g := range p.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// NormalizeGenres trims genres and drops empty and case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if g == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}

// ToggleGenre adds genre if it is not selected and removes it otherwise.
// Blank genres are ignored; the result reports whether p changed.
func (p *GenrePreferences) ToggleGenre(genre string) bool {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return false
	}
	for i, g := range p.Genres {
		if strings.EqualFold(g, genre) {
			p.Genres = append(p.Genres[:i], p.Genres[i+1:]...)
			return true
		}
	}
	p.Genres = append(p.Genres, genre)
	return true
}
