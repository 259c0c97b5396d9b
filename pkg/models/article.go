package models

// Article is a single piece of reading material from the catalog
type Article struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Content  string `json:"content"`
}

// Equal reports whether two articles are the same catalog entry.
func (a Article) Equal(other Article) bool {
	return a.ID == other.ID
}

// ArticleIDs returns the ids of articles in order
func ArticleIDs(articles []Article) []string {
	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		ids = append(ids, a.ID)
	}
	return ids
}
