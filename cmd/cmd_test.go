package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/readdaily/internal/catalog"
	"github.com/example/readdaily/pkg/models"
)

func TestMergeByID(t *testing.T) {
	existing := []models.Article{{ID: "a", Title: "Old"}, {ID: "b", Title: "Keep"}}
	incoming := []models.Article{{ID: "a", Title: "New"}, {ID: "c", Title: "Added"}}

	merged := mergeByID(existing, incoming)
	if len(merged) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(merged))
	}
	if merged[0].Title != "New" || merged[1].Title != "Keep" || merged[2].ID != "c" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if existing[0].Title != "Old" {
		t.Fatalf("existing slice was modified")
	}
}

func TestImportSheetCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "articles.csv")
	csv := "id,title,subtitle,author,genre,content\n" +
		"h-1,On Bridges,,Ada,Architecture,Bridges span rivers.\n" +
		",Bread,,Ben,,Flour and water.\n"
	if err := os.WriteFile(input, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := filepath.Join(dir, "out", "catalog.json")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"import", "sheet", input, "--out", out, "--genre", "Food"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flagImportOut, flagImportGenre = "", ""
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	articles, err := catalog.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].ID != "h-1" || articles[1].Genre != "Food" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
	if !strings.Contains(stderr.String(), "2 created") {
		t.Fatalf("expected summary on stderr, got %q", stderr.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	SetVersionInfo("1.2.3", "abc", "today")
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "readdaily 1.2.3") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}
