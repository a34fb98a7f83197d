package crawler

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleArticles() []Article {
	return []Article{
		{
			URL:           "https://site.test/news/articles/a1",
			Canonical:     strPtr("https://site.test/news/articles/a1"),
			Title:         strPtr("Headline — with “smart” punctuation"),
			Description:   strPtr("A description"),
			PublishedTime: strPtr("2026-08-01T09:00:00Z"),
			ModifiedTime:  strPtr("2026-08-02T10:00:00Z"),
			Section:       strPtr("UK"),
			Authors:       []string{"Jane Doe", "John Smith"},
		},
		{
			URL:     "https://site.test/news/articles/a2",
			Authors: []string{},
		},
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	want := sampleArticles()
	require.NoError(t, WriteJSONL(path, want))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []Article
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a Article
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		got = append(got, a)
	}
	require.NoError(t, sc.Err())
	require.Equal(t, want, got)
}

func TestJSONLEmptyAuthorsSerializeAsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	require.NoError(t, WriteJSONL(path, []Article{{URL: "https://site.test/news/articles/a2", Authors: []string{}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	require.Contains(t, line, `"authors":[]`)
	require.Contains(t, line, `"title":null`)
}

func TestJSONLLeavesNonASCIIUnescaped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	require.NoError(t, WriteJSONL(path, sampleArticles()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Headline — with “smart” punctuation")
}

func TestCSVContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	require.NoError(t, WriteCSV(path, sampleArticles()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, articleCSVHeader, rows[0])
	require.Equal(t, "Jane Doe, John Smith", rows[1][7])
	require.Equal(t, "", rows[2][1], "nil optionals render as empty cells")
	require.Equal(t, "", rows[2][7])
}

func TestEmptyInputWritesEmptyJSONLAndNoCSV(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "articles.jsonl")
	csvPath := filepath.Join(dir, "articles.csv")

	require.NoError(t, WriteJSONL(jsonlPath, nil))
	require.NoError(t, WriteCSV(csvPath, nil))

	data, err := os.ReadFile(jsonlPath)
	require.NoError(t, err)
	require.Empty(t, data)

	_, err = os.Stat(csvPath)
	require.True(t, os.IsNotExist(err), "empty input must not create a tabular file")
}

func TestWriteOverwritesPriorFiles(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "articles.jsonl")
	require.NoError(t, WriteJSONL(jsonlPath, sampleArticles()))
	require.NoError(t, WriteJSONL(jsonlPath, sampleArticles()[:1]))

	data, err := os.ReadFile(jsonlPath)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "\n"))
}
