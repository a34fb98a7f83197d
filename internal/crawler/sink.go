package crawler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// WriteJSONL serializes articles one JSON object per line, overwriting any
// prior file at path. Non-ASCII text is written as-is. An empty record set
// still produces the (empty) file.
func WriteJSONL(path string, articles []Article) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for i := range articles {
		if err := enc.Encode(&articles[i]); err != nil {
			f.Close()
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the tabular sink: a header row plus one row per record,
// authors joined into a single string. An empty record set writes nothing
// at all, not even a header.
func WriteCSV(path string, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(articleCSVHeader); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for i := range articles {
		if err := w.Write(articles[i].csvRow()); err != nil {
			f.Close()
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func joinAuthors(authors []string) string {
	return strings.Join(authors, ", ")
}
