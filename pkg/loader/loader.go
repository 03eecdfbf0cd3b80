// Package loader reads plain-text documents from a data folder. It is the
// inbound collaborator of the ingestion pipeline: it guarantees UTF-8 text
// and skips empty files, deriving each document id from the filename stem.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pressrag-ai/pressrag/pkg/extract"
	"github.com/pressrag-ai/pressrag/pkg/rag"
)

// Loader scans a folder for *.txt documents.
type Loader struct {
	dataFolder string
	log        zerolog.Logger
}

// New creates a loader for the given data folder.
func New(dataFolder string, log zerolog.Logger) *Loader {
	return &Loader{dataFolder: dataFolder, log: log}
}

// LoadAll reads every .txt file in the data folder, in filename order.
// Empty and non-UTF-8 files are skipped with a warning rather than failing
// the whole run.
func (l *Loader) LoadAll() ([]rag.Document, error) {
	info, err := os.Stat(l.dataFolder)
	if err != nil {
		return nil, fmt.Errorf("data folder %s: %w", l.dataFolder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data folder %s is not a directory", l.dataFolder)
	}

	paths, err := filepath.Glob(filepath.Join(l.dataFolder, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("scan data folder: %w", err)
	}
	sort.Strings(paths)

	docs := make([]rag.Document, 0, len(paths))
	for _, path := range paths {
		doc, ok, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}

	l.log.Info().Int("documents", len(docs)).Str("folder", l.dataFolder).Msg("loaded documents")
	return docs, nil
}

func (l *Loader) loadFile(path string) (rag.Document, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rag.Document{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		l.log.Warn().Str("file", path).Msg("skipping empty document")
		return rag.Document{}, false, nil
	}
	if !utf8.ValidString(text) {
		l.log.Warn().Str("file", path).Msg("skipping non-UTF-8 document")
		return rag.Document{}, false, nil
	}
	return rag.Document{
		ID:   extract.Stem(path),
		Text: text,
	}, true, nil
}
