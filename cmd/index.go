package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/medichat/medichat/internal/app"
	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/knowledge"
)

// maxPassageLen caps one indexed passage. Paragraphs are merged up to
// this length so short lines do not become useless one-sentence passages.
const maxPassageLen = 2000

// runIndex ingests .txt and .md files from a directory into the
// knowledge base. Files are split into paragraph passages, each embedded
// and upserted under a deterministic ID, so re-running the command
// refreshes existing passages instead of duplicating them.
func runIndex(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: medichat index <dir>")
	}
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg)

	a := app.Setup(ctx, cfg, logger)
	defer a.Close()
	if a.Knowledge == nil {
		return errors.New("knowledge store unavailable, check DATABASE_URL and GEMINI_API_KEY")
	}

	files, passages, err := indexDir(ctx, a.Knowledge, dir)
	if err != nil {
		return err
	}

	total, err := a.Knowledge.Count(ctx)
	if err != nil {
		logger.Warn("counting indexed documents", "error", err)
	}

	logger.Info("indexing complete", "files", files, "passages", passages, "index_total", total)
	return nil
}

// indexDir walks dir and indexes every .txt and .md file found.
func indexDir(ctx context.Context, store *knowledge.Store, dir string) (files, passages int, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
		default:
			return nil
		}

		n, err := indexFile(ctx, store, dir, path)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		files++
		passages += n
		return nil
	})
	return files, passages, err
}

// indexFile splits one file into passages and upserts them. Passage IDs
// are "<relative path>#<n>" so the same file always maps to the same IDs.
func indexFile(ctx context.Context, store *knowledge.Store, dir, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)

	chunks := splitPassages(string(data))
	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      fmt.Sprintf("%s#%d", rel, i),
			Source:  rel,
			Content: chunk,
		}
		if err := store.Add(ctx, doc); err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

// splitPassages splits text on blank lines and merges adjacent paragraphs
// up to maxPassageLen. Empty input yields no passages.
func splitPassages(text string) []string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")

	var passages []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		// A paragraph longer than the cap is flushed and chopped on its own.
		if len(p) > maxPassageLen {
			if current.Len() > 0 {
				passages = append(passages, current.String())
				current.Reset()
			}
			passages = append(passages, chopRunes(p, maxPassageLen)...)
			continue
		}

		if current.Len() > 0 && current.Len()+len(p)+2 > maxPassageLen {
			passages = append(passages, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		passages = append(passages, current.String())
	}
	return passages
}

// chopRunes splits s into pieces of at most max bytes without cutting a
// rune in half.
func chopRunes(s string, max int) []string {
	var pieces []string
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = max
		}
		pieces = append(pieces, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}
