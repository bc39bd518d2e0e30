// Package documents feeds text documents into discovery: a directory-backed
// source, ingestion into storage, and a debounced watcher for inbox folders.
package documents

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steveyegge/rdscout/internal/types"
)

// DefaultExtensions are the file types read as documents
var DefaultExtensions = []string{".txt", ".md"}

// defaultExcludes are directory names never descended into
var defaultExcludes = map[string]bool{".git": true, ".rdscout": true, "node_modules": true, "vendor": true}

// Source produces documents for a scope
type Source interface {
	Load(ctx context.Context) ([]*types.Document, error)
}

// DirSource reads every text file under a directory. A document's ID is its
// slash-separated path relative to the directory and its creation time is
// the file's modification time.
type DirSource struct {
	Root    string
	ScopeID string

	extensions map[string]bool
}

// NewDirSource creates a source over root. Empty extensions uses DefaultExtensions.
func NewDirSource(root, scopeID string, extensions ...string) *DirSource {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = true
	}
	return &DirSource{Root: root, ScopeID: scopeID, extensions: exts}
}

// Matches reports whether path has one of the source's extensions
func (s *DirSource) Matches(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// Load reads all matching files, sorted by ID
func (s *DirSource) Load(ctx context.Context) ([]*types.Document, error) {
	var docs []*types.Document
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Root && (defaultExcludes[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.Matches(path) {
			return nil
		}
		doc, err := s.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load documents from %s: %w", s.Root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// ReadFile reads one file of the source as a document
func (s *DirSource) ReadFile(path string) (*types.Document, error) {
	id, err := s.DocumentID(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text := string(data)
	return &types.Document{
		ID:        id,
		ScopeID:   s.ScopeID,
		Title:     titleOf(text, path),
		Text:      text,
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

// DocumentID returns the ID of the document stored at path
func (s *DirSource) DocumentID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside %s: %w", path, s.Root, types.ErrInvalidInput)
	}
	return filepath.ToSlash(rel), nil
}

// titleOf uses a leading markdown heading, otherwise the file name
func titleOf(text, path string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
		break
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
