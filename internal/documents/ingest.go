package documents

import (
	"context"
	"fmt"

	"github.com/steveyegge/rdscout/internal/types"
)

// Store is the subset of storage.Storage ingestion needs
type Store interface {
	GetDocuments(ctx context.Context, ids []string) (map[string]*types.Document, error)
	PutDocument(ctx context.Context, doc *types.Document) error
}

// IngestResult reports what an ingest wrote
type IngestResult struct {
	Added     []string
	Updated   []string
	Unchanged []string
}

// Changed returns the added and updated document IDs, the ones worth analyzing
func (r *IngestResult) Changed() []string {
	out := make([]string, 0, len(r.Added)+len(r.Updated))
	out = append(out, r.Added...)
	return append(out, r.Updated...)
}

// Ingest stores docs, leaving documents whose text is unchanged alone so
// their cached analysis survives
func Ingest(ctx context.Context, store Store, docs []*types.Document) (*IngestResult, error) {
	res := &IngestResult{}
	if len(docs) == 0 {
		return res, nil
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	existing, err := store.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing documents: %w", err)
	}

	for _, d := range docs {
		old, ok := existing[d.ID]
		if ok && old.Text == d.Text && old.Title == d.Title {
			res.Unchanged = append(res.Unchanged, d.ID)
			continue
		}
		if ok {
			// Re-ingesting keeps the original creation time
			d.CreatedAt = old.CreatedAt
		}
		if err := store.PutDocument(ctx, d); err != nil {
			return res, fmt.Errorf("failed to store %s: %w", d.ID, err)
		}
		if ok {
			res.Updated = append(res.Updated, d.ID)
		} else {
			res.Added = append(res.Added, d.ID)
		}
	}
	return res, nil
}
