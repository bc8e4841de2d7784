package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/docstore"
	"docflow/internal/document"
)

// MustOpenStore opens a docstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...docstore.Option) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDocument creates a draft document for tests using the provided store.
func NewDocument(t testing.TB, store *docstore.Store, author, title string) *document.Document {
	t.Helper()

	doc, err := store.Create(context.Background(), author, title)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return doc
}

// NewDocuments creates n draft documents titled "Document #i".
func NewDocuments(t testing.TB, store *docstore.Store, n int) []*document.Document {
	t.Helper()

	docs := make([]*document.Document, 0, n)
	for i := 1; i <= n; i++ {
		docs = append(docs, NewDocument(t, store, "tester", fmt.Sprintf("Document #%d", i)))
	}
	return docs
}

// Advance applies transitions directly through the store, bypassing the
// executor, and returns the refreshed document.
func Advance(t testing.TB, store *docstore.Store, doc *document.Document, actor string, transitions ...document.Transition) *document.Document {
	t.Helper()

	ctx := context.Background()
	current := doc
	for _, tr := range transitions {
		write := document.NewTransitionWrite(current, tr, actor, time.Now().UTC())
		if err := store.ApplyTransition(ctx, write); err != nil {
			t.Fatalf("ApplyTransition %s: %v", tr.Name, err)
		}
		refreshed, err := store.GetByID(ctx, current.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		current = refreshed
	}
	return current
}
