package generator_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docflow/internal/api"
	"docflow/internal/generator"
	"docflow/internal/logging"
)

func TestRunPostsTitledDocuments(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req api.CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Generator", req.Author)
		require.Equal(t, "generator-util", req.Initiator)
		mu.Lock()
		titles = append(titles, req.Title)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gen, err := generator.New(generator.Options{
		Count:     5,
		BaseURL:   srv.URL,
		Author:    "Generator",
		Initiator: "generator-util",
		Logger:    logging.NewNop(),
	})
	require.NoError(t, err)

	summary, err := gen.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, summary.Created)
	require.Zero(t, summary.Errors)
	require.Equal(t, []string{"Document #1", "Document #2", "Document #3", "Document #4", "Document #5"}, titles)
}

func TestRunCountsFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gen, err := generator.New(generator.Options{Count: 4, BaseURL: srv.URL, Author: "a", Initiator: "b"})
	require.NoError(t, err)
	summary, err := gen.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Created)
	require.Equal(t, 2, summary.Errors)
}

func TestRunHonorsRateAndCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gen, err := generator.New(generator.Options{Count: 1000, BaseURL: srv.URL, RatePerSecond: 10, Author: "a", Initiator: "b"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	summary, err := gen.Run(ctx)
	require.Error(t, err)
	require.Less(t, summary.Created, 1000)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := generator.New(generator.Options{Count: 0, BaseURL: "http://x", Author: "a", Initiator: "b"})
	require.Error(t, err)
	_, err = generator.New(generator.Options{Count: 1, Author: "a", Initiator: "b"})
	require.Error(t, err)
	_, err = generator.New(generator.Options{Count: 1, BaseURL: "http://x", Author: " ", Initiator: "b"})
	require.Error(t, err)
}
