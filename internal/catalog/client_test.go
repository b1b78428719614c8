package catalog_test

import (
	"context"
	"fmt"
	"ms-events/internal/catalog"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "10", r.URL.Query().Get("skip"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"products":[{"id":11,"title":"Annibale Colombo Bed","category":"furniture","price":1899.99}],"total":194,"skip":10,"limit":5}`)
	})
	mux.HandleFunc("/products/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"title":"Essence Mascara Lash Princess","category":"beauty","price":9.99,"rating":4.94}`)
	})
	mux.HandleFunc("/products/2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/products/3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":`)
	})
	mux.HandleFunc("/products/9999", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Product with id '9999' not found"}`, http.StatusNotFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchPage(t *testing.T) {
	srv := newUpstream(t)
	client := catalog.NewClient(srv.URL+"/", srv.Client(), logger.NewWithWriter(nil))

	page, err := client.FetchPage(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 194, page.Total)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "Annibale Colombo Bed", page.Events[0].Title)
}

func TestClient_FetchEvent(t *testing.T) {
	srv := newUpstream(t)
	client := catalog.NewClient(srv.URL, srv.Client(), logger.NewWithWriter(nil))
	ctx := context.Background()

	event, err := client.FetchEvent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "beauty", event.Category)
	assert.Equal(t, 4.94, event.Rating)

	_, err = client.FetchEvent(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	_, err = client.FetchEvent(ctx, 2)
	assert.ErrorIs(t, err, models.ErrUpstream)

	_, err = client.FetchEvent(ctx, 3)
	assert.ErrorIs(t, err, models.ErrUpstream, "malformed bodies are upstream failures")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := catalog.NewClient(url, nil, logger.NewWithWriter(nil))
	_, err := client.FetchPage(context.Background(), 30, 0)
	assert.ErrorIs(t, err, models.ErrUpstream)
}
