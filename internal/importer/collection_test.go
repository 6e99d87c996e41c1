package importer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMediaServer serves the lookup and collection endpoints the client uses.
func fakeMediaServer(t *testing.T, items map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var added []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/system/info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Identity{Name: "testserver", Version: "1.0"})
	})
	mux.HandleFunc("GET /api/library/lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		externalID := r.URL.Query().Get("external_id")
		key, ok := items[externalID]
		resp := lookupResponse{}
		if ok {
			resp.Items = []libraryItem{{Key: key, Title: "Title " + externalID, ExternalID: externalID}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("POST /api/collections/{id}/items", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ItemKey string `json:"item_key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		added = append(added, r.PathValue("id")+":"+body.ItemKey)
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &added
}

func TestCollectionClient_Import(t *testing.T) {
	srv, added := fakeMediaServer(t, map[string]string{"tt001": "lib-42"})
	client := NewCollectionClient(srv.URL, "secret", testLogger())

	err := client.Import(context.Background(), "tt001", "coll-9")
	require.NoError(t, err)
	assert.Equal(t, []string{"coll-9:lib-42"}, *added)
}

func TestCollectionClient_Import_NotFound(t *testing.T) {
	srv, added := fakeMediaServer(t, nil)
	client := NewCollectionClient(srv.URL, "secret", testLogger())

	err := client.Import(context.Background(), "tt404", "coll-9")
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, *added)
}

func TestCollectionClient_Import_BadToken(t *testing.T) {
	srv, _ := fakeMediaServer(t, map[string]string{"tt001": "lib-42"})
	client := NewCollectionClient(srv.URL, "wrong", testLogger())

	err := client.Import(context.Background(), "tt001", "coll-9")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCollectionClient_Import_ServerDown(t *testing.T) {
	srv, _ := fakeMediaServer(t, nil)
	srv.Close()
	client := NewCollectionClient(srv.URL, "secret", testLogger())

	err := client.Import(context.Background(), "tt001", "coll-9")
	require.ErrorIs(t, err, ErrServerUnavailable)
}

func TestCollectionClient_ServerIdentity(t *testing.T) {
	srv, _ := fakeMediaServer(t, nil)
	client := NewCollectionClient(srv.URL, "secret", testLogger())

	ident, err := client.ServerIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "testserver", ident.Name)
	assert.Equal(t, "1.0", ident.Version)
}
