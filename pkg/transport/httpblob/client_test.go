package httpblob

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkmark/inkmark/pkg/transport"
)

// newBlobServer runs an in-memory blob service with the routes the client
// expects.
func newBlobServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()

	var blobs sync.Map

	r := mux.NewRouter()
	r.HandleFunc("/blobs/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["name"]
		switch req.Method {
		case http.MethodPut:
			data, err := io.ReadAll(req.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			blobs.Store(name, data)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			data, ok := blobs.Load(name)
			if !ok {
				http.NotFound(w, req)
				return
			}
			_, _ = w.Write(data.([]byte))
		}
	}).Methods(http.MethodPut, http.MethodGet)

	r.HandleFunc("/blobs", func(w http.ResponseWriter, req *http.Request) {
		var infos []transport.BlobInfo
		blobs.Range(func(key, value any) bool {
			infos = append(infos, transport.BlobInfo{
				Name:       key.(string),
				Size:       int64(len(value.([]byte))),
				ModifiedAt: time.Now().UTC(),
			})
			return true
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(infos)
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &blobs
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	srv, _ := newBlobServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.UploadNamedBlob(ctx, "book-a.json", []byte(`[{"id":"1"}]`)))

	data, err := c.DownloadNamedBlob(ctx, "book-a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"1"}]`), data)
}

func TestDownloadMissingBlob(t *testing.T) {
	srv, _ := newBlobServer(t)
	c := New(srv.URL)

	_, err := c.DownloadNamedBlob(context.Background(), "absent")
	assert.ErrorIs(t, err, transport.ErrBlobNotFound)
}

func TestListNamedBlobs(t *testing.T) {
	srv, _ := newBlobServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.UploadNamedBlob(ctx, "one", []byte("x")))
	require.NoError(t, c.UploadNamedBlob(ctx, "two", []byte("yy")))

	infos, err := c.ListNamedBlobs(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	sizes := map[string]int64{}
	for _, info := range infos {
		sizes[info.Name] = info.Size
	}
	assert.Equal(t, int64(1), sizes["one"])
	assert.Equal(t, int64(2), sizes["two"])
}

func TestBlobNameWithSpaces(t *testing.T) {
	srv, _ := newBlobServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.UploadNamedBlob(ctx, "my book.json", []byte("x")))
	data, err := c.DownloadNamedBlob(ctx, "my book.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestContextCancellation(t *testing.T) {
	srv, _ := newBlobServer(t)
	c := New(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.DownloadNamedBlob(ctx, "any")
	assert.Error(t, err)
}
