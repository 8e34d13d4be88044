// AngelaMos | 2026
// store_test.go

package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

// fakeS3 answers the handful of S3 calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")

	switch {
	case r.URL.Query().Has("location"):
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestMinioStore(t *testing.T) {
	s3 := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	srv := httptest.NewServer(s3)
	t.Cleanup(srv.Close)

	cfg := config.ArchiveConfig{
		Enabled:   true,
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "consultation-transcripts",
	}

	store, err := NewMinioStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, s3.buckets["consultation-transcripts"])

	body := []byte(`{"id":"c-1"}`)
	err = store.Put(context.Background(), "tarot/user-1/c-1.json", bytes.NewReader(body), int64(len(body)), "application/json")
	require.NoError(t, err)

	stored := s3.objects["consultation-transcripts/tarot/user-1/c-1.json"]
	assert.Contains(t, string(stored), `"id":"c-1"`)

	url, err := store.PresignGet(context.Background(), "tarot/user-1/c-1.json", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "tarot/user-1/c-1.json")
	assert.Contains(t, url, "X-Amz-Signature")
}
