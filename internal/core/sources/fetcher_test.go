package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairy-advisor/internal/infrastructure/config"
	"dairy-advisor/internal/pkg/common"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(&config.SourcesConfig{Timeout: 5 * time.Second, RetryCount: 2, UserAgent: "dairy-advisor-test"})
}

func TestFetchWritesFile(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
		w.Write([]byte("AÑO;MES;ANTIOQUIA\n2024;ENERO;1.000\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data", "volume.csv")
	res, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "AÑO;MES;ANTIOQUIA\n2024;ENERO;1.000\n", string(data))
	assert.Equal(t, len(data), res.Bytes)
	assert.Equal(t, "dairy-advisor-test", agent.Load())

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "price.csv")
	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchKeepsExistingFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "census.csv")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "", filepath.Join(t.TempDir(), "x.csv"))
	var invalid *common.InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}
