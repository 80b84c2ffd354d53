package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_WritesFileToJobDir(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer server.Close()

	d := New(t.TempDir())
	path, err := d.Download(context.Background(), "job-1", server.URL+"/data.csv")
	require.NoError(t, err)

	assert.Equal(t, "data.csv", filepath.Base(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestDownload_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := New(t.TempDir())
	_, err := d.Download(context.Background(), "job-1", server.URL+"/f")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownload_RejectsOversizedContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "999999999")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := New(t.TempDir())
	_, err := d.Download(context.Background(), "job-1", server.URL+"/big")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestDownloadAll_ParallelFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	d := New(t.TempDir())
	paths, err := d.DownloadAll(context.Background(), "job-1", []string{
		server.URL + "/one.txt",
		server.URL + "/two.txt",
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "one.txt", filepath.Base(paths[0]))
	assert.Equal(t, "two.txt", filepath.Base(paths[1]))
}

func TestCleanup_RemovesWorkspace(t *testing.T) {
	base := t.TempDir()
	d := New(base)

	dir, err := d.JobDir("job-9")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), []byte("x"), 0o644))

	require.NoError(t, d.Cleanup("job-9"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
