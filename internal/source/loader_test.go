package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immunization-audit-server/internal/domain"
)

const sampleDataset = `[
	{"doc_id": "doc-1", "patient_id": "pat-1", "vaccine_name": "MMR", "lot_number": "A1B2C3", "quantity": "0.5"},
	{"doc_id": "doc-2", "patient_id": "pat-2", "vaccine_name": "DTaP", "quantity": 0.5}
]`

func testLoader(t *testing.T, cfg domain.DatasetConfig) *Loader {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewLoader(cfg, logger)
}

func TestLoadFromFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "loader-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0644))

	loader := testLoader(t, domain.DatasetConfig{Source: path})

	records, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "doc-1", records[0].DocID)
	assert.Equal(t, "A1B2C3", records[0].LotNumber)
	assert.Empty(t, records[1].LotNumber, "absent fields decode to empty values")
	assert.Equal(t, domain.Quantity("0.5"), records[0].Quantity, "string-encoded quantity")
	assert.Equal(t, domain.Quantity("0.5"), records[1].Quantity, "number-encoded quantity")
}

func TestLoadFromHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(sampleDataset))
	}))
	defer ts.Close()

	loader := testLoader(t, domain.DatasetConfig{Source: ts.URL, RateLimit: 100})

	records, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoadRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleDataset))
	}))
	defer ts.Close()

	loader := testLoader(t, domain.DatasetConfig{Source: ts.URL, FetchRetries: 2, RateLimit: 100})

	records, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoadGivesUpAfterRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	loader := testLoader(t, domain.DatasetConfig{Source: ts.URL, FetchRetries: 1, RateLimit: 100})

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestLoadErrors(t *testing.T) {
	t.Run("unset source", func(t *testing.T) {
		loader := testLoader(t, domain.DatasetConfig{})
		_, err := loader.Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		loader := testLoader(t, domain.DatasetConfig{Source: "/nonexistent/dataset.json"})
		_, err := loader.Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "loader-test-*")
		require.NoError(t, err)
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "dataset.json")
		require.NoError(t, os.WriteFile(path, []byte("{not an array"), 0644))

		loader := testLoader(t, domain.DatasetConfig{Source: path})
		_, err = loader.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding dataset")
	})
}
