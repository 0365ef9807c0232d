package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractPatients_DecodesRecords(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/extract/patients", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req ExtractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bed 12: Smith, J. MRN 884. Pneumonia.", req.Document)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":0,"msg":"ok","data":[{"name":"Smith, J.","mrn":"884","bed":"12","diagnosis":"Pneumonia"}]}`))
	}))
	defer srv.Close()

	client := NewExtractClient(srv.URL, "test-key", 5*time.Second, zap.NewNop())
	records, err := client.ExtractPatients(context.Background(), "Bed 12: Smith, J. MRN 884. Pneumonia.", "text/plain")
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "Smith, J.", records[0].Name)
	assert.Equal(t, "884", records[0].MRN)
	assert.Equal(t, "12", records[0].Bed)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestExtractPatients_ServiceLevelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":1001,"msg":"document too large","data":null}`))
	}))
	defer srv.Close()

	client := NewExtractClient(srv.URL, "", 5*time.Second, zap.NewNop())
	_, err := client.ExtractPatients(context.Background(), "doc", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document too large")
}

func TestExtractPatients_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewExtractClient(srv.URL, "", 5*time.Second, zap.NewNop())
	client.httpClient.SetRetryCount(0)

	_, err := client.ExtractPatients(context.Background(), "doc", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
