package feargreed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fng/", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"name":"Fear and Greed Index","data":[{"value":"72","value_classification":"Greed","timestamp":"1714521600","time_until_update":"3600"}],"metadata":{"error":null}}`))
	}))
	defer srv.Close()

	idx, err := NewClient(srv.URL, time.Second).Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72.0, idx.Value)
	assert.Equal(t, "Greed", idx.Classification)
	assert.Equal(t, time.Unix(1714521600, 0).UTC(), idx.Timestamp)
}

func TestLatestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty data", `{"data":[],"metadata":{"error":null}}`},
		{"api error", `{"data":[],"metadata":{"error":"rate limited"}}`},
		{"out of range", `{"data":[{"value":"140","value_classification":"?","timestamp":"0"}],"metadata":{"error":null}}`},
		{"not a number", `{"data":[{"value":"n/a","value_classification":"?","timestamp":"0"}],"metadata":{"error":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Latest(context.Background())
			assert.Error(t, err)
		})
	}
}
