package tinypng

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "tp-key", pass)

		switch r.URL.Path {
		case "/shrink":
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "original-bytes", string(body))
			w.Header().Set("Location", server.URL+"/output/abc")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"input":{"size":14,"type":"image/png"},"output":{"size":5,"type":"image/png","ratio":0.35,"url":"` + server.URL + `/output/abc"}}`))
		case "/output/abc":
			_, _ = w.Write([]byte("small"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "tp-key")
	out, err := client.Compress(context.Background(), []byte("original-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "small", string(out))
}

func TestCompress_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"Credentials are invalid"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad")
	_, err := client.Compress(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Credentials are invalid")
}

func TestCompress_NotConfigured(t *testing.T) {
	client := NewClient("https://api.tinify.com", "")
	_, err := client.Compress(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
