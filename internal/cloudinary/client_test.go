package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSignsAndStreams(t *testing.T) {
	var got struct {
		path, folder, apiKey, ts, signature, file, filename string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		got.path = r.URL.Path
		got.folder = r.FormValue("folder")
		got.apiKey = r.FormValue("api_key")
		got.ts = r.FormValue("timestamp")
		got.signature = r.FormValue("signature")
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		got.file, got.filename = string(b), hdr.Filename
		w.Write([]byte(`{"public_id":"school/abc","secure_url":"https://res.example/abc.png","format":"png","bytes":3}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "school")
	c.BaseURL = srv.URL
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.Upload(context.Background(), strings.NewReader("png"), "logo.png")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/abc.png", res.SecureURL)
	assert.Equal(t, "/demo/image/upload", got.path)
	assert.Equal(t, "school", got.folder)
	assert.Equal(t, "key", got.apiKey)
	assert.Equal(t, "1700000000", got.ts)
	assert.Equal(t, "png", got.file)
	assert.Equal(t, "logo.png", got.filename)

	sum := sha1.Sum([]byte("folder=school&timestamp=1700000000secret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got.signature)
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "wrong", "")
	c.BaseURL = srv.URL
	_, err := c.Upload(context.Background(), strings.NewReader("png"), "a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
