package ipfs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Upload(t *testing.T) {
	var gotName, gotAuth string
	var gotDoc map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/add", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("pin"))
		gotAuth = r.Header.Get("Authorization")

		file, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		gotName = hdr.Filename
		raw, _ := io.ReadAll(file)
		require.NoError(t, json.Unmarshal(raw, &gotDoc))

		w.Write([]byte(`{"Name":"x","Hash":"bafyTest","Size":"10"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "https://gw.example/ipfs/", "tok")
	cid, err := c.Upload(context.Background(), "reflection.json", map[string]string{"ciphertext": "abc"})
	require.NoError(t, err)

	assert.Equal(t, "bafyTest", cid)
	assert.Equal(t, "reflection.json", gotName)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "abc", gotDoc["ciphertext"])
	assert.Equal(t, "https://gw.example/ipfs/bafyTest", c.URL(cid))
}

func TestClient_UploadErrors(t *testing.T) {
	status := http.StatusInternalServerError
	body := `boom`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.Upload(context.Background(), "a.json", struct{}{})
	assert.ErrorContains(t, err, "status=500")

	status, body = http.StatusOK, `{"Hash":""}`
	_, err = c.Upload(context.Background(), "a.json", struct{}{})
	assert.Error(t, err)

	assert.NoError(t, c.Ping(context.Background()))
}
