package wallpanel

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

func TestFetchState(t *testing.T) {
	srv, _ := stateServer(t, http.StatusOK, `{"screenOn": true, "currentUrl": "http://x", "brightness": 128}`)
	c := NewClient(configFor(t, srv, "x").BaseURL(), testLogger())

	payload, err := c.FetchState(context.Background())
	require.NoError(t, err)
	assert.False(t, payload.IsError())
	assert.Equal(t, true, payload["screenOn"])
	assert.Equal(t, "http://x", payload["currentUrl"])
	assert.Equal(t, json.Number("128"), payload["brightness"])
}

func TestFetchStateNon200(t *testing.T) {
	srv, _ := stateServer(t, http.StatusInternalServerError, "boom")
	c := NewClient(configFor(t, srv, "x").BaseURL(), testLogger())

	payload, err := c.FetchState(context.Background())
	require.NoError(t, err)
	assert.True(t, payload.IsError())
	assert.Equal(t, "Error", payload["status"])
	assert.Equal(t, "Received HTTP 500 from server", payload.StatusText())
}

func TestFetchStateUnreachable(t *testing.T) {
	c := NewClient(unreachableConfig(t).BaseURL(), testLogger())

	_, err := c.FetchState(context.Background())
	assert.Error(t, err)
}

func TestFetchStateMalformedBody(t *testing.T) {
	srv, _ := stateServer(t, http.StatusOK, `{"screenOn": tru`)
	c := NewClient(configFor(t, srv, "x").BaseURL(), testLogger())

	_, err := c.FetchState(context.Background())
	assert.Error(t, err)
}

func TestSendCommand(t *testing.T) {
	type request struct {
		path, method, contentType, body string
	}
	requests := make(chan request, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		requests <- request{r.URL.Path, r.Method, r.Header.Get("Content-Type"), string(b)}
		io.WriteString(w, `{"result": "OK"}`)
	}))
	defer srv.Close()

	c := NewClient(configFor(t, srv, "x").BaseURL(), testLogger())
	payload, err := c.SendCommand(context.Background(), BrightnessCommand(200))
	require.NoError(t, err)
	assert.Equal(t, "OK", payload["result"])

	got := <-requests
	assert.Equal(t, "/api/command", got.path)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.JSONEq(t, `{"brightness": "200"}`, got.body)
}

func TestSendCommandEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(configFor(t, srv, "x").BaseURL(), testLogger())
	payload, err := c.SendCommand(context.Background(), RelaunchCommand())
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestSendCommandNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(configFor(t, srv, "x").BaseURL(), testLogger())
	payload, err := c.SendCommand(context.Background(), SpeakCommand("hi"))
	require.NoError(t, err)
	assert.True(t, payload.IsError())
	assert.Equal(t, "Received HTTP 404 from server", payload.StatusText())
}
