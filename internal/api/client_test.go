package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osreport/internal/inventory"
)

const reportJSON = `{
  "generated_at": "2025-03-01T10:00:00Z",
  "resources": [
    {"id": "s1", "type": "server", "name": "web", "project_name": "alpha", "status": "ACTIVE",
     "created_at": "2025-02-01T00:00:00Z", "properties": {"flavor_name": "m1.small"}}
  ],
  "summary": {"total_servers": 1}
}`

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, NewCredentials(token))
}

func TestClient_GetResources(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, reportJSON)
	})

	report, err := c.GetResources(context.Background(), Query{Types: []string{"server", "volume"}, Projects: []string{"alpha"}})
	require.NoError(t, err)
	require.Len(t, report.Resources, 1)
	assert.Equal(t, inventory.TypeServer, report.Resources[0].Type)
	assert.Equal(t, 1, report.Summary.TotalServers)

	assert.Equal(t, "/api/resources", got.URL.Path)
	assert.Equal(t, "server,volume", got.URL.Query().Get("type"))
	assert.Equal(t, "alpha", got.URL.Query().Get("project"))
	assert.False(t, got.URL.Query().Has("status"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
}

func TestClient_NoTokenSendsNoAuthorization(t *testing.T) {
	var auth string
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"version":"1.2.0"}`)
	})

	v, err := c.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", v.Version)
	assert.Empty(t, auth)
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestClient(t, "wrong", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"Unauthorized"}`)
	})

	_, err := c.GetResources(context.Background(), Query{})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, "Not authorized. Check the API token.", UserMessage("Load", err))
}

func TestClient_StatusError(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"Failed to load cached data","details":"keystone down"}`)
	})

	_, err := c.GetProjects(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Equal(t, "Failed to load cached data (keystone down)", se.Detail)
	assert.Equal(t, "Load failed: HTTP 500: Failed to load cached data (keystone down)", UserMessage("Load", err))
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).GetStatus(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestClient_MalformedBodyIsTransportFailure(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>`)
	})
	_, err := c.GetResources(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_StartRefresh(t *testing.T) {
	var method string
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		fmt.Fprint(w, `{"message":"Refresh started","session_id":"session_42"}`)
	})

	id, err := c.StartRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session_42", id)
	assert.Equal(t, http.MethodPost, method)
}

func TestClient_StartRefreshEmptyID(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	_, err := c.StartRefresh(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_StreamProgressPassesTokenInQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"start\"}\n\n")
	})

	stream, err := c.StreamProgress(context.Background(), "session_1")
	require.NoError(t, err)
	defer stream.Close()

	data, err := stream.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start"}`, string(data))

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "session_1", got.URL.Query().Get("session_id"))
	assert.Equal(t, "tok", got.URL.Query().Get("token"))
	assert.Equal(t, "text/event-stream", got.Header.Get("Accept"))
}

func TestClient_StreamProgressUnknownSession(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"session not found"}`)
	})
	_, err := c.StreamProgress(context.Background(), "nope")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestClient_ExportPDF(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename=openstack_report_2025-03-01_10-00-00.pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})

	data, name, err := c.ExportPDF(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "openstack_report_2025-03-01_10-00-00.pdf", name)
}

func TestClient_ExportPDFDefaultName(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "%PDF")
	})
	c.now = func() time.Time { return time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC) }

	_, name, err := c.ExportPDF(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openstack_report_2025-06-02.pdf", name)
}

func TestCredentials_Set(t *testing.T) {
	creds := NewCredentials("a")
	creds.Set("b")
	assert.Equal(t, "b", creds.Token())

	var none *Credentials
	assert.Empty(t, none.Token())
}
