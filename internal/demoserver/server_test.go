package demoserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osreport/internal/api"
	"osreport/internal/inventory"
	"osreport/internal/progress"
	"osreport/internal/session"
)

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := New(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func TestGenerate_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a, b := Generate(3, now), Generate(3, now)

	require.Len(t, a.Projects, 3)
	assert.Equal(t, a.Resources, b.Resources)
	assert.Equal(t, inventory.Summarize(a.Resources), a.Summary)
	assert.Equal(t, 3, a.Summary.TotalProjects)
	for _, r := range a.Resources {
		assert.True(t, r.Type.Valid(), r.Type)
		assert.NotEmpty(t, r.ID)
	}
}

func TestAuth_TokenSources(t *testing.T) {
	_, ts := startServer(t, Options{Token: "secret"})

	cases := []struct {
		name   string
		mutate func(*http.Request)
		want   int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, http.StatusOK},
		{"bare authorization", func(r *http.Request) { r.Header.Set("Authorization", "secret") }, http.StatusOK},
		{"x-api-token", func(r *http.Request) { r.Header.Set("X-API-Token", "secret") }, http.StatusOK},
		{"query", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", "secret")
			r.URL.RawQuery = q.Encode()
		}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/projects", nil)
			require.NoError(t, err)
			tc.mutate(req)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	_, ts := startServer(t, Options{Token: "secret", Version: api.Version{Version: "1.2.3"}})
	client := api.New(ts.URL, api.NewCredentials(""))

	st, err := client.GetStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, st.ReportExists)
	assert.Equal(t, "less than a minute", st.ReportAgeHuman)

	v, err := client.GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.Version)
	assert.NotEmpty(t, v.GoVersion)

	_, err = client.GetResources(context.Background(), api.Query{})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestResources_Filters(t *testing.T) {
	_, ts := startServer(t, Options{Projects: 3})
	client := api.New(ts.URL, api.NewCredentials(""))
	ctx := context.Background()

	all, err := client.GetResources(ctx, api.Query{})
	require.NoError(t, err)

	report, err := client.GetResources(ctx, api.Query{Projects: []string{"infra"}, Types: []string{"server", "volume"}})
	require.NoError(t, err)
	require.NotEmpty(t, report.Resources)
	assert.Less(t, len(report.Resources), len(all.Resources))
	for _, r := range report.Resources {
		assert.Equal(t, "infra", r.ProjectName)
		assert.Contains(t, []inventory.Type{inventory.TypeServer, inventory.TypeVolume}, r.Type)
	}
	assert.Equal(t, inventory.Summarize(report.Resources), report.Summary)
	assert.Len(t, report.Projects, 3)

	none, err := client.GetResources(ctx, api.Query{Statuses: []string{"no-such-status"}})
	require.NoError(t, err)
	assert.Empty(t, none.Resources)
}

func TestResources_TypedPropertiesRoundTrip(t *testing.T) {
	_, ts := startServer(t, Options{Projects: 2})
	client := api.New(ts.URL, api.NewCredentials(""))

	report, err := client.GetResources(context.Background(), api.Query{Types: []string{"server"}})
	require.NoError(t, err)
	require.NotEmpty(t, report.Resources)
	props, ok := report.Resources[0].Properties.(inventory.ServerProps)
	require.True(t, ok, "got %T", report.Resources[0].Properties)
	assert.NotEmpty(t, props.FlavorName)
	assert.Contains(t, props.Networks, "public")
}

func TestProjects(t *testing.T) {
	_, ts := startServer(t, Options{Projects: 2})
	list, err := api.New(ts.URL, api.NewCredentials("")).GetProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "infra", list.Projects[0].Name)
}

func TestExportPDF(t *testing.T) {
	_, ts := startServer(t, Options{Projects: 1})
	data, name, err := api.New(ts.URL, api.NewCredentials("")).ExportPDF(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
	assert.True(t, strings.HasPrefix(name, "openstack_report_"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
}

func TestProgress_UnknownSession(t *testing.T) {
	_, ts := startServer(t, Options{})
	_, err := api.New(ts.URL, api.NewCredentials("")).StreamProgress(context.Background(), "session_missing")
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "session not found", se.Detail)
}

func readEvents(t *testing.T, stream *api.EventStream) []progress.Event {
	t.Helper()
	var events []progress.Event
	for {
		data, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		ev, err := progress.DecodeEvent(data)
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestRefresh_EventSequence(t *testing.T) {
	_, ts := startServer(t, Options{Projects: 2, Token: "secret"})
	client := api.New(ts.URL, api.NewCredentials("secret"))
	ctx := context.Background()

	id, err := client.StartRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "session_"))

	stream, err := client.StreamProgress(ctx, id)
	require.NoError(t, err)
	defer stream.Close()
	events := readEvents(t, stream)

	require.NotEmpty(t, events)
	assert.Equal(t, progress.EventStart, events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, progress.EventComplete, last.Type)
	assert.NotEmpty(t, last.Summary)

	var projectStarts, resourceCompletes int
	for _, ev := range events {
		switch ev.Type {
		case progress.EventProjectStart:
			projectStarts++
			assert.Equal(t, projectStarts, ev.CurrentStep)
			assert.Equal(t, 2, ev.TotalSteps)
		case progress.EventResourceComplete:
			resourceCompletes++
			assert.NotEmpty(t, progress.ResourceTypeLabel(ev.ResourceType))
		}
	}
	assert.Equal(t, 2, projectStarts)
	assert.Equal(t, 2*len(streamKeys), resourceCompletes)

	// A session is streamed once.
	_, err = client.StreamProgress(ctx, id)
	assert.Error(t, err)
}

func TestRefresh_ResourceFailure(t *testing.T) {
	_, ts := startServer(t, Options{
		Projects: 1,
		Fail: func(_, resourceType string) error {
			if resourceType == "volumes" {
				return errors.New("quota exceeded")
			}
			return nil
		},
	})
	client := api.New(ts.URL, api.NewCredentials(""))
	id, err := client.StartRefresh(context.Background())
	require.NoError(t, err)
	stream, err := client.StreamProgress(context.Background(), id)
	require.NoError(t, err)
	defer stream.Close()

	m := progress.NewModel(id)
	for _, ev := range readEvents(t, stream) {
		m, _ = progress.Apply(m, ev)
	}
	assert.True(t, m.Terminal)
	assert.False(t, m.Failed)
	p := m.Projects["infra"]
	require.NotNil(t, p)
	assert.Equal(t, progress.StatusError, p.Resources["volumes"].Status)
	assert.Equal(t, "quota exceeded", p.Resources["volumes"].Message)
	assert.Equal(t, progress.StatusSuccess, p.Resources["servers"].Status)
}

func TestRefresh_SessionControllerRoundTrip(t *testing.T) {
	_, ts := startServer(t, Options{Projects: 3, Token: "secret"})
	client := api.New(ts.URL, api.NewCredentials("secret"))

	var (
		mu       sync.Mutex
		updates  int
		final    progress.Model
		doneErr  error
		reloaded = make(chan struct{})
	)
	ctrl := session.New(session.Options{
		Transport:   session.APITransport{Client: client},
		ReloadDelay: 10 * time.Millisecond,
		OnUpdate: func(progress.Model) {
			mu.Lock()
			updates++
			mu.Unlock()
		},
		OnDone: func(m progress.Model, err error) {
			mu.Lock()
			final, doneErr = m, err
			mu.Unlock()
		},
		OnReload: func() { close(reloaded) },
	})

	require.NoError(t, ctrl.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Wait(ctx))

	select {
	case <-reloaded:
	case <-ctx.Done():
		t.Fatal("reload never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NoError(t, doneErr)
	assert.True(t, final.Terminal)
	assert.False(t, final.Failed)
	assert.Equal(t, 100, final.Percent)
	assert.Equal(t, "Refresh complete", final.Message)
	assert.Len(t, final.ProjectOrder, 3)
	for _, name := range final.ProjectOrder {
		assert.Equal(t, progress.StatusSuccess, final.Projects[name].Status)
	}
	assert.Greater(t, updates, 3)
}

func TestHumanAge(t *testing.T) {
	assert.Equal(t, "less than a minute", humanAge(30*time.Second))
	assert.Equal(t, "1 minute", humanAge(time.Minute))
	assert.Equal(t, "5 hours", humanAge(5*time.Hour))
	assert.Equal(t, "2 days", humanAge(49*time.Hour))
}
