package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osreport/internal/api"
	"osreport/internal/inventory"
	"osreport/internal/session"
	"osreport/internal/view"
)

type fakeSource struct {
	mu      sync.Mutex
	report  *inventory.Report
	err     error
	calls   atomic.Int32
	pdf     []byte
	pdfName string
	pdfErr  error
}

func (s *fakeSource) GetResources(context.Context, api.Query) (*inventory.Report, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.err
}

func (s *fakeSource) ExportPDF(context.Context) ([]byte, string, error) {
	return s.pdf, s.pdfName, s.pdfErr
}

func (s *fakeSource) set(report *inventory.Report, err error) {
	s.mu.Lock()
	s.report, s.err = report, err
	s.mu.Unlock()
}

type chanStream struct {
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newChanStream() *chanStream {
	return &chanStream{ch: make(chan []byte, 16), closed: make(chan struct{})}
}

func (s *chanStream) Next() ([]byte, error) {
	select {
	case d, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return d, nil
	case <-s.closed:
		return nil, errors.New("closed")
	}
}

func (s *chanStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *chanStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type queueTransport struct {
	mu      sync.Mutex
	streams []*chanStream
	n       int
}

func (t *queueTransport) StartRefresh(context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("session_%d", t.n), nil
}

func (t *queueTransport) OpenStream(context.Context, string) (session.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := newChanStream()
	t.streams = append(t.streams, s)
	return s, nil
}

func (t *queueTransport) stream(i int) *chanStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[i]
}

func report(n int) *inventory.Report {
	r := &inventory.Report{GeneratedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	for i := range n {
		r.Resources = append(r.Resources, inventory.Resource{
			ID:          fmt.Sprintf("r%03d", i),
			Name:        fmt.Sprintf("res-%03d", i),
			Type:        []inventory.Type{inventory.TypeServer, inventory.TypeVolume}[i%2],
			ProjectName: "alpha",
			Status:      "ACTIVE",
		})
	}
	return r
}

func TestController_LoadAndRows(t *testing.T) {
	src := &fakeSource{report: report(120)}
	c := New(Options{Source: src})
	var changes atomic.Int32
	c.OnChange(func() { changes.Add(1) })

	require.NoError(t, c.Load(context.Background()))

	rows := c.Rows()
	assert.Equal(t, 120, rows.Total)
	assert.Equal(t, 3, rows.TotalPages)
	assert.Len(t, rows.Rows, view.PageSize)
	assert.Empty(t, c.Banner())
	assert.Positive(t, changes.Load())

	r, err := c.Resource("r007")
	require.NoError(t, err)
	assert.Equal(t, "res-007", r.Name)
	_, err = c.Resource("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestController_UnauthorizedKeepsPriorCollection(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("GET /api/resources: %w", api.ErrUnauthorized)}
	c := New(Options{Source: src})

	err := c.Load(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, c.Collection().Loaded())
	assert.Equal(t, "Not authorized. Check the API token.", c.Banner())
	_, err = c.Resource("r001")
	assert.ErrorIs(t, err, ErrNoData)

	src.set(report(3), nil)
	require.NoError(t, c.Load(context.Background()))
	prior := c.Collection()
	assert.Empty(t, c.Banner())

	src.set(nil, fmt.Errorf("GET /api/resources: %w", api.ErrUnauthorized))
	require.Error(t, c.Load(context.Background()))
	assert.Same(t, prior, c.Collection())
	assert.Len(t, c.Rows().Rows, 3)
	assert.Equal(t, "Not authorized. Check the API token.", c.Banner())

	c.DismissBanner()
	assert.Empty(t, c.Banner())
}

func TestController_TransportFailureBanner(t *testing.T) {
	src := &fakeSource{err: &api.StatusError{Code: 502, Detail: "bad gateway"}}
	c := New(Options{Source: src})

	require.Error(t, c.Load(context.Background()))
	assert.Equal(t, "Loading resources failed: HTTP 502: bad gateway", c.Banner())
}

func TestController_ChangePage(t *testing.T) {
	c := New(Options{Source: &fakeSource{report: report(120)}})
	require.NoError(t, c.Load(context.Background()))

	assert.False(t, c.ChangePage(0))
	assert.False(t, c.ChangePage(4))
	assert.Equal(t, 1, c.Config().Page)

	assert.True(t, c.ChangePage(3))
	assert.Len(t, c.Rows().Rows, 20)

	c.ChangeFilter(inventory.TypeVolume)
	assert.Equal(t, 1, c.Config().Page)
	assert.Equal(t, 60, c.Rows().Total)

	assert.True(t, c.ChangePage(2))
	c.ChangeSort(view.SortStatus, true)
	assert.Equal(t, 1, c.Config().Page)

	assert.True(t, c.ChangePage(2))
	c.ChangeGroup(view.GroupProject)
	assert.Equal(t, 1, c.Config().Page)
	assert.Equal(t, 61, c.Rows().Total)
}

func TestController_ReloadResetsInvalidPage(t *testing.T) {
	src := &fakeSource{report: report(120)}
	c := New(Options{Source: src})
	require.NoError(t, c.Load(context.Background()))
	require.True(t, c.ChangePage(3))

	src.set(report(10), nil)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 1, c.Config().Page)
}

func TestController_RefreshCompleteReloads(t *testing.T) {
	src := &fakeSource{report: report(2)}
	tr := &queueTransport{}
	c := New(Options{Source: src, Transport: tr, ReloadDelay: 5 * time.Millisecond})
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.RefreshActive())

	src.set(report(5), nil)
	tr.stream(0).ch <- []byte(`{"type":"start"}`)
	tr.stream(0).ch <- []byte(`{"type":"complete","summary":{"server":3}}`)

	require.Eventually(t, func() bool { return len(c.Rows().Rows) == 5 }, 2*time.Second, time.Millisecond)
	m, ok := c.Progress()
	require.True(t, ok)
	assert.True(t, m.Terminal)
	assert.Equal(t, 100, m.Percent)
	assert.False(t, c.RefreshActive())
	assert.EqualValues(t, 2, src.calls.Load())
	assert.True(t, tr.stream(0).isClosed())

	c.ClearProgress()
	_, ok = c.Progress()
	assert.False(t, ok)
}

func TestController_RefreshTearsDownPriorSession(t *testing.T) {
	tr := &queueTransport{}
	c := New(Options{Source: &fakeSource{report: report(1)}, Transport: tr})

	require.NoError(t, c.Refresh(context.Background()))
	first := c.Session()
	require.NoError(t, c.Refresh(context.Background()))

	assert.True(t, tr.stream(0).isClosed())
	assert.False(t, tr.stream(1).isClosed())
	assert.NotSame(t, first, c.Session())
	assert.Equal(t, "session_2", c.Session().ID())

	// Only the new session publishes now.
	tr.stream(1).ch <- []byte(`{"type":"start"}`)
	require.Eventually(t, func() bool {
		m, _ := c.Progress()
		return m.SessionID == "session_2" && m.Percent == 5
	}, time.Second, time.Millisecond)
	c.CancelRefresh()
}

func TestController_CancelRefresh(t *testing.T) {
	src := &fakeSource{report: report(1)}
	tr := &queueTransport{}
	c := New(Options{Source: src, Transport: tr, ReloadDelay: time.Millisecond})

	require.NoError(t, c.Refresh(context.Background()))
	c.CancelRefresh()

	_, ok := c.Progress()
	assert.False(t, ok)
	assert.Nil(t, c.Session())
	assert.True(t, tr.stream(0).isClosed())

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, src.calls.Load())
}

func TestController_RefreshErrorEventSetsBanner(t *testing.T) {
	tr := &queueTransport{}
	c := New(Options{Source: &fakeSource{}, Transport: tr})
	require.NoError(t, c.Refresh(context.Background()))

	tr.stream(0).ch <- []byte(`{"type":"error","message":"keystone down"}`)
	require.Eventually(t, func() bool { return c.Banner() != "" }, time.Second, time.Millisecond)
	assert.Equal(t, "Error: keystone down", c.Banner())
}

func TestController_ExportPDF(t *testing.T) {
	src := &fakeSource{pdf: []byte("%PDF-1.4"), pdfName: "openstack_report_2025-03-01.pdf"}
	c := New(Options{Source: src})
	dir := t.TempDir()

	path, err := c.ExportPDF(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "openstack_report_2025-03-01.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	src.pdfErr = &api.StatusError{Code: 404, Detail: "No report data available for export"}
	_, err = c.ExportPDF(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, c.Banner(), "PDF export failed: HTTP 404")
}

func TestController_RefreshWithoutTransport(t *testing.T) {
	c := New(Options{Source: &fakeSource{report: report(1)}})

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoTransport)

	_, ok := c.Progress()
	assert.False(t, ok)
	assert.Nil(t, c.Session())
	assert.Equal(t, "Refresh failed: no refresh transport configured", c.Banner())
}
