// Package dashboard owns the dashboard state: the loaded inventory, the view
// configuration, the banner and at most one live refresh session. The UI and
// the CLI issue commands here and render what Rows and Progress return.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"osreport/internal/api"
	"osreport/internal/inventory"
	"osreport/internal/progress"
	"osreport/internal/session"
	"osreport/internal/view"
)

// Source loads the inventory and the PDF export.
type Source interface {
	GetResources(ctx context.Context, q api.Query) (*inventory.Report, error)
	ExportPDF(ctx context.Context) ([]byte, string, error)
}

// Options configures a Controller. Source is required; Transport is needed
// only for Refresh.
type Options struct {
	Source    Source
	Transport session.Transport
	Logger    *slog.Logger
	Query     api.Query
	Observer  session.Observer
	// ReloadDelay overrides progress.ReloadDelay when > 0.
	ReloadDelay time.Duration
}

// Controller is safe for concurrent use: commands arrive from the UI while
// session callbacks arrive from the session's reader goroutine.
type Controller struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	collection *inventory.Collection
	cfg        view.Config
	banner     string
	loading    bool
	sess       *session.Controller
	progress   *progress.Model
	generation int
	listeners  []func()
}

// New returns a controller with an empty collection and the default view.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		opts:       opts,
		logger:     logger,
		collection: inventory.NewCollection(nil),
		cfg:        view.DefaultConfig(),
	}
}

// OnChange registers fn to run after every state change. fn runs outside the
// controller's lock and may be called from any goroutine.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Load fetches the inventory and replaces the collection wholesale. On
// failure the prior collection is kept and the banner is set.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	report, err := c.opts.Source.GetResources(ctx, c.opts.Query)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.banner = api.UserMessage("Loading resources", err)
		c.mu.Unlock()
		c.logger.Warn("load resources failed", "error", err)
		c.notify()
		return fmt.Errorf("load resources: %w", err)
	}
	c.collection = inventory.NewCollection(report)
	c.banner = ""
	total := view.Derive(c.collection.Resources(), c.cfg).Total
	if !view.ValidPage(c.cfg.Page, total) {
		c.cfg.Page = 1
	}
	c.mu.Unlock()

	c.logger.Info("resources loaded", "count", len(report.Resources), "generated_at", report.GeneratedAt)
	c.notify()
	return nil
}

// Loading reports whether a load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Collection returns the loaded collection.
func (c *Controller) Collection() *inventory.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection
}

// Resource looks a resource up by id.
func (c *Controller) Resource(id string) (inventory.Resource, error) {
	coll := c.Collection()
	if !coll.Loaded() {
		return inventory.Resource{}, ErrNoData
	}
	r, ok := coll.Find(id)
	if !ok {
		return inventory.Resource{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Config returns the current view configuration.
func (c *Controller) Config() view.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Rows derives the current page.
func (c *Controller) Rows() view.Result {
	c.mu.Lock()
	resources, cfg := c.collection.Resources(), c.cfg
	c.mu.Unlock()
	return view.Derive(resources, cfg)
}

// ChangeFilter filters by type; an empty type shows everything.
func (c *Controller) ChangeFilter(t inventory.Type) {
	c.update(func(cfg view.Config) view.Config { return cfg.WithFilter(t) })
}

// ChangeSort sets the sort field and direction.
func (c *Controller) ChangeSort(field string, desc bool) {
	c.update(func(cfg view.Config) view.Config { return cfg.WithSort(field, desc) })
}

// ChangeGroup sets the grouping mode.
func (c *Controller) ChangeGroup(g view.GroupBy) {
	c.update(func(cfg view.Config) view.Config { return cfg.WithGroup(g) })
}

func (c *Controller) update(fn func(view.Config) view.Config) {
	c.mu.Lock()
	c.cfg = fn(c.cfg)
	c.mu.Unlock()
	c.notify()
}

// ChangePage moves to page n. Out-of-range pages are rejected and leave the
// state unchanged.
func (c *Controller) ChangePage(n int) bool {
	c.mu.Lock()
	total := view.Derive(c.collection.Resources(), c.cfg).Total
	if !view.ValidPage(n, total) {
		c.mu.Unlock()
		return false
	}
	c.cfg.Page = n
	c.mu.Unlock()
	c.notify()
	return true
}

// Refresh starts a new refresh session, tearing down any prior one first.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.opts.Transport == nil {
		c.mu.Lock()
		c.banner = api.UserMessage("Refresh", ErrNoTransport)
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("refresh: %w", ErrNoTransport)
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	prior := c.sess
	initial := progress.NewModel("")
	c.progress = &initial
	sess := session.New(session.Options{
		Transport:   c.opts.Transport,
		Logger:      c.logger,
		Observer:    c.opts.Observer,
		ReloadDelay: c.opts.ReloadDelay,
		OnUpdate:    func(m progress.Model) { c.sessionUpdate(gen, m) },
		OnDone:      func(m progress.Model, err error) { c.sessionDone(gen, m, err) },
		OnReload:    c.reload,
	})
	c.sess = sess
	c.mu.Unlock()

	if prior != nil {
		prior.Cancel()
	}
	c.notify()

	if err := sess.Start(ctx); err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.sess = nil
			c.progress = nil
			c.banner = api.UserMessage("Refresh", err)
		}
		c.mu.Unlock()
		c.logger.Warn("refresh failed to start", "error", err)
		c.notify()
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// CancelRefresh discards the live session without reloading.
func (c *Controller) CancelRefresh() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.progress = nil
	c.generation++
	c.mu.Unlock()

	if sess == nil {
		return
	}
	sess.Cancel()
	c.notify()
}

// Session returns the live session controller, or nil.
func (c *Controller) Session() *session.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Progress returns the live session's latest snapshot.
func (c *Controller) Progress() (progress.Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return progress.Model{}, false
	}
	return c.progress.Clone(), true
}

// RefreshActive reports whether a session is live and not yet terminal.
func (c *Controller) RefreshActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.progress != nil && !c.progress.Terminal
}

// ClearProgress forgets a finished session's progress.
func (c *Controller) ClearProgress() {
	c.mu.Lock()
	if c.progress != nil && c.progress.Terminal {
		c.progress = nil
		c.sess = nil
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) sessionUpdate(gen int, m progress.Model) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.progress = &m
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) sessionDone(gen int, m progress.Model, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		c.banner = api.UserMessage("Refresh", err)
	case m.Failed:
		c.banner = m.Message
	}
	c.mu.Unlock()
	c.notify()
}

// reload runs after a completed session regardless of later sessions.
func (c *Controller) reload() {
	_ = c.Load(context.Background())
}

// ExportPDF downloads the PDF report into dir and returns the file path.
func (c *Controller) ExportPDF(ctx context.Context, dir string) (string, error) {
	data, name, err := c.opts.Source.ExportPDF(ctx)
	if err != nil {
		c.setBanner(api.UserMessage("PDF export", err))
		return "", fmt.Errorf("export pdf: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.setBanner(fmt.Sprintf("PDF export failed: %v", err))
		return "", fmt.Errorf("write pdf: %w", err)
	}
	c.logger.Info("pdf exported", "path", path, "bytes", len(data))
	return path, nil
}

// Banner returns the current user-visible error, empty when none.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// DismissBanner clears the banner.
func (c *Controller) DismissBanner() {
	c.setBanner("")
}

func (c *Controller) setBanner(msg string) {
	c.mu.Lock()
	c.banner = msg
	c.mu.Unlock()
	c.notify()
}
