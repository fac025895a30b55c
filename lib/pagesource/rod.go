package pagesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("courserank/lib/pagesource")

type BrowserOptions struct {
	Headless bool `json:"headless"`
	// path to a chrome binary, rod downloads one when empty
	Bin string `json:"bin"`
	// aborts document requests to hosts other than the navigated page's,
	// which keeps third party ad iframes from loading
	BlockIframes bool `json:"block_iframes"`
	// interval between WaitUntil predicate evaluations
	PollInterval time.Duration `json:"-"`
}

// RodPage is a PageSource backed by a single headless chrome tab.
type RodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	opts     BrowserOptions

	// read by the hijack goroutine
	host atomic.Pointer[string]
}

func LaunchRod(ctx context.Context, opts BrowserOptions) (*RodPage, error) {
	ctx, span := tracer.Start(ctx, "LaunchRod")
	defer span.End()

	if opts.PollInterval == 0 {
		opts.PollInterval = 100 * time.Millisecond
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Set("disable-extensions").
		Set("disable-popup-blocking").
		Set("disable-gpu")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to launch browser")
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	err = browser.Connect()
	if err != nil {
		l.Kill()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect to browser")
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	p := &RodPage{
		launcher: l,
		browser:  browser,
		page:     page,
		opts:     opts,
	}
	if opts.BlockIframes {
		err = p.blockForeignDocuments()
		if err != nil {
			p.Close()
			return nil, err
		}
	}

	slog.DebugContext(ctx, "browser launched", "headless", opts.Headless, "control_url", controlURL)
	return p, nil
}

func (p *RodPage) blockForeignDocuments() error {
	router := p.page.HijackRequests()
	err := router.Add("*", proto.NetworkResourceTypeDocument, func(h *rod.Hijack) {
		if p.foreignDocument(h.Request.URL().Host) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return fmt.Errorf("hijack documents: %w", err)
	}
	go router.Run()
	p.router = router
	return nil
}

// foreignDocument reports whether a document from host should be blocked,
// nothing is blocked before the first navigation.
func (p *RodPage) foreignDocument(host string) bool {
	current := p.host.Load()
	return current != nil && *current != "" && host != *current
}

// Navigate returns once the DOM content is loaded, it does not wait for
// subresources.
func (p *RodPage) Navigate(ctx context.Context, target string) error {
	ctx, span := tracer.Start(ctx, "Navigate", trace.WithAttributes(attribute.String("url", target)))
	defer span.End()

	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	p.host.Store(&parsed.Host)

	page := p.page.Context(ctx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	err = page.Navigate(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	wait()
	return nil
}

func (p *RodPage) FindAll(ctx context.Context, selector string) ([]Element, error) {
	page := p.page.Context(ctx)

	var found rod.Elements
	var err error
	if IsXPath(selector) {
		found, err = page.ElementsX(selector)
	} else {
		found, err = page.Elements(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}

	out := make([]Element, len(found))
	for i, el := range found {
		out[i] = rodElement{el: el}
	}
	return out, nil
}

func (p *RodPage) Click(ctx context.Context, selector string) error {
	ctx, span := tracer.Start(ctx, "Click", trace.WithAttributes(attribute.String("selector", selector)))
	defer span.End()

	page := p.page.Context(ctx)

	var has bool
	var el *rod.Element
	var err error
	if IsXPath(selector) {
		has, el, err = page.HasX(selector)
	} else {
		has, el, err = page.Has(selector)
	}
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if !has {
		return ErrNotFound
	}

	err = el.ScrollIntoView()
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	err = el.Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		return nil
	}

	// overlays (cookie banners, sticky ads) intercept pointer events
	var covered *rod.CoveredError
	var noPointer *rod.NoPointerEventsError
	if !errors.As(err, &covered) && !errors.As(err, &noPointer) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click failed")
		return fmt.Errorf("click %s: %w", selector, err)
	}
	slog.DebugContext(ctx, "pointer click intercepted, dispatching click event", "selector", selector)
	_, err = el.Eval(`() => this.click()`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "click failed")
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) WaitUntil(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error) {
	return Poll(ctx, pred, timeout, p.opts.PollInterval)
}

func (p *RodPage) Close() error {
	var errs []error
	if p.router != nil {
		errs = append(errs, p.router.Stop())
	}
	if p.browser != nil {
		errs = append(errs, p.browser.Close())
	}
	if p.launcher != nil {
		p.launcher.Kill()
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e rodElement) Attribute(name string) (string, bool, error) {
	value, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e rodElement) HTML() (string, error) {
	return e.el.HTML()
}
