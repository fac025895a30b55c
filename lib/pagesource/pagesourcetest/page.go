// Package pagesourcetest provides a scripted in-memory PageSource.
package pagesourcetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"courserank-backend/lib/pagesource"
)

type Element struct {
	Content string
	Attrs   map[string]string
	Outer   string
}

func (e Element) Text() (string, error) {
	return e.Content, nil
}

func (e Element) Attribute(name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e Element) HTML() (string, error) {
	return e.Outer, nil
}

// Script describes one url: Batches[0] is rendered on navigation and each
// successful click on Button renders the next batch.
type Script struct {
	Selector string
	Button   string
	Batches  [][]Element
	// 1-based click number that fails with ClickErr, 0 never fails
	FailClick int
	ClickErr  error
	// if set, clicking succeeds but nothing new renders after the
	// last batch, so the caller has to time out instead of seeing the
	// control disappear
	KeepButton  bool
	NavigateErr error
}

// Page is safe for concurrent use, though the crawlers only drive it from
// a single goroutine.
type Page struct {
	Scripts map[string]*Script

	mu       sync.Mutex
	current  *Script
	rendered []pagesource.Element
	batch    int
	clicks   int
	visited  []string
	closed   bool
}

var _ pagesource.PageSource = (*Page)(nil)

func New(scripts map[string]*Script) *Page {
	return &Page{Scripts: scripts}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.visited = append(p.visited, url)
	script, ok := p.Scripts[url]
	if !ok {
		return fmt.Errorf("navigate %s: no script", url)
	}
	if script.NavigateErr != nil {
		return script.NavigateErr
	}
	p.current = script
	p.rendered = nil
	p.batch = 0
	p.clicks = 0
	if len(script.Batches) > 0 {
		p.render(script.Batches[0])
	}
	return nil
}

func (p *Page) render(batch []Element) {
	for _, e := range batch {
		p.rendered = append(p.rendered, e)
	}
}

func (p *Page) FindAll(ctx context.Context, selector string) ([]pagesource.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, errors.New("find: no page loaded")
	}
	if selector != p.current.Selector {
		return nil, nil
	}
	out := make([]pagesource.Element, len(p.rendered))
	copy(out, p.rendered)
	return out, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || selector != p.current.Button {
		return pagesource.ErrNotFound
	}
	hasMore := p.batch+1 < len(p.current.Batches)
	if !hasMore && !p.current.KeepButton {
		return pagesource.ErrNotFound
	}

	p.clicks++
	if p.current.FailClick != 0 && p.clicks == p.current.FailClick {
		err := p.current.ClickErr
		if err == nil {
			err = errors.New("click intercepted")
		}
		return err
	}
	if hasMore {
		p.batch++
		p.render(p.current.Batches[p.batch])
	}
	return nil
}

// WaitUntil evaluates pred once, a scripted page never changes on its own.
func (p *Page) WaitUntil(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := pred(ctx)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Page) Clicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks
}

func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.visited))
	copy(out, p.visited)
	return out
}
