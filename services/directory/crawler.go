// Package directory crawls the rating site's paginated professor listing.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courserank-backend/lib/pagesource"
	"courserank-backend/lib/telemetry"
	"courserank-backend/services/staging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("courserank/services/directory")
var professorsCounter = telemetry.Counter(
	otel.Meter("courserank/services/directory"),
	"directory.professors",
	"professors discovered in the listing",
)

const (
	DefaultCardSelector     = `//a[contains(@href, '/professor/')]`
	DefaultShowMoreSelector = `//button[contains(text(), 'Show More')]`
	DefaultWaitTimeout      = 3 * time.Second
	DefaultInitialWait      = 10 * time.Second
)

// ErrEmptyListing is returned when no professor card renders after
// navigation. The staged generation is left untouched in that case.
var ErrEmptyListing = errors.New("listing rendered no professors")

type Options struct {
	CardSelector     string
	ShowMoreSelector string
	// how long to wait for new cards after "Show More" before the
	// listing is considered exhausted
	WaitTimeout time.Duration
	// how long to wait for the first card after navigation
	InitialWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.CardSelector == "" {
		o.CardSelector = DefaultCardSelector
	}
	if o.ShowMoreSelector == "" {
		o.ShowMoreSelector = DefaultShowMoreSelector
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.InitialWait == 0 {
		o.InitialWait = DefaultInitialWait
	}
	return o
}

// Store persists a crawled directory generation.
type Store interface {
	SaveDirectory(ctx context.Context, departments []staging.Department, professors []staging.Professor) error
}

type Result struct {
	Professors  []staging.Professor
	Departments *DepartmentRegistry
}

type Crawler struct {
	src   pagesource.PageSource
	store Store
	opts  Options
}

func NewCrawler(src pagesource.PageSource, store Store, opts Options) *Crawler {
	return &Crawler{src: src, store: store, opts: opts.withDefaults()}
}

type crawlState struct {
	result  Result
	visited map[int64]struct{}
	// set when there is nothing trustworthy to replace staging with
	skipSave bool
}

// Crawl walks the listing until it stops growing. Whatever has been
// collected is saved when Crawl returns, including on cancellation, in
// which case the returned error is nil.
func (c *Crawler) Crawl(ctx context.Context, listingURL string) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("listing_url", listingURL))

	state := &crawlState{
		result:  Result{Departments: NewDepartmentRegistry()},
		visited: make(map[int64]struct{}),
	}

	defer func() {
		result = state.result
		flushCtx := context.WithoutCancel(ctx)
		slog.InfoContext(
			flushCtx, "directory crawl finished",
			"professors", len(result.Professors),
			"departments", result.Departments.Len(),
		)
		if !state.skipSave {
			saveErr := c.store.SaveDirectory(flushCtx, result.Departments.Departments(), result.Professors)
			if saveErr != nil {
				err = errors.Join(err, saveErr)
			}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	err = c.src.Navigate(ctx, listingURL)
	if err != nil {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "directory crawl interrupted before the listing loaded")
			return result, nil
		}
		return result, fmt.Errorf("load listing: %w", err)
	}

	// Navigate returns at DOMContentLoaded, the cards render later
	ready, err := c.src.WaitUntil(
		ctx,
		pagesource.CountAtLeast(c.src, c.opts.CardSelector, 1),
		c.opts.InitialWait,
	)
	if err != nil {
		slog.WarnContext(ctx, "directory crawl interrupted before the listing rendered")
		return result, nil
	}
	if !ready {
		state.skipSave = true
		return result, fmt.Errorf("load listing %s: %w", listingURL, ErrEmptyListing)
	}

	c.loop(ctx, state)
	return result, nil
}

func (c *Crawler) loop(ctx context.Context, state *crawlState) {
	rendered := 0
	for page := 1; ; page++ {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "directory crawl interrupted, saving collected professors")
			return
		}

		cards, err := c.src.FindAll(ctx, c.opts.CardSelector)
		if err != nil {
			slog.ErrorContext(ctx, "failed to read professor cards", "page", page, "err", err)
			return
		}
		if len(cards) <= rendered {
			return
		}

		added := 0
		for _, card := range cards[rendered:] {
			prof, ok, err := c.visit(state, card)
			if err != nil {
				slog.WarnContext(ctx, "skipping professor card", "err", err)
				continue
			}
			if !ok {
				slog.DebugContext(ctx, "professor already seen", "id", prof.ExternalID)
				continue
			}
			state.result.Professors = append(state.result.Professors, prof)
			added++
		}
		rendered = len(cards)
		professorsCounter.Add(ctx, int64(added))
		slog.InfoContext(
			ctx, "scraped listing page",
			"page", page,
			"new", added,
			"professors", len(state.result.Professors),
			"departments", state.result.Departments.Len(),
		)

		err = c.src.Click(ctx, c.opts.ShowMoreSelector)
		if errors.Is(err, pagesource.ErrNotFound) {
			slog.InfoContext(ctx, "no show more control, listing exhausted")
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				slog.ErrorContext(ctx, "failed to load more professors", "err", err)
			}
			return
		}

		grown, err := c.src.WaitUntil(
			ctx,
			pagesource.CountAtLeast(c.src, c.opts.CardSelector, rendered+1),
			c.opts.WaitTimeout,
		)
		if err != nil {
			// only cancellation surfaces here, handled at the top of the loop
			continue
		}
		if !grown {
			slog.InfoContext(ctx, "no more professors to load")
			return
		}
	}
}

// visit reports false for professors already seen in this crawl.
func (c *Crawler) visit(state *crawlState, card pagesource.Element) (staging.Professor, bool, error) {
	href, ok, err := card.Attribute("href")
	if err != nil {
		return staging.Professor{}, false, fmt.Errorf("read href: %w", err)
	}
	if !ok {
		return staging.Professor{}, false, fmt.Errorf("card has no href")
	}
	id, err := ExternalID(href)
	if err != nil {
		return staging.Professor{}, false, err
	}
	if _, seen := state.visited[id]; seen {
		return staging.Professor{ExternalID: id}, false, nil
	}

	fragment, err := card.HTML()
	if err != nil {
		return staging.Professor{}, false, fmt.Errorf("read card %d: %w", id, err)
	}
	parsed, err := ParseCard(fragment)
	if err != nil {
		return staging.Professor{}, false, err
	}

	state.visited[id] = struct{}{}
	return staging.Professor{
		ExternalID:   id,
		Name:         parsed.Name,
		DepartmentID: state.result.Departments.Resolve(parsed.Department),
	}, true, nil
}
