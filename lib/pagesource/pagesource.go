// Package pagesource is the narrow browser capability the crawlers are
// written against. Selectors beginning with "/" or "(" are XPath
// expressions, anything else is a CSS selector.
package pagesource

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Click when nothing matches the selector.
var ErrNotFound = errors.New("element not found")

type Element interface {
	Text() (string, error)
	// Attribute reports false when the attribute is not present.
	Attribute(name string) (string, bool, error)
	// HTML returns the element's outer html.
	HTML() (string, error)
}

type PageSource interface {
	Navigate(ctx context.Context, url string) error
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, selector string) error
	// WaitUntil reports false (and no error) when timeout elapses before
	// pred holds.
	WaitUntil(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error)
	Close() error
}

func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}

// Poll evaluates pred every interval until it holds, timeout elapses or
// ctx is done. Errors from pred are treated as "not yet", only the
// cancellation of ctx itself is surfaced.
func Poll(ctx context.Context, pred func(context.Context) (bool, error), timeout, interval time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := pred(waitCtx)
		if err == nil && ok {
			return true, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		case <-ticker.C:
		}
	}
}

// CountAtLeast is a WaitUntil predicate that holds once selector matches
// at least n elements.
func CountAtLeast(src PageSource, selector string, n int) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		elements, err := src.FindAll(ctx, selector)
		if err != nil {
			return false, err
		}
		return len(elements) >= n, nil
	}
}
