// Package comments extracts course ratings from each professor's ratings
// list.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"courserank-backend/lib/pagesource"
	"courserank-backend/lib/telemetry"
	"courserank-backend/services/staging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("courserank/services/comments")
var meter = otel.Meter("courserank/services/comments")
var entriesCounter = telemetry.Counter(meter, "comments.entries", "rating entries parsed")
var rejectedCounter = telemetry.Counter(meter, "comments.rejected", "rating entries discarded")

const (
	DefaultRatingSelector   = `#ratingsList > li`
	DefaultLoadMoreSelector = `//button[contains(text(), 'Load More Ratings')]`
	DefaultWaitTimeout      = 2 * time.Second
	DefaultWorkers          = 8
	DefaultMaxLevel         = 600
)

type Options struct {
	// professor page url, "{id}" is replaced by the professor's id
	ProfessorURL     string
	RatingSelector   string
	LoadMoreSelector string
	WaitTimeout      time.Duration
	Workers          int
	MaxLevel         int
}

func (o Options) withDefaults() Options {
	if o.RatingSelector == "" {
		o.RatingSelector = DefaultRatingSelector
	}
	if o.LoadMoreSelector == "" {
		o.LoadMoreSelector = DefaultLoadMoreSelector
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxLevel == 0 {
		o.MaxLevel = DefaultMaxLevel
	}
	return o
}

type Store interface {
	ProfessorIDs(ctx context.Context) ([]int64, error)
	ResetComments(ctx context.Context) error
	SaveComments(ctx context.Context, courses []staging.Course, comments []staging.Comment) error
}

// Extraction is a single extraction run, it owns the course registry so
// course ids stay unique across every professor of the run.
type Extraction struct {
	src     pagesource.PageSource
	store   Store
	opts    Options
	courses *courseRegistry
}

func NewExtraction(src pagesource.PageSource, store Store, opts Options) *Extraction {
	return &Extraction{
		src:     src,
		store:   store,
		opts:    opts.withDefaults(),
		courses: newCourseRegistry(),
	}
}

func (e *Extraction) professorURL(id int64) string {
	return strings.ReplaceAll(e.opts.ProfessorURL, "{id}", strconv.FormatInt(id, 10))
}

type parseResult struct {
	entry RatingEntry
	err   error
}

// parseBatch parses fragments on the worker pool without blocking the
// caller, the returned func waits for the results in input order.
func (e *Extraction) parseBatch(fragments []string) func() []parseResult {
	results := make([]parseResult, len(fragments))
	done := make(chan struct{})

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(e.opts.Workers)
		for i, fragment := range fragments {
			g.Go(func() error {
				results[i].entry, results[i].err = ParseRating(fragment)
				return nil
			})
		}
		g.Wait()
	}()

	return func() []parseResult {
		<-done
		return results
	}
}

// Extract collects the ratings on one professor's page, along with the
// courses first seen there. The returned records are valid even when err
// is not nil: they are everything gathered before the failure.
func (e *Extraction) Extract(ctx context.Context, professorID int64) ([]staging.Comment, []staging.Course, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.Int64("professor_id", professorID))

	var comments []staging.Comment
	var courses []staging.Course

	err := e.src.Navigate(ctx, e.professorURL(professorID))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("professor %d: %w", professorID, err)
	}

	offset := 0
	for click := 0; ; click++ {
		if ctx.Err() != nil {
			return comments, courses, nil
		}

		entries, err := e.src.FindAll(ctx, e.opts.RatingSelector)
		if err != nil {
			err = fmt.Errorf("professor %d: read ratings: %w", professorID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return comments, courses, err
		}
		if len(entries) <= offset {
			return comments, courses, nil
		}

		fragments := make([]string, 0, len(entries)-offset)
		for _, entry := range entries[offset:] {
			fragment, err := entry.HTML()
			if err != nil {
				slog.WarnContext(ctx, "failed to read rating entry", "professor", professorID, "err", err)
				rejectedCounter.Add(ctx, 1)
				continue
			}
			fragments = append(fragments, fragment)
		}
		offset = len(entries)

		// the next page of ratings loads while this one is parsed
		wait := e.parseBatch(fragments)
		clickErr := e.src.Click(ctx, e.opts.LoadMoreSelector)
		grown := false
		var waitErr error
		if clickErr == nil {
			grown, waitErr = e.src.WaitUntil(
				ctx,
				pagesource.CountAtLeast(e.src, e.opts.RatingSelector, offset+1),
				e.opts.WaitTimeout,
			)
		}

		e.merge(ctx, professorID, wait(), &comments, &courses)

		switch {
		case errors.Is(clickErr, pagesource.ErrNotFound):
			return comments, courses, nil
		case clickErr != nil:
			if ctx.Err() != nil {
				return comments, courses, nil
			}
			err = fmt.Errorf("professor %d: load more ratings (click %d): %w", professorID, click+1, clickErr)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return comments, courses, err
		case waitErr != nil:
			// cancelled
			return comments, courses, nil
		case !grown:
			slog.DebugContext(ctx, "no more ratings to load", "professor", professorID)
			return comments, courses, nil
		}
	}
}

// merge runs on the coordinating goroutine only, in the order entries
// were rendered, since course ids are handed out in that order.
func (e *Extraction) merge(ctx context.Context, professorID int64, results []parseResult, comments *[]staging.Comment, courses *[]staging.Course) {
	entriesCounter.Add(ctx, int64(len(results)))

	for _, r := range results {
		if r.err != nil {
			switch {
			case errors.Is(r.err, ErrAdvertisement), errors.Is(r.err, ErrNoCourseLabel):
				slog.DebugContext(ctx, "skipping rating entry", "professor", professorID, "reason", r.err)
			default:
				slog.WarnContext(ctx, "discarding malformed rating", "professor", professorID, "err", r.err)
			}
			rejectedCounter.Add(ctx, 1)
			continue
		}

		courseID, created, err := e.courses.resolve(r.entry.Label, professorID, e.opts.MaxLevel)
		if err != nil {
			slog.WarnContext(ctx, "discarding rating with untrusted course label", "professor", professorID, "err", err)
			rejectedCounter.Add(ctx, 1)
			continue
		}
		if created != nil {
			*courses = append(*courses, *created)
		}
		*comments = append(*comments, staging.Comment{
			Quality:     r.entry.Quality,
			Difficulty:  r.entry.Difficulty,
			Text:        r.entry.Text,
			ProfessorID: professorID,
			CourseID:    courseID,
		})
	}
}

type RunStats struct {
	Professors  int
	Failed      int
	Courses     int
	Comments    int
	Interrupted bool
}

// Run extracts ratings for every professor in staging, replacing the
// staged courses and comments. A professor that fails is logged and
// skipped, whatever was gathered for it is still saved. On cancellation
// the collected records are saved and Run returns without an error.
func (e *Extraction) Run(ctx context.Context) (RunStats, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	var stats RunStats

	ids, err := e.store.ProfessorIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	if len(ids) == 0 {
		slog.WarnContext(ctx, "no professors staged, run the directory crawl first")
		return stats, nil
	}

	err = e.store.ResetComments(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	e.courses = newCourseRegistry()

	slog.InfoContext(ctx, "extracting ratings", "professors", len(ids))
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}

		comments, courses, err := e.Extract(ctx, id)
		if err != nil {
			stats.Failed++
			slog.ErrorContext(ctx, "failed to extract ratings", "professor", id, "err", err)
		}
		if len(comments) == 0 {
			if err == nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "no ratings found", "professor", id)
			}
			continue
		}

		err = e.store.SaveComments(context.WithoutCancel(ctx), courses, comments)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}
		stats.Professors++
		stats.Courses += len(courses)
		stats.Comments += len(comments)

		slog.InfoContext(
			ctx, "scraped ratings",
			"professor", id,
			"comments", len(comments),
			"new_courses", len(courses),
			"progress", fmt.Sprintf("%d/%d", i+1, len(ids)),
		)
	}

	stats.Interrupted = ctx.Err() != nil
	if stats.Interrupted {
		slog.WarnContext(ctx, "rating extraction interrupted, collected ratings were saved")
	}
	slog.InfoContext(
		ctx, "rating extraction finished",
		"professors", stats.Professors,
		"failed", stats.Failed,
		"courses", e.courses.len(),
		"comments", stats.Comments,
	)
	return stats, nil
}
