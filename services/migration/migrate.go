// Package migration moves one staged crawl generation into the target
// store and computes the aggregate rating tables.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"courserank-backend/lib/telemetry"
	"courserank-backend/services/staging"
	"courserank-backend/services/target"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("courserank/services/migration")
var rowsCounter = telemetry.Counter(
	otel.Meter("courserank/services/migration"),
	"migration.rows",
	"rows written to the target store",
)

type Source interface {
	Snapshot(ctx context.Context) (staging.Snapshot, error)
}

type Report struct {
	Departments       int
	Courses           int
	CourseDepartments int
	Professors        int
	Ratings           int
	CourseRatings     int
	CumulativeRatings int
	CatalogLinks      int
}

func (r Report) Total() int {
	return r.Departments + r.Courses + r.CourseDepartments + r.Professors +
		r.Ratings + r.CourseRatings + r.CumulativeRatings + r.CatalogLinks
}

type Migrator struct {
	source Source
	target *target.Store
	policy Policy
}

func NewMigrator(source Source, store *target.Store, policy Policy) Migrator {
	return Migrator{
		source: source,
		target: store,
		policy: policy.WithDefaults(),
	}
}

// Migrate replaces the rating tables of the target with the staged
// generation in one transaction. Nothing is committed if any step fails.
func (m Migrator) Migrate(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "Migrate")
	defer span.End()

	snap, err := m.source.Snapshot(ctx)
	if err != nil {
		err = fmt.Errorf("read staging: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Report{}, err
	}
	slog.InfoContext(
		ctx, "read staging",
		"departments", len(snap.Departments),
		"professors", len(snap.Professors),
		"courses", len(snap.Courses),
		"comments", len(snap.Comments),
	)

	var report Report
	err = m.target.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		report, err = m.write(ctx, tx, snap)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Report{}, err
	}

	rowsCounter.Add(ctx, int64(report.Total()))
	span.SetAttributes(attribute.Int("rows", report.Total()))
	return report, nil
}

func (m Migrator) write(ctx context.Context, tx pgx.Tx, snap staging.Snapshot) (Report, error) {
	var report Report

	tables := make([]string, len(target.RatingTables))
	for i, t := range target.RatingTables {
		tables[i] = pgx.Identifier{t}.Sanitize()
	}
	_, err := tx.Exec(ctx, "truncate "+strings.Join(tables, ", ")+" restart identity cascade")
	if err != nil {
		return report, fmt.Errorf("truncate rating tables: %w", err)
	}

	copyRows := func(table string, columns []string, rows [][]any) (int, error) {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, fmt.Errorf("copy %s: %w", table, err)
		}
		slog.DebugContext(ctx, "copied rows", "table", table, "rows", n)
		return int(n), nil
	}

	rows := make([][]any, len(snap.Departments))
	for i, d := range snap.Departments {
		rows[i] = []any{d.ID, d.Name}
	}
	report.Departments, err = copyRows("departments", []string{"id", "name"}, rows)
	if err != nil {
		return report, err
	}

	rows = make([][]any, len(snap.Courses))
	for i, c := range snap.Courses {
		rows[i] = []any{c.ID, c.NormalizedName, c.Level, m.policy.DefaultCredits}
	}
	report.Courses, err = copyRows("courses", []string{"id", "name", "level", "credits"}, rows)
	if err != nil {
		return report, err
	}

	courseDepartments := InferCourseDepartments(snap)
	rows = make([][]any, len(courseDepartments))
	for i, cd := range courseDepartments {
		rows[i] = []any{cd.CourseID, cd.DepartmentID}
	}
	report.CourseDepartments, err = copyRows("course_departments", []string{"course_id", "department_id"}, rows)
	if err != nil {
		return report, err
	}

	rows = make([][]any, len(snap.Professors))
	for i, p := range snap.Professors {
		rows[i] = []any{p.ExternalID, p.Name, p.DepartmentID}
	}
	report.Professors, err = copyRows("professors", []string{"id", "name", "department_id"}, rows)
	if err != nil {
		return report, err
	}

	rows = make([][]any, len(snap.Comments))
	for i, c := range snap.Comments {
		rows[i] = []any{c.Quality, c.Difficulty, c.Text, c.ProfessorID, c.CourseID}
	}
	report.Ratings, err = copyRows(
		"ratings",
		[]string{"quality", "difficulty", "comment", "professor_id", "course_id"},
		rows,
	)
	if err != nil {
		return report, err
	}

	courseRatings := AggregateCourseRatings(snap.Comments, m.policy)
	batch := &pgx.Batch{}
	for _, r := range courseRatings {
		batch.Queue(
			`insert into professor_course_ratings(professor_id, course_id, rating)
			values ($1, $2, $3) on conflict do nothing`,
			r.ProfessorID, r.CourseID, r.Score,
		)
	}
	cumulative := AggregateCumulativeRatings(courseRatings)
	for _, r := range cumulative {
		batch.Queue(
			`insert into professor_cumulative_ratings(professor_id, rating)
			values ($1, $2) on conflict do nothing`,
			r.ProfessorID, r.Score,
		)
	}
	err = tx.SendBatch(ctx, batch).Close()
	if err != nil {
		return report, fmt.Errorf("insert aggregate ratings: %w", err)
	}
	report.CourseRatings = len(courseRatings)
	report.CumulativeRatings = len(cumulative)

	report.CatalogLinks, err = target.LinkCatalog(ctx, tx, m.policy.LinkThreshold)
	if err != nil {
		return report, fmt.Errorf("link catalog: %w", err)
	}
	return report, nil
}
