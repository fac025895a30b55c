// Package target is the relational store the api reads from. Migrations
// rebuild the rating tables, the catalog refresh owns the catalog tables.
package target

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"courserank-backend/services/catalog"
	"courserank-backend/services/linker"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("courserank/services/target")

// RatingTables are the tables rebuilt by every migration, in the order
// they are filled. The catalog tables are not among them and survive a
// migration, only their course_ucores links are rebuilt.
var RatingTables = []string{
	"departments",
	"courses",
	"course_departments",
	"professors",
	"ratings",
	"professor_course_ratings",
	"professor_cumulative_ratings",
}

// CatalogTables are owned by the catalog refresh.
var CatalogTables = []string{
	"ucores",
	"catalog_courses",
	"course_ucores",
}

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to target: %w", err)
	}
	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping target: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// EnsureSchema creates any missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("create target schema: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing only when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		// no-op after commit
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	err = fn(tx)
	if err != nil {
		return err
	}
	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReplaceCatalog swaps the catalog tables for the given snapshot and
// relinks it against the migrated courses.
func (s *Store) ReplaceCatalog(ctx context.Context, courses []catalog.CatalogCourse, linkThreshold float64) (int, error) {
	ctx, span := tracer.Start(ctx, "ReplaceCatalog")
	defer span.End()

	var links int
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "delete from course_ucores")
		if err != nil {
			return fmt.Errorf("clear course_ucores: %w", err)
		}
		_, err = tx.Exec(ctx, "delete from catalog_courses")
		if err != nil {
			return fmt.Errorf("clear catalog_courses: %w", err)
		}
		_, err = tx.Exec(ctx, "delete from ucores")
		if err != nil {
			return fmt.Errorf("clear ucores: %w", err)
		}

		ucoreIds := make(map[string]int32)
		for _, c := range courses {
			if _, ok := ucoreIds[c.Designation]; ok {
				continue
			}
			var id int32
			err = tx.QueryRow(
				ctx,
				"insert into ucores(name) values ($1) returning id",
				c.Designation,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("insert ucore %s: %w", c.Designation, err)
			}
			ucoreIds[c.Designation] = id
		}

		type key struct {
			code  string
			ucore int32
		}
		seen := make(map[key]struct{})
		rows := make([][]any, 0, len(courses))
		for _, c := range courses {
			k := key{code: c.CourseID, ucore: ucoreIds[c.Designation]}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			rows = append(rows, []any{c.CourseID, k.ucore, c.DisplayName, c.Credits})
		}
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"catalog_courses"},
			[]string{"course_code", "ucore_id", "name", "credits"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy catalog_courses: %w", err)
		}

		links, err = LinkCatalog(ctx, tx, linkThreshold)
		return err
	})
	if err != nil {
		return 0, fail(span, err)
	}

	span.SetAttributes(
		attribute.Int("courses", len(courses)),
		attribute.Int("links", links),
	)
	return links, nil
}

// LinkCatalog rebuilds course_ucores by linking every migrated course name
// to a catalog course code, returning the number of linked courses.
func LinkCatalog(ctx context.Context, tx pgx.Tx, threshold float64) (int, error) {
	ctx, span := tracer.Start(ctx, "LinkCatalog")
	defer span.End()

	_, err := tx.Exec(ctx, "delete from course_ucores")
	if err != nil {
		return 0, fail(span, fmt.Errorf("clear course_ucores: %w", err))
	}

	courseNames, err := queryStrings(ctx, tx, "select name from courses order by id")
	if err != nil {
		return 0, fail(span, fmt.Errorf("read courses: %w", err))
	}
	catalogCodes, err := queryStrings(ctx, tx, "select distinct course_code from catalog_courses order by course_code")
	if err != nil {
		return 0, fail(span, fmt.Errorf("read catalog codes: %w", err))
	}
	if len(courseNames) == 0 || len(catalogCodes) == 0 {
		return 0, nil
	}

	links := linker.LinkCourses(courseNames, catalogCodes, threshold)

	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(
			`insert into course_ucores(course_id, ucore_id)
			select c.id, cc.ucore_id
			from courses c, catalog_courses cc
			where c.name = $1 and cc.course_code = $2
			on conflict do nothing`,
			l.Left, l.Right,
		)
	}
	err = tx.SendBatch(ctx, batch).Close()
	if err != nil {
		return 0, fail(span, fmt.Errorf("insert course_ucores: %w", err))
	}

	slog.DebugContext(ctx, "linked catalog", "courses", len(courseNames), "catalog_codes", len(catalogCodes), "links", len(links))
	span.SetAttributes(attribute.Int("links", len(links)))
	return len(links), nil
}

func queryStrings(ctx context.Context, tx pgx.Tx, query string) ([]string, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type TableCount struct {
	Table string
	Rows  int64
}

// Counts returns the row count of every target table.
func (s *Store) Counts(ctx context.Context) ([]TableCount, error) {
	var out []TableCount
	tables := append(append([]string{}, RatingTables...), CatalogTables...)
	for _, table := range tables {
		var n int64
		err := s.pool.QueryRow(ctx, "select count(*) from "+pgx.Identifier{table}.Sanitize()).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out = append(out, TableCount{Table: table, Rows: n})
	}
	return out, nil
}
