// Package staging holds one crawl generation of raw records between the
// crawl stages and the migration.
package staging

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"courserank-backend/services/staging/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("courserank/services/staging")

type Department struct {
	ID   int64
	Name string
}

type Professor struct {
	ExternalID   int64
	Name         string
	DepartmentID int64
}

type Course struct {
	ID             int64
	NormalizedName string
	// name part of the label with the level digits removed
	Subject        string
	Level          int
	DiscoveredFrom int64
}

type Comment struct {
	Quality     float64
	Difficulty  float64
	Text        string
	ProfessorID int64
	CourseID    int64
}

// Snapshot is the full contents of the store, ordered by id.
type Snapshot struct {
	Departments []Department
	Professors  []Professor
	Courses     []Course
	Comments    []Comment
}

type Counts struct {
	Departments int64
	Professors  int64
	Courses     int64
	Comments    int64
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s Store) withTx(ctx context.Context, fn func(qry *db.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = fn(s.qry.WithTx(tx))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// SaveDirectory replaces the whole store with a new generation of
// departments and professors, courses and comments are cleared with it.
func (s Store) SaveDirectory(ctx context.Context, departments []Department, professors []Professor) error {
	ctx, span := tracer.Start(ctx, "SaveDirectory", trace.WithAttributes(
		attribute.Int("departments", len(departments)),
		attribute.Int("professors", len(professors)),
	))
	defer span.End()

	err := s.withTx(ctx, func(qry *db.Queries) error {
		err := truncate(ctx, qry)
		if err != nil {
			return err
		}
		for _, d := range departments {
			err := qry.CreateDepartment(ctx, db.CreateDepartmentParams{
				ID:   d.ID,
				Name: d.Name,
			})
			if err != nil {
				return fmt.Errorf("insert department %q: %w", d.Name, err)
			}
		}
		for _, p := range professors {
			err := qry.CreateProfessor(ctx, db.CreateProfessorParams{
				ExternalID:   p.ExternalID,
				Name:         p.Name,
				DepartmentID: p.DepartmentID,
			})
			if err != nil {
				return fmt.Errorf("insert professor %d: %w", p.ExternalID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fail(span, fmt.Errorf("save directory: %w", err))
	}
	slog.InfoContext(ctx, "staged directory", "departments", len(departments), "professors", len(professors))
	return nil
}

func truncate(ctx context.Context, qry *db.Queries) error {
	for _, del := range []func(context.Context) error{
		qry.DeleteComments,
		qry.DeleteCourses,
		qry.DeleteProfessors,
		qry.DeleteDepartments,
	} {
		err := del(ctx)
		if err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}
	return nil
}

// ResetComments clears courses and comments before an extraction run.
func (s Store) ResetComments(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ResetComments")
	defer span.End()

	err := s.withTx(ctx, func(qry *db.Queries) error {
		err := qry.DeleteComments(ctx)
		if err != nil {
			return err
		}
		return qry.DeleteCourses(ctx)
	})
	if err != nil {
		return fail(span, fmt.Errorf("reset comments: %w", err))
	}
	return nil
}

// SaveComments stages the courses first surfaced by one professor and
// that professor's comments in a single transaction. Courses must precede
// the comments referencing them.
func (s Store) SaveComments(ctx context.Context, courses []Course, comments []Comment) error {
	ctx, span := tracer.Start(ctx, "SaveComments", trace.WithAttributes(
		attribute.Int("courses", len(courses)),
		attribute.Int("comments", len(comments)),
	))
	defer span.End()

	err := s.withTx(ctx, func(qry *db.Queries) error {
		for _, c := range courses {
			err := qry.CreateCourse(ctx, db.CreateCourseParams{
				ID:             c.ID,
				NormalizedName: c.NormalizedName,
				Subject:        c.Subject,
				Level:          int64(c.Level),
				DiscoveredFrom: c.DiscoveredFrom,
			})
			if err != nil {
				return fmt.Errorf("insert course %q: %w", c.NormalizedName, err)
			}
		}
		for _, c := range comments {
			err := qry.CreateComment(ctx, db.CreateCommentParams{
				Quality:     c.Quality,
				Difficulty:  c.Difficulty,
				Text:        c.Text,
				ProfessorID: c.ProfessorID,
				CourseID:    c.CourseID,
			})
			if err != nil {
				return fmt.Errorf("insert comment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fail(span, fmt.Errorf("save comments: %w", err))
	}
	return nil
}

func (s Store) ProfessorIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.qry.GetProfessorIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	return ids, nil
}

func (s Store) Snapshot(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Snapshot")
	defer span.End()

	var snap Snapshot

	departments, err := s.qry.GetDepartments(ctx)
	if err != nil {
		return Snapshot{}, fail(span, fmt.Errorf("read departments: %w", err))
	}
	for _, d := range departments {
		snap.Departments = append(snap.Departments, Department{ID: d.ID, Name: d.Name})
	}

	professors, err := s.qry.GetProfessors(ctx)
	if err != nil {
		return Snapshot{}, fail(span, fmt.Errorf("read professors: %w", err))
	}
	for _, p := range professors {
		snap.Professors = append(snap.Professors, Professor{
			ExternalID:   p.ExternalID,
			Name:         p.Name,
			DepartmentID: p.DepartmentID,
		})
	}

	courses, err := s.qry.GetCourses(ctx)
	if err != nil {
		return Snapshot{}, fail(span, fmt.Errorf("read courses: %w", err))
	}
	for _, c := range courses {
		snap.Courses = append(snap.Courses, Course{
			ID:             c.ID,
			NormalizedName: c.NormalizedName,
			Subject:        c.Subject,
			Level:          int(c.Level),
			DiscoveredFrom: c.DiscoveredFrom,
		})
	}

	comments, err := s.qry.GetComments(ctx)
	if err != nil {
		return Snapshot{}, fail(span, fmt.Errorf("read comments: %w", err))
	}
	for _, c := range comments {
		snap.Comments = append(snap.Comments, Comment{
			Quality:     c.Quality,
			Difficulty:  c.Difficulty,
			Text:        c.Text,
			ProfessorID: c.ProfessorID,
			CourseID:    c.CourseID,
		})
	}

	return snap, nil
}

func (s Store) Counts(ctx context.Context) (Counts, error) {
	row, err := s.qry.CountRows(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("count staging rows: %w", err)
	}
	return Counts{
		Departments: row.Departments,
		Professors:  row.Professors,
		Courses:     row.Courses,
		Comments:    row.Comments,
	}, nil
}
