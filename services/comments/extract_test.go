package comments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"courserank-backend/lib/pagesource/pagesourcetest"
	"courserank-backend/lib/testutil"
	"courserank-backend/services/staging"
	"courserank-backend/services/staging/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const professorURL = "https://ratings.test/professor/{id}"

func pageURL(id int64) string {
	return fmt.Sprintf("https://ratings.test/professor/%d", id)
}

func entry(fragment string) pagesourcetest.Element {
	return pagesourcetest.Element{Outer: fragment}
}

func script(batches ...[]pagesourcetest.Element) *pagesourcetest.Script {
	return &pagesourcetest.Script{
		Selector: DefaultRatingSelector,
		Button:   DefaultLoadMoreSelector,
		Batches:  batches,
	}
}

func TestExtractDedupsCourses(t *testing.T) {
	page := pagesourcetest.New(map[string]*pagesourcetest.Script{
		pageURL(1): script(
			[]pagesourcetest.Element{
				entry(ratingHTML("cpts121", "5", "0", "great")),
				entry(ratingHTML("CPTS121 ", "3", "2", "")),
				entry(`<li><div class="AdNoBid__AdContainer-x"></div></li>`),
			},
			[]pagesourcetest.Element{
				entry(ratingHTML("999 FAKECLASS", "1", "1", "")),
				entry(ratingHTML("MATH 171", "4", "4", "hard")),
				entry(ratingHTML("", "4", "4", "no label")),
				entry(ratingHTML("MATH 171", "oops", "4", "")),
			},
		),
	})
	extraction := NewExtraction(page, nil, Options{ProfessorURL: professorURL})

	comments, courses, err := extraction.Extract(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, page.Clicks())

	expectedCourses := []staging.Course{
		{ID: 0, NormalizedName: "CPTS121", Subject: "CPTS", Level: 121, DiscoveredFrom: 1},
		{ID: 1, NormalizedName: "MATH 171", Subject: "MATH", Level: 171, DiscoveredFrom: 1},
	}
	if diff := cmp.Diff(expectedCourses, courses); diff != "" {
		t.Fatal("unexpected courses:", diff)
	}
	expectedComments := []staging.Comment{
		{Quality: 5, Difficulty: 0, Text: "great", ProfessorID: 1, CourseID: 0},
		{Quality: 3, Difficulty: 2, Text: "", ProfessorID: 1, CourseID: 0},
		{Quality: 4, Difficulty: 4, Text: "hard", ProfessorID: 1, CourseID: 1},
	}
	if diff := cmp.Diff(expectedComments, comments); diff != "" {
		t.Fatal("unexpected comments:", diff)
	}
}

func TestExtractKeepsRatingsBeforeFailedClick(t *testing.T) {
	batches := make([][]pagesourcetest.Element, 11)
	for i := range batches {
		batches[i] = []pagesourcetest.Element{
			entry(ratingHTML(fmt.Sprintf("CPTS%d", 100+i), "4", "1", "")),
		}
	}
	s := script(batches...)
	s.FailClick = 5
	s.ClickErr = errors.New("element is covered by an overlay")
	page := pagesourcetest.New(map[string]*pagesourcetest.Script{pageURL(9): s})

	extraction := NewExtraction(page, nil, Options{ProfessorURL: professorURL, Workers: 2})
	comments, courses, err := extraction.Extract(context.Background(), 9)
	require.Error(t, err)
	require.ErrorIs(t, err, s.ClickErr)
	require.Equal(t, 5, page.Clicks())

	// the initial page plus the pages loaded by clicks 1-4
	require.Len(t, comments, 5)
	require.Len(t, courses, 5)
	for i, c := range courses {
		require.Equal(t, int64(i), c.ID)
		require.Equal(t, 100+i, c.Level)
	}
}

func TestExtractNavigationFailure(t *testing.T) {
	s := script()
	s.NavigateErr = errors.New("net::ERR_CONNECTION_RESET")
	page := pagesourcetest.New(map[string]*pagesourcetest.Script{pageURL(3): s})

	extraction := NewExtraction(page, nil, Options{ProfessorURL: professorURL})
	comments, courses, err := extraction.Extract(context.Background(), 3)
	require.Error(t, err)
	require.Empty(t, comments)
	require.Empty(t, courses)
}

func TestRun(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/comments",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := staging.NewStore(res.DB)
	ctx := context.Background()

	require.NoError(t, store.SaveDirectory(ctx, []staging.Department{{ID: 0, Name: "Computer Science"}}, []staging.Professor{
		{ExternalID: 1, Name: "Ada Lovelace", DepartmentID: 0},
		{ExternalID: 2, Name: "Alan Turing", DepartmentID: 0},
		{ExternalID: 3, Name: "Grace Hopper", DepartmentID: 0},
	}))

	broken := script()
	broken.NavigateErr = errors.New("navigation timed out")
	page := pagesourcetest.New(map[string]*pagesourcetest.Script{
		pageURL(1): script([]pagesourcetest.Element{
			entry(ratingHTML("CPTS121", "5", "0", "")),
		}),
		pageURL(2): broken,
		pageURL(3): script([]pagesourcetest.Element{
			entry(ratingHTML("cpts121", "3", "2", "")),
			entry(ratingHTML("CPTS122", "4", "3", "")),
		}),
	})

	extraction := NewExtraction(page, store, Options{ProfessorURL: professorURL})
	stats, err := extraction.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, RunStats{Professors: 2, Failed: 1, Courses: 2, Comments: 3}, stats)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, []staging.Course{
		{ID: 0, NormalizedName: "CPTS121", Subject: "CPTS", Level: 121, DiscoveredFrom: 1},
		{ID: 1, NormalizedName: "CPTS122", Subject: "CPTS", Level: 122, DiscoveredFrom: 3},
	}, snap.Courses)
	require.Len(t, snap.Comments, 3)

	// running again replaces the previous generation of comments
	stats, err = NewExtraction(page, store, Options{ProfessorURL: professorURL}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Comments)
	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), counts.Comments)
	require.Equal(t, int64(2), counts.Courses)
}

// cancellingPage simulates an interrupt arriving while a professor's
// ratings are being loaded
type cancellingPage struct {
	*pagesourcetest.Page
	cancel context.CancelFunc
}

func (p cancellingPage) Click(ctx context.Context, selector string) error {
	p.cancel()
	return p.Page.Click(ctx, selector)
}

func TestRunCancelledSavesCollected(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/comments",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := staging.NewStore(res.DB)

	require.NoError(t, store.SaveDirectory(context.Background(), []staging.Department{{ID: 0, Name: "X"}}, []staging.Professor{
		{ExternalID: 1, Name: "A", DepartmentID: 0},
		{ExternalID: 2, Name: "B", DepartmentID: 0},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page := cancellingPage{
		Page: pagesourcetest.New(map[string]*pagesourcetest.Script{
			pageURL(1): script([]pagesourcetest.Element{entry(ratingHTML("CPTS121", "5", "0", ""))}),
			pageURL(2): script([]pagesourcetest.Element{entry(ratingHTML("CPTS122", "5", "0", ""))}),
		}),
		cancel: cancel,
	}

	stats, err := NewExtraction(page, store, Options{ProfessorURL: professorURL}).Run(ctx)
	require.NoError(t, err)
	require.True(t, stats.Interrupted)
	require.Equal(t, 1, stats.Professors)
	require.Equal(t, []string{pageURL(1)}, page.Visited())

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), counts.Comments)
}
