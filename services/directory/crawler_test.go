package directory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"courserank-backend/lib/pagesource"
	"courserank-backend/lib/pagesource/pagesourcetest"
	"courserank-backend/lib/testutil"
	"courserank-backend/services/staging"
	"courserank-backend/services/staging/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const listingURL = "https://ratings.test/search/professors/1?q=*"

func card(id int64, name, department string) pagesourcetest.Element {
	return pagesourcetest.Element{
		Attrs: map[string]string{"href": fmt.Sprintf("/professor/%d", id)},
		Outer: fmt.Sprintf(
			`<a href="/professor/%d"><div class="TeacherCard__CardInfo-x">`+
				`<div class="CardName__StyledCardName-sc-1gyrgim-0 cJdVEK">%s</div>`+
				`<div class="CardSchool__Department-sc-19lmz2k-0 haUIRO">%s</div>`+
				`</div></a>`,
			id, name, department,
		),
	}
}

func setup(t testing.TB, script *pagesourcetest.Script) (*Crawler, *pagesourcetest.Page, staging.Store, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/directory",
		DbSchema: db.Schema,
	})
	store := staging.NewStore(res.DB)
	script.Selector = DefaultCardSelector
	script.Button = DefaultShowMoreSelector
	page := pagesourcetest.New(map[string]*pagesourcetest.Script{listingURL: script})
	return NewCrawler(page, store, Options{}), page, store, cleanup
}

func TestDepartmentRegistry(t *testing.T) {
	r := NewDepartmentRegistry()
	require.Equal(t, int64(0), r.Resolve("Computer Science"))
	require.Equal(t, int64(1), r.Resolve("Mathematics"))
	require.Equal(t, int64(0), r.Resolve("Computer Science"))
	require.Equal(t, 2, r.Len())
	require.Equal(t, []staging.Department{
		{ID: 0, Name: "Computer Science"},
		{ID: 1, Name: "Mathematics"},
	}, r.Departments())
}

func TestCrawlDedupAndDepartments(t *testing.T) {
	crawler, page, store, cleanup := setup(t, &pagesourcetest.Script{
		Batches: [][]pagesourcetest.Element{
			{
				card(100, "Ada Lovelace", "Computer Science"),
				card(101, "Emmy Noether", "Mathematics"),
				// stale duplicate node
				card(100, "Ada Lovelace", "Computer Science"),
			},
			{
				card(102, "Alan Turing", "Computer Science"),
				card(101, "Emmy Noether", "Mathematics"),
			},
		},
	})
	defer cleanup()

	ctx := context.Background()
	res, err := crawler.Crawl(ctx, listingURL)
	require.NoError(t, err)
	require.Equal(t, 1, page.Clicks())

	expected := []staging.Professor{
		{ExternalID: 100, Name: "Ada Lovelace", DepartmentID: 0},
		{ExternalID: 101, Name: "Emmy Noether", DepartmentID: 1},
		{ExternalID: 102, Name: "Alan Turing", DepartmentID: 0},
	}
	if diff := cmp.Diff(expected, res.Professors); diff != "" {
		t.Fatal("unexpected professors:", diff)
	}
	require.Equal(t, 2, res.Departments.Len())

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(expected, snap.Professors); diff != "" {
		t.Fatal("unexpected staged professors:", diff)
	}
	require.Equal(t, res.Departments.Departments(), snap.Departments)
}

func TestCrawlSkipsBrokenCards(t *testing.T) {
	missingHref := card(0, "No Link", "Nowhere")
	missingHref.Attrs = nil
	nonNumeric := card(0, "Bad Id", "Nowhere")
	nonNumeric.Attrs = map[string]string{"href": "/professor/abc"}
	unnamed := pagesourcetest.Element{
		Attrs: map[string]string{"href": "/professor/7/"},
		Outer: `<a href="/professor/7/"><div>no fields</div></a>`,
	}

	crawler, _, _, cleanup := setup(t, &pagesourcetest.Script{
		Batches: [][]pagesourcetest.Element{{missingHref, nonNumeric, unnamed, card(8, "Grace Hopper", "Computer Science")}},
	})
	defer cleanup()

	res, err := crawler.Crawl(context.Background(), listingURL)
	require.NoError(t, err)
	require.Equal(t, []staging.Professor{
		{ExternalID: 7, Name: unknownName, DepartmentID: 0},
		{ExternalID: 8, Name: "Grace Hopper", DepartmentID: 1},
	}, res.Professors)
	require.Equal(t, []staging.Department{
		{ID: 0, Name: unknownDepartment},
		{ID: 1, Name: "Computer Science"},
	}, res.Departments.Departments())
}

func TestCrawlStopsWhenListingStopsGrowing(t *testing.T) {
	crawler, page, _, cleanup := setup(t, &pagesourcetest.Script{
		Batches:    [][]pagesourcetest.Element{{card(1, "A", "X")}},
		KeepButton: true,
	})
	defer cleanup()

	res, err := crawler.Crawl(context.Background(), listingURL)
	require.NoError(t, err)
	require.Len(t, res.Professors, 1)
	require.Equal(t, 1, page.Clicks())
}

func TestCrawlClickFailureKeepsCollected(t *testing.T) {
	crawler, _, store, cleanup := setup(t, &pagesourcetest.Script{
		Batches: [][]pagesourcetest.Element{
			{card(1, "A", "X")},
			{card(2, "B", "Y")},
			{card(3, "C", "Z")},
		},
		FailClick: 2,
	})
	defer cleanup()

	ctx := context.Background()
	res, err := crawler.Crawl(ctx, listingURL)
	require.NoError(t, err)
	require.Len(t, res.Professors, 2)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Professors)
}

func TestCrawlCancelledStillSaves(t *testing.T) {
	crawler, _, store, cleanup := setup(t, &pagesourcetest.Script{
		Batches: [][]pagesourcetest.Element{{card(1, "A", "X")}},
	})
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := crawler.Crawl(ctx, listingURL)
	require.NoError(t, err)

	// the previous generation is replaced even by an empty interrupted run
	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	require.Zero(t, counts.Professors)
}

// lateListing hides the rendered cards from the first `hidden` reads, like
// a listing that renders after DOMContentLoaded.
type lateListing struct {
	*pagesourcetest.Page
	hidden int
}

func (l *lateListing) FindAll(ctx context.Context, selector string) ([]pagesource.Element, error) {
	if l.hidden > 0 {
		l.hidden--
		return nil, nil
	}
	return l.Page.FindAll(ctx, selector)
}

func (l *lateListing) WaitUntil(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error) {
	return pagesource.Poll(ctx, pred, timeout, time.Millisecond)
}

func setupLate(t testing.TB, hidden int, initialWait time.Duration) (*Crawler, staging.Store, func()) {
	_, page, store, cleanup := setup(t, &pagesourcetest.Script{
		Batches: [][]pagesourcetest.Element{{card(1, "A", "X"), card(2, "B", "Y")}},
	})
	late := &lateListing{Page: page, hidden: hidden}
	return NewCrawler(late, store, Options{InitialWait: initialWait}), store, cleanup
}

func TestCrawlWaitsForLateListing(t *testing.T) {
	crawler, store, cleanup := setupLate(t, 3, time.Second)
	defer cleanup()

	ctx := context.Background()
	res, err := crawler.Crawl(ctx, listingURL)
	require.NoError(t, err)
	require.Len(t, res.Professors, 2)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Professors)
}

func TestCrawlEmptyListingKeepsPreviousGeneration(t *testing.T) {
	crawler, store, cleanup := setupLate(t, 1_000_000, 20*time.Millisecond)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.SaveDirectory(
		ctx,
		[]staging.Department{{ID: 0, Name: "Physics"}},
		[]staging.Professor{{ExternalID: 9, Name: "Lise Meitner", DepartmentID: 0}},
	))

	res, err := crawler.Crawl(ctx, listingURL)
	require.ErrorIs(t, err, ErrEmptyListing)
	require.Empty(t, res.Professors)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts.Professors)
}

func TestExternalID(t *testing.T) {
	id, err := ExternalID("https://ratings.test/professor/2345678?tab=ratings")
	require.NoError(t, err)
	require.Equal(t, int64(2345678), id)

	_, err = ExternalID("/professor/")
	require.Error(t, err)
}
