package staging

import (
	"context"
	"testing"
	"time"

	"courserank-backend/lib/testutil"
	"courserank-backend/services/staging/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) (Store, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/staging",
		DbSchema: db.Schema,
	})
	return NewStore(res.DB), cleanup
}

func TestStoreGeneration(t *testing.T) {
	store, cleanup := setup(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	departments := []Department{{ID: 0, Name: "Computer Science"}, {ID: 1, Name: "Mathematics"}}
	professors := []Professor{
		{ExternalID: 11, Name: "Ada Lovelace", DepartmentID: 0},
		{ExternalID: 12, Name: "Emmy Noether", DepartmentID: 1},
	}
	require.NoError(t, store.SaveDirectory(ctx, departments, professors))

	ids, err := store.ProfessorIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{11, 12}, ids)

	require.NoError(t, store.ResetComments(ctx))
	courses := []Course{{ID: 0, NormalizedName: "CPTS121", Subject: "CPTS", Level: 121, DiscoveredFrom: 11}}
	comments := []Comment{
		{Quality: 5, Difficulty: 1, Text: "great", ProfessorID: 11, CourseID: 0},
		{Quality: 3, Difficulty: 4, Text: "", ProfessorID: 11, CourseID: 0},
	}
	require.NoError(t, store.SaveComments(ctx, courses, comments))
	// a later professor reuses the course without re-creating it
	require.NoError(t, store.SaveComments(ctx, nil, []Comment{
		{Quality: 4, Difficulty: 2, Text: "ok", ProfessorID: 12, CourseID: 0},
	}))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	expected := Snapshot{
		Departments: departments,
		Professors:  professors,
		Courses:     courses,
		Comments: append(comments, Comment{
			Quality: 4, Difficulty: 2, Text: "ok", ProfessorID: 12, CourseID: 0,
		}),
	}
	if diff := cmp.Diff(expected, snap); diff != "" {
		t.Fatal("unexpected snapshot:", diff)
	}

	// a new directory crawl replaces the whole generation
	require.NoError(t, store.SaveDirectory(ctx, []Department{{ID: 0, Name: "Physics"}}, nil))
	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, Counts{Departments: 1}, counts)
}

func TestSaveCommentsIsAtomic(t *testing.T) {
	store, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveDirectory(ctx, []Department{{ID: 0, Name: "Biology"}}, []Professor{
		{ExternalID: 1, Name: "Rosalind Franklin", DepartmentID: 0},
	}))

	err := store.SaveComments(ctx,
		[]Course{{ID: 0, NormalizedName: "BIOL106", Subject: "BIOL", Level: 106, DiscoveredFrom: 1}},
		// course 7 does not exist
		[]Comment{{Quality: 1, Difficulty: 1, ProfessorID: 1, CourseID: 7}},
	)
	require.Error(t, err)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Zero(t, counts.Courses)
	require.Zero(t, counts.Comments)
}
