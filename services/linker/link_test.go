package linker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCreateLinks(t *testing.T) {
	testCases := []struct {
		left  []string
		right []string
		// if Link.Correlation == 0
		// the test will not assert the correlation to be equal
		expected []Link
	}{
		{
			left:  []string{"a", "b", "c"},
			right: []string{"a", "b"},
			expected: []Link{
				{Left: "a", Right: "a", Correlation: 1},
				{Left: "b", Right: "b", Correlation: 1},
			},
		},
		{
			left:  []string{"foo", "bar", "baz"},
			right: []string{"foob", "bar", "barr"},
			expected: []Link{
				{Left: "bar", Right: "bar", Correlation: 1},
				{Left: "baz", Right: "barr"},
				{Left: "foo", Right: "foob"},
			},
		},
		{
			left:     []string{"foo", "bar", "baz"},
			right:    []string{},
			expected: nil,
		},
		{
			left:     []string{},
			right:    []string{},
			expected: nil,
		},
		{
			left:  []string{"foo", "bar", "baz"},
			right: []string{"baa"},
			expected: []Link{
				{Left: "bar", Right: "baa"},
			},
		},
	}

	for _, test := range testCases {
		links := CreateLinks(test.left, test.right, Options{})
		diff := cmp.Diff(
			test.expected,
			links,
			cmpopts.SortSlices(func(a, b Link) bool {
				return a.Left < b.Left
			}),
			cmpopts.IgnoreFields(Link{}, "Correlation"),
		)
		if diff != "" {
			t.Fatal(diff)
		}
	}
}

func TestCreateLinksThreshold(t *testing.T) {
	links := CreateLinks([]string{"history"}, []string{"chemistry"}, Options{Threshold: 0.9})
	if len(links) != 0 {
		t.Fatal("expected no links under the threshold, got", links)
	}
}

func TestLinkCourses(t *testing.T) {
	links := LinkCourses(
		[]string{"CPTS121", "MATH 171", "HIST105", "CPTS122", "ENGL101"},
		[]string{"CPT S 121", "MATH 171", "MATH 171", "HISTORY 105", "CPT S 360", "ENGL 201"},
		0.9,
	)
	expected := []Link{
		{Left: "CPTS121", Right: "CPT S 121", Correlation: 1},
		{Left: "MATH 171", Right: "MATH 171", Correlation: 1},
		{Left: "HIST105", Right: "HISTORY 105"},
	}
	diff := cmp.Diff(
		expected,
		links,
		cmpopts.SortSlices(func(a, b Link) bool {
			return a.Left < b.Left
		}),
		cmpopts.IgnoreFields(Link{}, "Correlation"),
	)
	if diff != "" {
		t.Fatal(diff)
	}
}
