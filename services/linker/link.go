// Package linker pairs up keys from two lists that name the same thing,
// first by exact match and then by string similarity.
package linker

import (
	"courserank-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

type Link struct {
	Left        string
	Right       string
	Correlation float64
}

type Options struct {
	// fuzzy links below this correlation are dropped
	Threshold float64
	// if set, a fuzzy link is only considered when it returns true
	Compatible func(left, right string) bool
}

// CreateLinks matches every key at most once. Exact matches are taken
// first, the remaining keys of the shorter list are then paired with
// their most similar unmatched counterpart (Jaro-Winkler).
func CreateLinks(leftList, rightList []string, opts Options) []Link {
	swapped := false
	if len(rightList) < len(leftList) {
		leftList, rightList = rightList, leftList
		swapped = true
	}
	compatible := opts.Compatible
	if compatible != nil && swapped {
		original := compatible
		compatible = func(left, right string) bool {
			return original(right, left)
		}
	}

	var result []Link
	matchedLeft := make(map[string]struct{})
	matchedRight := make(map[string]struct{})

	emit := func(left, right string, correlation float64) {
		link := Link{Left: left, Right: right, Correlation: correlation}
		if swapped {
			link.Left, link.Right = right, left
		}
		result = append(result, link)
		matchedLeft[left] = struct{}{}
		matchedRight[right] = struct{}{}
	}

	for _, left := range leftList {
		if _, ok := matchedLeft[left]; ok {
			continue
		}
		for _, right := range rightList {
			if _, ok := matchedRight[right]; ok {
				continue
			}
			if left == right {
				emit(left, right, 1)
				break
			}
		}
	}

	for _, left := range leftList {
		if _, ok := matchedLeft[left]; ok {
			continue
		}

		var mostSimilarity float64
		var mostSimilarRight string
		for _, right := range rightList {
			if _, ok := matchedRight[right]; ok {
				continue
			}
			if compatible != nil && !compatible(left, right) {
				continue
			}
			similarity := matchr.JaroWinkler(left, right, false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilarRight = right
			}
		}

		if mostSimilarity > 0 && mostSimilarity >= opts.Threshold {
			emit(left, mostSimilarRight, mostSimilarity)
		}
	}

	return result
}

func digits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// LinkCourses pairs staged course labels (Left) with catalog course codes
// (Right). Both sides are compared without case or whitespace, and a
// fuzzy link requires the course numbers to agree so that only the
// subject spelling may differ (eg. "CPTS121" and "CPT S 121").
func LinkCourses(courseNames, catalogCodes []string, threshold float64) []Link {
	courseKeys, courseByKey := normalizedKeys(courseNames)
	catalogKeys, catalogByKey := normalizedKeys(catalogCodes)

	links := CreateLinks(courseKeys, catalogKeys, Options{
		Threshold: threshold,
		Compatible: func(course, code string) bool {
			return digits(course) == digits(code)
		},
	})
	for i := range links {
		links[i].Left = courseByKey[links[i].Left]
		links[i].Right = catalogByKey[links[i].Right]
	}
	return links
}

// normalizedKeys returns the distinct normalized keys in input order and
// the first original value for each.
func normalizedKeys(values []string) ([]string, map[string]string) {
	keys := make([]string, 0, len(values))
	byKey := make(map[string]string, len(values))
	for _, v := range values {
		key := textutil.NormalizeName(v)
		if key == "" {
			continue
		}
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = v
		keys = append(keys, key)
	}
	return keys, byKey
}
