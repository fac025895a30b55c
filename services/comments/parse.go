package comments

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"courserank-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNoCourseLabel marks entries without a course label, they are
	// dropped silently.
	ErrNoCourseLabel = errors.New("rating has no course label")
	// ErrRejectedLabel marks course labels the level heuristic does not
	// trust.
	ErrRejectedLabel = errors.New("course label rejected")
	// ErrMalformedRating marks entries with a numeric field that is
	// present but unreadable.
	ErrMalformedRating = errors.New("malformed rating")
	ErrAdvertisement   = errors.New("entry is an advertisement")
)

const (
	adMarker            = "AdNoBid__AdContainer"
	courseLabelSelector = `div[class*="StyledClass"]`
	ratingHeaderSel     = `div[class*="CardNumRating__CardNumRatingHeader"]`
	commentSelector     = `div[class*="Comments__StyledComments"]`
)

// RatingEntry is one parsed entry of a professor's ratings list, its
// label is not normalized yet.
type RatingEntry struct {
	Label      string
	Quality    float64
	Difficulty float64
	Text       string
}

// ParseRating extracts a rating from an entry's outer html. It depends on
// nothing but its input and is safe to call concurrently.
func ParseRating(fragment string) (RatingEntry, error) {
	if strings.Contains(fragment, adMarker) {
		return RatingEntry{}, ErrAdvertisement
	}
	doc, err := htmlutil.ParseFragment(fragment)
	if err != nil {
		return RatingEntry{}, fmt.Errorf("%w: %w", ErrMalformedRating, err)
	}

	var entry RatingEntry
	doc.Find(courseLabelSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		entry.Label = htmlutil.SelectionText(s)
		return entry.Label == ""
	})
	if entry.Label == "" {
		return RatingEntry{}, ErrNoCourseLabel
	}

	entry.Quality, err = ratingValue(doc, "Quality")
	if err != nil {
		return RatingEntry{}, err
	}
	entry.Difficulty, err = ratingValue(doc, "Difficulty")
	if err != nil {
		return RatingEntry{}, err
	}
	entry.Text = htmlutil.SelectionTrimmedText(doc.Find(commentSelector))

	return entry, nil
}

// ratingValue reads the div right after the header titled `header`, an
// absent field is 0.
func ratingValue(doc *goquery.Document, header string) (float64, error) {
	value := doc.Find(ratingHeaderSel).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), header)
		}).
		First().
		NextFiltered("div")
	if value.Length() == 0 {
		return 0, nil
	}

	text := htmlutil.SelectionText(value)
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRating, strings.ToLower(header), text)
	}
	return parsed, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// LevelName splits a normalized course label into its level, the first
// run of consecutive digits, and its name, the label with that run
// removed. Labels without digits, with nothing but digits or with a
// level above maxLevel are rejected.
func LevelName(label string, maxLevel int) (int, string, error) {
	start := strings.IndexFunc(label, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	if start < 0 {
		return 0, "", fmt.Errorf("%w: %q has no level digits", ErrRejectedLabel, label)
	}
	end := start
	for end < len(label) && isDigit(label[end]) {
		end++
	}

	level, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q level: %w", ErrRejectedLabel, label, err)
	}
	name := strings.TrimSpace(label[:start] + label[end:])
	if name == "" {
		return 0, "", fmt.Errorf("%w: %q has no name", ErrRejectedLabel, label)
	}
	if level > maxLevel {
		return 0, "", fmt.Errorf("%w: %q level %d exceeds %d", ErrRejectedLabel, label, level, maxLevel)
	}
	return level, name, nil
}
