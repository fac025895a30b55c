package comments

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func ratingHTML(label, quality, difficulty, text string) string {
	var b strings.Builder
	b.WriteString(`<li><div class="Rating__StyledRating-sc-1rhvpxz-1">`)
	// the first class div is an empty placeholder on the live site
	b.WriteString(`<div class="RatingHeader__StyledClass-sc-1dlkqw1-3 eXfReS"></div>`)
	b.WriteString(fmt.Sprintf(`<div class="RatingHeader__StyledClass-sc-1dlkqw1-3 eXfReS">%s</div>`, label))
	if quality != "" {
		b.WriteString(`<div class="CardNumRating__StyledCardNumRating">`)
		b.WriteString(`<div class="CardNumRating__CardNumRatingHeader-sc-17t4b9u-1 fVETNc">Quality</div>`)
		b.WriteString(fmt.Sprintf(`<div class="CardNumRating__CardNumRatingNumber-sc-17t4b9u-2">%s</div>`, quality))
		b.WriteString(`</div>`)
	}
	if difficulty != "" {
		b.WriteString(`<div class="CardNumRating__StyledCardNumRating">`)
		b.WriteString(`<div class="CardNumRating__CardNumRatingHeader-sc-17t4b9u-1 fVETNc">Difficulty</div>`)
		b.WriteString(fmt.Sprintf(`<div class="CardNumRating__CardNumRatingNumber-sc-17t4b9u-2">%s</div>`, difficulty))
		b.WriteString(`</div>`)
	}
	if text != "" {
		b.WriteString(fmt.Sprintf(`<div class="Comments__StyledComments-dzzyvm-0 gRjWel">%s</div>`, text))
	}
	b.WriteString(`</div></li>`)
	return b.String()
}

func TestParseRating(t *testing.T) {
	entry, err := ParseRating(ratingHTML(" cpts121 ", "5.0", "2.0", "Tough but\n   fair."))
	require.NoError(t, err)
	require.Equal(t, RatingEntry{
		Label:      "cpts121",
		Quality:    5,
		Difficulty: 2,
		Text:       "Tough but\n   fair.",
	}, entry)
}

func TestParseRatingKeepsParagraphs(t *testing.T) {
	entry, err := ParseRating(ratingHTML("HIST105", "4", "3", "\n  Loved the readings.\n\nQuizzes every week.  "))
	require.NoError(t, err)
	require.Equal(t, "Loved the readings.\n\nQuizzes every week.", entry.Text)
}

func TestParseRatingDefaults(t *testing.T) {
	entry, err := ParseRating(ratingHTML("MATH171", "", "", ""))
	require.NoError(t, err)
	require.Equal(t, RatingEntry{Label: "MATH171"}, entry)
}

func TestParseRatingRejects(t *testing.T) {
	_, err := ParseRating(ratingHTML("", "5.0", "1.0", "no label"))
	require.ErrorIs(t, err, ErrNoCourseLabel)

	_, err = ParseRating(ratingHTML("MATH171", "awesome", "1.0", ""))
	require.ErrorIs(t, err, ErrMalformedRating)

	_, err = ParseRating(`<li><div class="AdNoBid__AdContainer-sc-1234"></div></li>`)
	require.ErrorIs(t, err, ErrAdvertisement)
}

func TestLevelName(t *testing.T) {
	cases := []struct {
		label string
		level int
		name  string
	}{
		{label: "101 INTRO TO X", level: 101, name: "INTRO TO X"},
		{label: "CPTS121", level: 121, name: "CPTS"},
		{label: "MATH 171", level: 171, name: "MATH"},
		{label: "CPTS360LAB2", level: 360, name: "CPTSLAB2"},
		{label: "ENGL600", level: 600, name: "ENGL"},
		{label: "PHYS007", level: 7, name: "PHYS"},
	}
	for _, c := range cases {
		level, name, err := LevelName(c.label, DefaultMaxLevel)
		require.NoError(t, err, c.label)
		require.Equal(t, c.level, level, c.label)
		require.Equal(t, c.name, name, c.label)
	}

	rejected := []string{
		"999 FAKECLASS",
		"INTRO TO X",
		"",
		"121",
		"  404  ",
		"CPTS99999999999999999999999",
	}
	for _, label := range rejected {
		_, _, err := LevelName(label, DefaultMaxLevel)
		require.ErrorIs(t, err, ErrRejectedLabel, label)
	}
}

// the level is always the first digit run and the name is the label with
// that run removed
func TestLevelNameProperty(t *testing.T) {
	names := []string{"CPTS", "MATH ", " HIST", "A B", "X-"}
	for _, prefix := range names {
		for _, suffix := range []string{"", " LAB", "H", " 2"} {
			for level := 0; level <= 650; level += 13 {
				run := fmt.Sprint(level)
				label := prefix + run + suffix
				gotLevel, gotName, err := LevelName(label, DefaultMaxLevel)
				if level > DefaultMaxLevel {
					require.ErrorIs(t, err, ErrRejectedLabel, label)
					continue
				}
				require.NoError(t, err, label)
				require.Equal(t, level, gotLevel, label)
				require.Equal(t, strings.TrimSpace(strings.Replace(label, run, "", 1)), gotName, label)
			}
		}
	}
}
