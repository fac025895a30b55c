package migration

import (
	"cmp"
	"slices"

	"courserank-backend/services/staging"
)

// Policy holds the tunable constants of the migration.
type Policy struct {
	QualityWeight    float64 `json:"quality_weight"`
	DifficultyWeight float64 `json:"difficulty_weight"`
	BaselineWeight   float64 `json:"baseline_weight"`
	// course labels above this level were rejected during extraction
	MaxLevel int `json:"max_level"`
	// the rating site has no credit information
	DefaultCredits int     `json:"default_credits"`
	LinkThreshold  float64 `json:"link_threshold"`
}

func DefaultPolicy() Policy {
	return Policy{
		QualityWeight:    0.5,
		DifficultyWeight: 0.3,
		BaselineWeight:   0.2,
		MaxLevel:         600,
		DefaultCredits:   3,
		LinkThreshold:    0.9,
	}
}

// WithDefaults fills zero fields from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()
	if p.QualityWeight == 0 && p.DifficultyWeight == 0 && p.BaselineWeight == 0 {
		p.QualityWeight = def.QualityWeight
		p.DifficultyWeight = def.DifficultyWeight
		p.BaselineWeight = def.BaselineWeight
	}
	if p.MaxLevel == 0 {
		p.MaxLevel = def.MaxLevel
	}
	if p.DefaultCredits == 0 {
		p.DefaultCredits = def.DefaultCredits
	}
	if p.LinkThreshold == 0 {
		p.LinkThreshold = def.LinkThreshold
	}
	return p
}

type CourseRating struct {
	ProfessorID int64
	CourseID    int64
	Score       float64
}

type CumulativeRating struct {
	ProfessorID int64
	Score       float64
}

type CourseDepartment struct {
	CourseID     int64
	DepartmentID int64
}

// AggregateCourseRatings scores every (professor, course) pair as
//
//	mean(quality*Wq + (5-difficulty)*Wd) + 5*Wb
//
// ordered by professor then course.
func AggregateCourseRatings(comments []staging.Comment, policy Policy) []CourseRating {
	type key struct {
		professor int64
		course    int64
	}
	type sum struct {
		total float64
		n     int
	}

	sums := make(map[key]*sum)
	for _, c := range comments {
		k := key{professor: c.ProfessorID, course: c.CourseID}
		s, ok := sums[k]
		if !ok {
			s = &sum{}
			sums[k] = s
		}
		s.total += c.Quality*policy.QualityWeight + (5-c.Difficulty)*policy.DifficultyWeight
		s.n++
	}

	out := make([]CourseRating, 0, len(sums))
	for k, s := range sums {
		out = append(out, CourseRating{
			ProfessorID: k.professor,
			CourseID:    k.course,
			Score:       s.total/float64(s.n) + 5*policy.BaselineWeight,
		})
	}
	slices.SortFunc(out, func(a, b CourseRating) int {
		if c := cmp.Compare(a.ProfessorID, b.ProfessorID); c != 0 {
			return c
		}
		return cmp.Compare(a.CourseID, b.CourseID)
	})
	return out
}

// AggregateCumulativeRatings averages each professor's course scores.
func AggregateCumulativeRatings(ratings []CourseRating) []CumulativeRating {
	type sum struct {
		total float64
		n     int
	}
	sums := make(map[int64]*sum)
	for _, r := range ratings {
		s, ok := sums[r.ProfessorID]
		if !ok {
			s = &sum{}
			sums[r.ProfessorID] = s
		}
		s.total += r.Score
		s.n++
	}

	out := make([]CumulativeRating, 0, len(sums))
	for professor, s := range sums {
		out = append(out, CumulativeRating{
			ProfessorID: professor,
			Score:       s.total / float64(s.n),
		})
	}
	slices.SortFunc(out, func(a, b CumulativeRating) int {
		return cmp.Compare(a.ProfessorID, b.ProfessorID)
	})
	return out
}

// InferCourseDepartments assigns each course the department of the
// professor it was first seen under. The rating site does not say which
// department offers a course, so this is an approximation and a course
// never gets more than one department.
func InferCourseDepartments(snap staging.Snapshot) []CourseDepartment {
	departmentOf := make(map[int64]int64, len(snap.Professors))
	for _, p := range snap.Professors {
		departmentOf[p.ExternalID] = p.DepartmentID
	}

	out := make([]CourseDepartment, 0, len(snap.Courses))
	for _, c := range snap.Courses {
		department, ok := departmentOf[c.DiscoveredFrom]
		if !ok {
			continue
		}
		out = append(out, CourseDepartment{CourseID: c.ID, DepartmentID: department})
	}
	return out
}
