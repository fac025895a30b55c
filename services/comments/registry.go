package comments

import (
	"courserank-backend/lib/textutil"
	"courserank-backend/services/staging"
)

// courseRegistry maps normalized course labels to course ids for one
// extraction run. Only the coordinating goroutine touches it.
type courseRegistry struct {
	ids  map[string]int64
	next int64
}

func newCourseRegistry() *courseRegistry {
	return &courseRegistry{ids: make(map[string]int64)}
}

// resolve returns the id for label, creating the course on first sight.
// created is nil when the course was already known.
func (r *courseRegistry) resolve(label string, professorID int64, maxLevel int) (id int64, created *staging.Course, err error) {
	normalized := textutil.NormalizeLabel(label)
	if id, ok := r.ids[normalized]; ok {
		return id, nil, nil
	}

	level, subject, err := LevelName(normalized, maxLevel)
	if err != nil {
		return 0, nil, err
	}

	id = r.next
	r.next++
	r.ids[normalized] = id
	return id, &staging.Course{
		ID:             id,
		NormalizedName: normalized,
		Subject:        subject,
		Level:          level,
		DiscoveredFrom: professorID,
	}, nil
}

func (r *courseRegistry) len() int {
	return len(r.ids)
}
