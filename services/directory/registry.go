package directory

import "courserank-backend/services/staging"

// DepartmentRegistry assigns department ids in first-seen order, starting
// at 0. It belongs to a single crawl.
type DepartmentRegistry struct {
	ids   map[string]int64
	order []staging.Department
}

func NewDepartmentRegistry() *DepartmentRegistry {
	return &DepartmentRegistry{ids: make(map[string]int64)}
}

func (r *DepartmentRegistry) Resolve(name string) int64 {
	id, ok := r.ids[name]
	if ok {
		return id
	}
	id = int64(len(r.order))
	r.ids[name] = id
	r.order = append(r.order, staging.Department{ID: id, Name: name})
	return id
}

func (r *DepartmentRegistry) Departments() []staging.Department {
	out := make([]staging.Department, len(r.order))
	copy(out, r.order)
	return out
}

func (r *DepartmentRegistry) Len() int {
	return len(r.order)
}
