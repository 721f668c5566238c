package course

import (
	"fmt"
	"sort"
)

// Catalog immutable course lookup, built once at startup
type Catalog struct {
	courses map[string]*Course
	ordered []*Course
}

// NewCatalog build a catalog from course definitions. Definitions are
// validated up front so malformed subsections never reach the progress logic.
func NewCatalog(courses []Course) (*Catalog, error) {
	byID := make(map[string]*Course, len(courses))
	ordered := make([]*Course, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		if c.ID == "" {
			return nil, fmt.Errorf("course at position %d has no ID", i)
		}
		if _, ok := byID[c.ID]; ok {
			return nil, fmt.Errorf("duplicated course ID %q", c.ID)
		}
		seen := make(map[string]struct{})
		for si := range c.Sections {
			for ssi := range c.Sections[si].Subsections {
				ss := &c.Sections[si].Subsections[ssi]
				if err := ss.validate(); err != nil {
					return nil, fmt.Errorf("course %q: %w", c.ID, err)
				}
				if _, ok := seen[ss.ID]; ok {
					return nil, fmt.Errorf("course %q: duplicated subsection ID %q", c.ID, ss.ID)
				}
				seen[ss.ID] = struct{}{}
			}
		}
		byID[c.ID] = c
		ordered = append(ordered, c)
	}
	return &Catalog{courses: byID, ordered: ordered}, nil
}

// Course find a course by ID
func (cat *Catalog) Course(id string) (*Course, bool) {
	c, ok := cat.courses[id]
	return c, ok
}

// Courses list every course in catalog order
func (cat *Catalog) Courses() []*Course {
	out := make([]*Course, len(cat.ordered))
	copy(out, cat.ordered)
	return out
}

// IDs course IDs in lexicographic order
func (cat *Catalog) IDs() []string {
	ids := make([]string, 0, len(cat.courses))
	for id := range cat.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
