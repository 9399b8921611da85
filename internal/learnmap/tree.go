// Package learnmap holds the deterministic parts of course progression: the
// catalog ordering, the unlock graph evaluator, the node state machine and
// the reconciliation of a progress document against the catalog.
package learnmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/linguapath/learnmap/internal/models"
)

// ErrMalformedCatalog is returned when the catalog cannot be ordered.
var ErrMalformedCatalog = errors.New("learnmap: malformed catalog")

// Tree is the ordered unit/lesson skeleton of one course.
type Tree struct {
	CourseID string
	Units    []UnitNode
}

type UnitNode struct {
	ID        string
	SortOrder int
	Lessons   []LessonNode
}

type LessonNode struct {
	ID        string
	SortOrder int
}

// NewTree builds a Tree from published catalog rows. lessons is keyed by unit
// ID. Units without lessons are left out: they cannot anchor an unlock chain.
func NewTree(courseID string, units []models.Unit, lessons map[string][]models.Lesson) (*Tree, error) {
	t := &Tree{CourseID: courseID}
	for _, u := range units {
		node := UnitNode{ID: u.ID, SortOrder: u.SortOrder}
		for _, l := range lessons[u.ID] {
			node.Lessons = append(node.Lessons, LessonNode{ID: l.ID, SortOrder: l.SortOrder})
		}
		if len(node.Lessons) == 0 {
			continue
		}
		t.Units = append(t.Units, node)
	}
	return t.ordered()
}

// ordered validates t and returns a copy with units and lessons sorted by
// sort order.
func (t *Tree) ordered() (*Tree, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: missing catalog", ErrMalformedCatalog)
	}
	out := &Tree{CourseID: t.CourseID, Units: make([]UnitNode, len(t.Units))}
	copy(out.Units, t.Units)

	seenUnits := make(map[string]bool, len(out.Units))
	for i := range out.Units {
		u := &out.Units[i]
		if u.ID == "" {
			return nil, fmt.Errorf("%w: unit without id", ErrMalformedCatalog)
		}
		if seenUnits[u.ID] {
			return nil, fmt.Errorf("%w: duplicate unit %s", ErrMalformedCatalog, u.ID)
		}
		seenUnits[u.ID] = true

		u.Lessons = append([]LessonNode(nil), u.Lessons...)
		sort.SliceStable(u.Lessons, func(a, b int) bool {
			return u.Lessons[a].SortOrder < u.Lessons[b].SortOrder
		})
		seenLessons := make(map[string]bool, len(u.Lessons))
		for j, l := range u.Lessons {
			if l.ID == "" {
				return nil, fmt.Errorf("%w: lesson without id in unit %s", ErrMalformedCatalog, u.ID)
			}
			if seenLessons[l.ID] {
				return nil, fmt.Errorf("%w: duplicate lesson %s", ErrMalformedCatalog, l.ID)
			}
			seenLessons[l.ID] = true
			if j > 0 && u.Lessons[j-1].SortOrder == l.SortOrder {
				return nil, fmt.Errorf("%w: lessons %s and %s share sort order %d",
					ErrMalformedCatalog, u.Lessons[j-1].ID, l.ID, l.SortOrder)
			}
		}
	}

	sort.SliceStable(out.Units, func(a, b int) bool {
		return out.Units[a].SortOrder < out.Units[b].SortOrder
	})
	for i := 1; i < len(out.Units); i++ {
		if out.Units[i-1].SortOrder == out.Units[i].SortOrder {
			return nil, fmt.Errorf("%w: units %s and %s share sort order %d",
				ErrMalformedCatalog, out.Units[i-1].ID, out.Units[i].ID, out.Units[i].SortOrder)
		}
	}
	return out, nil
}

// Unit returns the catalog node for unitID, or nil.
func (t *Tree) Unit(unitID string) *UnitNode {
	for i := range t.Units {
		if t.Units[i].ID == unitID {
			return &t.Units[i]
		}
	}
	return nil
}
