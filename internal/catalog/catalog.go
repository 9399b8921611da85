// Package catalog serves course content from a YAML file. It is the catalog
// used alongside the mongodb progress store, where there are no catalog
// tables to read from.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/models"
	"github.com/linguapath/learnmap/internal/repository"
)

type fileCatalog struct {
	Courses []courseEntry `yaml:"courses"`
}

type courseEntry struct {
	ID    string      `yaml:"id"`
	Title string      `yaml:"title"`
	Draft bool        `yaml:"draft"`
	Units []unitEntry `yaml:"units"`
}

type unitEntry struct {
	ID        string        `yaml:"id"`
	Title     string        `yaml:"title"`
	SortOrder int           `yaml:"sort_order"`
	Draft     bool          `yaml:"draft"`
	Lessons   []lessonEntry `yaml:"lessons"`
}

type lessonEntry struct {
	ID        string          `yaml:"id"`
	Title     string          `yaml:"title"`
	SortOrder int             `yaml:"sort_order"`
	Draft     bool            `yaml:"draft"`
	Exercises []exerciseEntry `yaml:"exercises"`
}

type exerciseEntry struct {
	ID        string `yaml:"id"`
	SortOrder int    `yaml:"sort_order"`
	Draft     bool   `yaml:"draft"`
}

// Catalog is an immutable in-memory catalog.
type Catalog struct {
	courses   map[string]models.Course
	units     map[string][]models.Unit
	lessons   map[string][]models.Lesson
	exercises map[string][]string
}

var _ repository.CatalogReader = (*Catalog)(nil)

// LoadFile reads and parses a catalog YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Unknown fields and duplicate ids are
// rejected.
func Parse(data []byte) (*Catalog, error) {
	var raw fileCatalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		courses:   map[string]models.Course{},
		units:     map[string][]models.Unit{},
		lessons:   map[string][]models.Lesson{},
		exercises: map[string][]string{},
	}
	seen := map[string]string{}
	claim := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s with empty id", kind)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("duplicate id %q (%s and %s)", id, prev, kind)
		}
		seen[id] = kind
		return nil
	}

	for _, ce := range raw.Courses {
		if err := claim("course", ce.ID); err != nil {
			return nil, err
		}
		c.courses[ce.ID] = models.Course{ID: ce.ID, Title: ce.Title, Published: !ce.Draft}
		for _, ue := range ce.Units {
			if err := claim("unit", ue.ID); err != nil {
				return nil, err
			}
			if !ue.Draft {
				c.units[ce.ID] = append(c.units[ce.ID], models.Unit{
					ID: ue.ID, CourseID: ce.ID, Title: ue.Title, SortOrder: ue.SortOrder, Published: true,
				})
			}
			for _, le := range ue.Lessons {
				if err := claim("lesson", le.ID); err != nil {
					return nil, err
				}
				if !le.Draft {
					c.lessons[ue.ID] = append(c.lessons[ue.ID], models.Lesson{
						ID: le.ID, UnitID: ue.ID, Title: le.Title, SortOrder: le.SortOrder, Published: true,
					})
				}
				sort.SliceStable(le.Exercises, func(i, j int) bool {
					return le.Exercises[i].SortOrder < le.Exercises[j].SortOrder
				})
				for _, ee := range le.Exercises {
					if err := claim("exercise", ee.ID); err != nil {
						return nil, err
					}
					if !ee.Draft {
						c.exercises[le.ID] = append(c.exercises[le.ID], ee.ID)
					}
				}
			}
		}
	}

	for _, units := range c.units {
		sort.SliceStable(units, func(i, j int) bool { return units[i].SortOrder < units[j].SortOrder })
	}
	for _, lessons := range c.lessons {
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].SortOrder < lessons[j].SortOrder })
	}
	return c, nil
}

func (c *Catalog) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, ok := c.courses[courseID]
	if !ok {
		logger.FromContext(ctx).WithPrefix("catalog").Debug("course not found: id=%s", courseID)
		return nil, nil
	}
	return &course, nil
}

func (c *Catalog) GetPublishedUnits(_ context.Context, courseID string) ([]models.Unit, error) {
	return append([]models.Unit(nil), c.units[courseID]...), nil
}

func (c *Catalog) GetPublishedLessons(_ context.Context, unitID string) ([]models.Lesson, error) {
	return append([]models.Lesson(nil), c.lessons[unitID]...), nil
}

func (c *Catalog) GetPublishedExerciseIDs(_ context.Context, lessonID string) ([]string, error) {
	return append([]string(nil), c.exercises[lessonID]...), nil
}
