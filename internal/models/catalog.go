package models

// Catalog nodes are authored elsewhere; the engine only reads them.

type Course struct {
	ID        string `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Published bool   `json:"published" db:"published"`
}

type Unit struct {
	ID        string `json:"id" db:"id"`
	CourseID  string `json:"course_id" db:"course_id"`
	Title     string `json:"title" db:"title"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	Published bool   `json:"published" db:"published"`
}

type Lesson struct {
	ID        string `json:"id" db:"id"`
	UnitID    string `json:"unit_id" db:"unit_id"`
	Title     string `json:"title" db:"title"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	Published bool   `json:"published" db:"published"`
}

type Exercise struct {
	ID        string `json:"id" db:"id"`
	LessonID  string `json:"lesson_id" db:"lesson_id"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	Published bool   `json:"published" db:"published"`
}
