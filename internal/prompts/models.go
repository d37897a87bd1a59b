package prompts

import "time"

// Template is a named, versioned prompt template.
// Placeholders use {name} syntax and are substituted at render time.
type Template struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Content     string    `json:"content" db:"content"`
	Description string    `json:"description,omitempty" db:"description"`
	Version     int       `json:"version" db:"version"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
