package model

import "time"

// CityState is one geographic unit inside a geo target.
type CityState struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// GeoTarget describes a unit of discovery work: the cities and zip codes a
// sweep should cover. Priority orders scheduling (higher first); a nil
// LastSweptAt means the target has never been swept and jumps the queue.
type GeoTarget struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Cities      []CityState `json:"cities" db:"cities"`
	ZipCodes    []string    `json:"zip_codes,omitempty" db:"zip_codes"`
	Priority    int         `json:"priority" db:"priority"`
	Active      bool        `json:"active" db:"active"`
	LastSweptAt *time.Time  `json:"last_swept_at,omitempty" db:"last_swept_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
