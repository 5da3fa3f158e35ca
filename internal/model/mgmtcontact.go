package model

import "time"

// ManagementContact is a person reachable at a management company. Contacts
// are keyed by the company lead they belong to; management companies never
// enter the association outreach queue directly, their contacts do.
type ManagementContact struct {
	ID        int64     `json:"id" db:"id"`
	LeadID    int64     `json:"lead_id" db:"lead_id"`
	Name      *string   `json:"name,omitempty" db:"name"`
	Title     *string   `json:"title,omitempty" db:"title"`
	Email     string    `json:"email" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Joined from the company row for rendering; never written back.
	CompanyName string  `json:"company_name,omitempty" db:"-"`
	City        *string `json:"city,omitempty" db:"-"`
	State       *string `json:"state,omitempty" db:"-"`
}
