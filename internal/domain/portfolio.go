package domain

import "time"

// Portfolio groups the operations of one owner.
type Portfolio struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	Name      string
	OwnerID   string
}

// Validate validates the portfolio fields.
func (p *Portfolio) Validate() error {
	return ValidatePortfolioName(p.Name)
}
