package domain

import "time"

type SubsidyCategory string

const DefaultSubsidyState = "Karnataka"

type Subsidy struct {
	ID              string
	Title           string
	Description     string
	Amount          float64
	Eligibility     string
	Category        SubsidyCategory
	State           string
	Deadline        *time.Time
	ApplicationLink string
	ContactInfo     string
	IsActive        bool
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OpenAt reports whether farmers can still see the subsidy at now.
func (s Subsidy) OpenAt(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.Deadline == nil || !now.After(*s.Deadline)
}
