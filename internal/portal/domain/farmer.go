package domain

import (
	"fmt"
	"strings"
	"time"
)

// FarmerStatus is the approval state of a farmer account.
type FarmerStatus string

const (
	StatusPending   FarmerStatus = "pending"
	StatusApproved  FarmerStatus = "approved"
	StatusRejected  FarmerStatus = "rejected"
	StatusSuspended FarmerStatus = "suspended"
)

// ParseFarmerStatus accepts the lowercase wire spelling.
func ParseFarmerStatus(s string) (FarmerStatus, error) {
	switch st := FarmerStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return st, nil
	}
	return "", fmt.Errorf("domain: unknown farmer status %q", s)
}

type CropType string

const (
	CropRice       CropType = "rice"
	CropWheat      CropType = "wheat"
	CropVegetables CropType = "vegetables"
	CropFruits     CropType = "fruits"
	CropPulses     CropType = "pulses"
	CropSugarcane  CropType = "sugarcane"
	CropCotton     CropType = "cotton"
	CropOther      CropType = "other"
)

type Language string

const (
	LanguageEnglish Language = "english"
	LanguageKannada Language = "kannada"
	LanguageHindi   Language = "hindi"
)

// Farmer is a registered farmer account. Accounts are never hard-deleted.
type Farmer struct {
	ID           string
	Email        string // stored lowercase
	Mobile       string
	FullName     string
	PasswordHash string // argon2id PHC string, or bcrypt for imported accounts

	Location string
	CropType CropType
	Language Language

	Status     FarmerStatus
	IsActive   bool
	IsVerified bool

	RegisteredAt     time.Time
	ApprovedAt       *time.Time
	ApprovedBy       string
	RejectionReason  string
	SuspensionReason string
	LastLoginAt      *time.Time
	UpdatedAt        time.Time
}

// FarmerPatch holds the profile fields a farmer may change. Passwords go
// through service.Credentials.ChangePassword instead.
type FarmerPatch struct {
	FullName *string
	Mobile   *string
	Location *string
	CropType *CropType
	Language *Language
}

// Apply copies the set fields onto f.
func (p FarmerPatch) Apply(f *Farmer) {
	if p.FullName != nil {
		f.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.Mobile != nil {
		f.Mobile = strings.TrimSpace(*p.Mobile)
	}
	if p.Location != nil {
		f.Location = strings.TrimSpace(*p.Location)
	}
	if p.CropType != nil {
		f.CropType = *p.CropType
	}
	if p.Language != nil {
		f.Language = *p.Language
	}
}

// StatusChange describes a lifecycle transition applied by the store
// together with the expected current status.
type StatusChange struct {
	To               FarmerStatus
	IsActive         *bool
	ApprovedAt       *time.Time
	ApprovedBy       string
	RejectionReason  string
	SuspensionReason string
	// ClearApproval empties ApprovedAt and ApprovedBy.
	ClearApproval bool
	At            time.Time
}

// Apply writes the change onto f.
func (c StatusChange) Apply(f *Farmer) {
	f.Status = c.To
	if c.IsActive != nil {
		f.IsActive = *c.IsActive
	}
	if c.ClearApproval {
		f.ApprovedAt = nil
		f.ApprovedBy = ""
	}
	if c.ApprovedAt != nil {
		t := *c.ApprovedAt
		f.ApprovedAt = &t
		f.ApprovedBy = c.ApprovedBy
	}
	f.RejectionReason = c.RejectionReason
	f.SuspensionReason = c.SuspensionReason
	f.UpdatedAt = c.At
}

// FarmerFilter narrows the admin listing.
type FarmerFilter struct {
	Status FarmerStatus // empty matches all
	Search string       // case-insensitive on name, email, mobile, location
	Offset int
	Limit  int
}

// Matches reports whether f passes the status and search parts of the
// filter.
func (q FarmerFilter) Matches(f Farmer) bool {
	if q.Status != "" && f.Status != q.Status {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(q.Search))
	if s == "" {
		return true
	}
	for _, v := range []string{f.FullName, f.Email, f.Mobile, f.Location} {
		if strings.Contains(strings.ToLower(v), s) {
			return true
		}
	}
	return false
}

// StatusCounts is the per-status registration tally.
type StatusCounts map[FarmerStatus]int

// Total sums all statuses.
func (c StatusCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
