package store

import (
	"context"
	"errors"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStateChanged is returned by TransitionStatus when the farmer is no
	// longer in one of the expected statuses.
	ErrStateChanged = errors.New("store: state changed")
)

// Store is the root data access interface. Drivers (sqlite, jsonfile)
// implement it and expose sub-repositories; repositories are only reachable
// through a Store or a Tx, so transactions cannot nest.
type Store interface {
	Farmers() Farmers
	Admins() Admins
	Subsidies() Subsidies
	Notifications() Notifications
	MarketPrices() MarketPrices

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Farmers interface {
	// Create inserts a farmer. Returns ErrAlreadyExists when the email or
	// mobile is taken.
	Create(ctx context.Context, f domain.Farmer) error

	GetByID(ctx context.Context, id string) (domain.Farmer, error)

	// GetByEmail matches the lowercase email.
	GetByEmail(ctx context.Context, email string) (domain.Farmer, error)

	// GetByEmailOrMobile returns the first farmer holding either value.
	GetByEmailOrMobile(ctx context.Context, email, mobile string) (domain.Farmer, error)

	// UpdateProfile writes the profile fields and updated_at of f.
	// Returns ErrAlreadyExists when the new mobile is taken.
	UpdateProfile(ctx context.Context, f domain.Farmer) error

	// UpdatePasswordHash replaces the hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error

	// TransitionStatus applies change only when the farmer's current status
	// is in from. Returns ErrStateChanged otherwise, and the updated farmer
	// on success.
	TransitionStatus(ctx context.Context, id string, from []domain.FarmerStatus, change domain.StatusChange) (domain.Farmer, error)

	// RecordLogin sets last_login_at.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	// List returns a page of farmers, newest registration first, and the
	// total matching the filter.
	List(ctx context.Context, filter domain.FarmerFilter) ([]domain.Farmer, int, error)

	// CountByStatus tallies every farmer by status.
	CountByStatus(ctx context.Context) (domain.StatusCounts, error)
}

type Admins interface {
	Create(ctx context.Context, a domain.Admin) error
	GetByID(ctx context.Context, id string) (domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (domain.Admin, error)

	// ExistsWithRole reports whether any admin holds role.
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)

	RecordLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error

	// SetMFASecret stores a pending TOTP secret without enabling it.
	SetMFASecret(ctx context.Context, id, secret string) error

	// EnableMFA stamps mfa_enabled_at.
	EnableMFA(ctx context.Context, id string, at time.Time) error

	// DisableMFA clears both the secret and mfa_enabled_at.
	DisableMFA(ctx context.Context, id string) error
}

type Subsidies interface {
	// Create returns ErrNotFound when CreatedBy is not an existing admin.
	Create(ctx context.Context, s domain.Subsidy) error
	GetByID(ctx context.Context, id string) (domain.Subsidy, error)
	Update(ctx context.Context, s domain.Subsidy) error
	Delete(ctx context.Context, id string) error

	// List returns subsidies newest first. activeOnly hides inactive rows;
	// an empty category matches all.
	List(ctx context.Context, activeOnly bool, category domain.SubsidyCategory) ([]domain.Subsidy, error)
}

type Notifications interface {
	// Create returns ErrNotFound when CreatedBy is not an existing admin.
	Create(ctx context.Context, n domain.Notification) error
	GetByID(ctx context.Context, id string) (domain.Notification, error)

	// List returns notifications newest first.
	List(ctx context.Context, activeOnly bool) ([]domain.Notification, error)

	// Deactivate clears is_active.
	Deactivate(ctx context.Context, id string) error

	// MarkRead records a receipt; repeating it keeps the first read_at.
	MarkRead(ctx context.Context, r domain.NotificationRead) error

	// ReadIDs returns the ids of notifications farmerID has read.
	ReadIDs(ctx context.Context, farmerID string) (map[string]time.Time, error)
}

type MarketPrices interface {
	// Create returns ErrNotFound when CreatedBy is not an existing admin.
	Create(ctx context.Context, p domain.MarketPrice) error
	GetByID(ctx context.Context, id string) (domain.MarketPrice, error)

	// Update writes every field except id, created_by and created_at.
	Update(ctx context.Context, p domain.MarketPrice) error

	// List returns the most recently updated prices first.
	List(ctx context.Context, filter domain.MarketPriceFilter) ([]domain.MarketPrice, error)
}
