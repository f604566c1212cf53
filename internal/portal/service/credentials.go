package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/agriconnect/farmerportal/pkg/idx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// NewFarmer is everything needed to create a farmer record. The lifecycle
// fields are chosen by AccountService.Register.
type NewFarmer struct {
	RegisterInput

	Status     domain.FarmerStatus
	IsActive   bool
	IsVerified bool
	ApprovedAt *time.Time
}

// Credentials persists farmer records and owns every password hash write.
type Credentials struct {
	Store store.Store
	Now   func() time.Time
}

func (c *Credentials) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Create hashes the password and inserts the farmer. A taken email or mobile
// returns ErrConflict.
func (c *Credentials) Create(ctx context.Context, in NewFarmer) (domain.Farmer, error) {
	if reason := portalsdk.CheckPassword(in.Password); reason != "" {
		return domain.Farmer{}, invalidField("password", reason)
	}

	email := domain.NormalizeEmail(in.Email)
	mobile := strings.TrimSpace(in.Mobile)
	if _, err := c.Store.Farmers().GetByEmailOrMobile(ctx, email, mobile); err == nil {
		return domain.Farmer{}, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Farmer{}, fmt.Errorf("lookup farmer: %w", err)
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.Farmer{}, fmt.Errorf("hash password: %w", err)
	}

	lang := in.Language
	if lang == "" {
		lang = domain.LanguageEnglish
	}
	now := c.now()
	f := domain.Farmer{
		ID:           idx.NewPrefixed(idx.PrefixFarmer).String(),
		Email:        email,
		Mobile:       mobile,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Location:     strings.TrimSpace(in.Location),
		CropType:     in.CropType,
		Language:     lang,
		Status:       in.Status,
		IsActive:     in.IsActive,
		IsVerified:   in.IsVerified,
		RegisteredAt: now,
		ApprovedAt:   in.ApprovedAt,
		UpdatedAt:    now,
	}

	if err := c.Store.Farmers().Create(ctx, f); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Farmer{}, ErrConflict
		}
		return domain.Farmer{}, fmt.Errorf("create farmer: %w", err)
	}
	return f, nil
}

func (c *Credentials) FindByID(ctx context.Context, id string) (domain.Farmer, error) {
	return notFound(c.Store.Farmers().GetByID(ctx, id))
}

func (c *Credentials) FindByEmail(ctx context.Context, email string) (domain.Farmer, error) {
	return notFound(c.Store.Farmers().GetByEmail(ctx, domain.NormalizeEmail(email)))
}

func (c *Credentials) FindByEmailOrMobile(ctx context.Context, email, mobile string) (domain.Farmer, error) {
	return notFound(c.Store.Farmers().GetByEmailOrMobile(ctx, domain.NormalizeEmail(email), strings.TrimSpace(mobile)))
}

// Update applies the profile patch. Status, verification and the password
// hash cannot be reached through a patch.
func (c *Credentials) Update(ctx context.Context, id string, patch domain.FarmerPatch) (domain.Farmer, error) {
	f, err := c.FindByID(ctx, id)
	if err != nil {
		return domain.Farmer{}, err
	}
	patch.Apply(&f)
	f.UpdatedAt = c.now()

	if err := c.Store.Farmers().UpdateProfile(ctx, f); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.Farmer{}, ErrConflict
		case errors.Is(err, store.ErrNotFound):
			return domain.Farmer{}, ErrNotFound
		}
		return domain.Farmer{}, fmt.Errorf("update farmer: %w", err)
	}
	return f, nil
}

// ChangePassword re-hashes after checking the current password.
func (c *Credentials) ChangePassword(ctx context.Context, id, current, next string) error {
	f, err := c.FindByID(ctx, id)
	if err != nil {
		return err
	}
	ok, err := c.VerifyPassword(current, f.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if reason := portalsdk.CheckPassword(next); reason != "" {
		return invalidField("newPassword", reason)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := c.Store.Farmers().UpdatePasswordHash(ctx, id, hash, c.now()); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	slogx.FromContext(ctx).Info("farmer password changed", slog.String("farmer_id", id))
	return nil
}

// VerifyPassword compares in constant time. Only a malformed hash is an
// error.
func (c *Credentials) VerifyPassword(plain, hash string) (bool, error) {
	ok, err := cryptox.VerifyPassword(plain, hash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return ok, nil
}

var dummy struct {
	once sync.Once
	hash string
}

// burnVerify spends the same work as a real verification so unknown emails
// are not faster to reject.
func burnVerify(plain string) {
	dummy.once.Do(func() {
		dummy.hash, _ = cryptox.HashPassword("not-a-real-password")
	})
	if dummy.hash != "" {
		_, _ = cryptox.VerifyPassword(plain, dummy.hash)
	}
}

// upgradeHash replaces a legacy hash after a successful login. Failures are
// logged and do not fail the login.
func (c *Credentials) upgradeHash(ctx context.Context, f domain.Farmer, plain string) {
	if !cryptox.NeedsRehash(f.PasswordHash) {
		return
	}
	log := slogx.FromContext(ctx)
	hash, err := cryptox.HashPassword(plain)
	if err == nil {
		err = c.Store.Farmers().UpdatePasswordHash(ctx, f.ID, hash, c.now())
	}
	if err != nil {
		log.Error("legacy hash upgrade failed", slog.String("farmer_id", f.ID), slog.Any("error", err))
		return
	}
	log.Info("legacy password hash upgraded", slog.String("farmer_id", f.ID))
}

func notFound[T any](v T, err error) (T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return v, ErrNotFound
	}
	return v, err
}
