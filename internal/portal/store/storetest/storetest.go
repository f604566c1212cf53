// Package storetest holds the behaviour every store driver must share. Driver
// packages call Run from their own tests with a constructor for an empty,
// migrated store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/idx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh store with migrations applied.
type Factory func(t *testing.T) store.Store

var base = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// NewFarmer returns a pending, unverified farmer with unique contact details
// derived from n.
func NewFarmer(n int) domain.Farmer {
	return domain.Farmer{
		ID:           idx.NewPrefixed(idx.PrefixFarmer).String(),
		Email:        fmt.Sprintf("farmer%d@example.in", n),
		Mobile:       fmt.Sprintf("98765%05d", n),
		FullName:     fmt.Sprintf("Farmer Number %d", n),
		PasswordHash: "argon2id$placeholder",
		Location:     "Mysuru",
		CropType:     domain.CropRice,
		Language:     domain.LanguageKannada,
		Status:       domain.StatusPending,
		IsActive:     false,
		RegisteredAt: base.Add(time.Duration(n) * time.Minute),
		UpdatedAt:    base.Add(time.Duration(n) * time.Minute),
	}
}

func NewAdmin(email string, role domain.Role) domain.Admin {
	return domain.Admin{
		ID:           idx.NewPrefixed(idx.PrefixAdmin).String(),
		Email:        email,
		Username:     email,
		PasswordHash: "argon2id$placeholder",
		Role:         role,
		IsActive:     true,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
}

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Farmers", func(t *testing.T) { testFarmers(t, newStore) })
	t.Run("TransitionStatus", func(t *testing.T) { testTransitions(t, newStore) })
	t.Run("ListFarmers", func(t *testing.T) { testListFarmers(t, newStore) })
	t.Run("Admins", func(t *testing.T) { testAdmins(t, newStore) })
	t.Run("Subsidies", func(t *testing.T) { testSubsidies(t, newStore) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newStore) })
	t.Run("MarketPrices", func(t *testing.T) { testMarketPrices(t, newStore) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore) })
}

func testFarmers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.Farmers()

	f := NewFarmer(1)
	require.NoError(t, repo.Create(ctx, f))

	got, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, f.Email, got.Email)
	require.Equal(t, f.Mobile, got.Mobile)
	require.Equal(t, domain.StatusPending, got.Status)
	require.False(t, got.IsActive)
	require.True(t, f.RegisteredAt.Equal(got.RegisteredAt))
	require.Nil(t, got.ApprovedAt)
	require.Nil(t, got.LastLoginAt)

	got, err = repo.GetByEmail(ctx, f.Email)
	require.NoError(t, err)
	require.Equal(t, f.ID, got.ID)

	t.Run("email or mobile lookup", func(t *testing.T) {
		got, err := repo.GetByEmailOrMobile(ctx, "nobody@example.in", f.Mobile)
		require.NoError(t, err)
		require.Equal(t, f.ID, got.ID)

		_, err = repo.GetByEmailOrMobile(ctx, "nobody@example.in", "9000000000")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email or mobile", func(t *testing.T) {
		dup := NewFarmer(2)
		dup.Email = f.Email
		require.ErrorIs(t, repo.Create(ctx, dup), store.ErrAlreadyExists)

		dup = NewFarmer(3)
		dup.Mobile = f.Mobile
		require.ErrorIs(t, repo.Create(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("missing farmer", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "frm_missing")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, repo.RecordLogin(ctx, "frm_missing", base), store.ErrNotFound)
		require.ErrorIs(t, repo.UpdatePasswordHash(ctx, "frm_missing", "x", base), store.ErrNotFound)
	})

	t.Run("profile update", func(t *testing.T) {
		upd := got
		upd.FullName = "Renamed Farmer"
		upd.Location = "Hassan"
		upd.CropType = domain.CropCotton
		upd.UpdatedAt = base.Add(time.Hour)
		require.NoError(t, repo.UpdateProfile(ctx, upd))

		after, err := repo.GetByID(ctx, f.ID)
		require.NoError(t, err)
		require.Equal(t, "Renamed Farmer", after.FullName)
		require.Equal(t, "Hassan", after.Location)
		require.Equal(t, domain.CropCotton, after.CropType)
		require.Equal(t, f.Email, after.Email)
		require.Equal(t, f.PasswordHash, after.PasswordHash)
	})

	t.Run("profile update to a taken mobile", func(t *testing.T) {
		other := NewFarmer(4)
		require.NoError(t, repo.Create(ctx, other))

		upd := got
		upd.Mobile = other.Mobile
		require.ErrorIs(t, repo.UpdateProfile(ctx, upd), store.ErrAlreadyExists)
	})

	t.Run("password and login", func(t *testing.T) {
		require.NoError(t, repo.UpdatePasswordHash(ctx, f.ID, "argon2id$new", base.Add(2*time.Hour)))
		require.NoError(t, repo.RecordLogin(ctx, f.ID, base.Add(3*time.Hour)))

		after, err := repo.GetByID(ctx, f.ID)
		require.NoError(t, err)
		require.Equal(t, "argon2id$new", after.PasswordHash)
		require.NotNil(t, after.LastLoginAt)
		require.True(t, base.Add(3*time.Hour).Equal(*after.LastLoginAt))
	})
}

func testTransitions(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.Farmers()

	f := NewFarmer(1)
	require.NoError(t, repo.Create(ctx, f))

	active := true
	approvedAt := base.Add(time.Hour)
	approved, err := repo.TransitionStatus(ctx, f.ID, []domain.FarmerStatus{domain.StatusPending}, domain.StatusChange{
		To:         domain.StatusApproved,
		IsActive:   &active,
		ApprovedAt: &approvedAt,
		ApprovedBy: "adm_1",
		At:         approvedAt,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, approved.Status)
	require.True(t, approved.IsActive)
	require.Equal(t, "adm_1", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	t.Run("stale from status", func(t *testing.T) {
		_, err := repo.TransitionStatus(ctx, f.ID, []domain.FarmerStatus{domain.StatusPending}, domain.StatusChange{
			To: domain.StatusApproved,
			At: base,
		})
		require.ErrorIs(t, err, store.ErrStateChanged)

		cur, err := repo.GetByID(ctx, f.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusApproved, cur.Status)
	})

	t.Run("suspend keeps approval and sets reason", func(t *testing.T) {
		inactive := false
		got, err := repo.TransitionStatus(ctx, f.ID, []domain.FarmerStatus{domain.StatusApproved}, domain.StatusChange{
			To:               domain.StatusSuspended,
			IsActive:         &inactive,
			SuspensionReason: "fraudulent documents",
			At:               base.Add(2 * time.Hour),
		})
		require.NoError(t, err)
		require.Equal(t, domain.StatusSuspended, got.Status)
		require.False(t, got.IsActive)
		require.Equal(t, "fraudulent documents", got.SuspensionReason)
		require.Equal(t, "adm_1", got.ApprovedBy)

		persisted, err := repo.GetByID(ctx, f.ID)
		require.NoError(t, err)
		require.Equal(t, got.SuspensionReason, persisted.SuspensionReason)
		require.True(t, base.Add(2*time.Hour).Equal(persisted.UpdatedAt))
	})

	t.Run("clear approval", func(t *testing.T) {
		inactive := false
		got, err := repo.TransitionStatus(ctx, f.ID,
			[]domain.FarmerStatus{domain.StatusPending, domain.StatusApproved, domain.StatusRejected, domain.StatusSuspended},
			domain.StatusChange{
				To:              domain.StatusRejected,
				IsActive:        &inactive,
				RejectionReason: "duplicate account",
				ClearApproval:   true,
				At:              base.Add(3 * time.Hour),
			})
		require.NoError(t, err)
		require.Nil(t, got.ApprovedAt)
		require.Empty(t, got.ApprovedBy)
		require.Empty(t, got.SuspensionReason)
		require.Equal(t, "duplicate account", got.RejectionReason)
	})

	t.Run("missing farmer", func(t *testing.T) {
		_, err := repo.TransitionStatus(ctx, "frm_missing", []domain.FarmerStatus{domain.StatusPending}, domain.StatusChange{To: domain.StatusApproved})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testListFarmers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.Farmers()

	var ids []string
	for i := 1; i <= 5; i++ {
		f := NewFarmer(i)
		if i%2 == 0 {
			f.Status = domain.StatusApproved
			f.Location = "Belagavi"
		}
		require.NoError(t, repo.Create(ctx, f))
		ids = append(ids, f.ID)
	}

	all, total, err := repo.List(ctx, domain.FarmerFilter{})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, all, 5)
	require.Equal(t, ids[4], all[0].ID, "newest registration first")
	require.Equal(t, ids[0], all[4].ID)

	page, total, err := repo.List(ctx, domain.FarmerFilter{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID)

	approved, total, err := repo.List(ctx, domain.FarmerFilter{Status: domain.StatusApproved})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	for _, f := range approved {
		require.Equal(t, domain.StatusApproved, f.Status)
	}

	found, total, err := repo.List(ctx, domain.FarmerFilter{Search: "belag"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, found, 2)

	found, total, err = repo.List(ctx, domain.FarmerFilter{Search: "FARMER3@"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, ids[2], found[0].ID)

	_, total, err = repo.List(ctx, domain.FarmerFilter{Search: "100%"})
	require.NoError(t, err)
	require.Zero(t, total)

	empty, total, err := repo.List(ctx, domain.FarmerFilter{Offset: 10, Limit: 5})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Empty(t, empty)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, counts[domain.StatusPending])
	require.Equal(t, 2, counts[domain.StatusApproved])
	require.Zero(t, counts[domain.StatusRejected])
	require.Equal(t, 5, counts.Total())
}

func testAdmins(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.Admins()

	ok, err := repo.ExistsWithRole(ctx, domain.RoleMainAdmin)
	require.NoError(t, err)
	require.False(t, ok)

	a := NewAdmin("root@portal.in", domain.RoleMainAdmin)
	require.NoError(t, repo.Create(ctx, a))
	require.ErrorIs(t, repo.Create(ctx, NewAdmin("root@portal.in", domain.RoleAdmin)), store.ErrAlreadyExists)

	ok, err = repo.ExistsWithRole(ctx, domain.RoleMainAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByEmail(ctx, a.Email)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Equal(t, domain.RoleMainAdmin, got.Role)
	require.False(t, got.MFAEnabled())

	_, err = repo.GetByID(ctx, "adm_missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("mfa lifecycle", func(t *testing.T) {
		require.ErrorIs(t, repo.EnableMFA(ctx, a.ID, base), store.ErrNotFound, "no secret enrolled yet")

		require.NoError(t, repo.SetMFASecret(ctx, a.ID, "JBSWY3DPEHPK3PXP"))
		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got.MFASecret)
		require.False(t, got.MFAEnabled())

		require.NoError(t, repo.EnableMFA(ctx, a.ID, base.Add(time.Minute)))
		got, err = repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, got.MFAEnabled())
		require.Equal(t, "JBSWY3DPEHPK3PXP", *got.MFASecret)

		require.NoError(t, repo.DisableMFA(ctx, a.ID))
		got, err = repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.False(t, got.MFAEnabled())
		require.Nil(t, got.MFASecret)
	})

	t.Run("login and password", func(t *testing.T) {
		require.NoError(t, repo.RecordLogin(ctx, a.ID, base.Add(time.Hour)))
		require.NoError(t, repo.UpdatePasswordHash(ctx, a.ID, "argon2id$rotated", base.Add(time.Hour)))

		got, err := repo.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
		require.Equal(t, "argon2id$rotated", got.PasswordHash)
	})
}

func testSubsidies(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.Subsidies()

	author := NewAdmin("schemes@portal.in", domain.RoleMainAdmin)
	require.NoError(t, s.Admins().Create(ctx, author))

	deadline := base.Add(30 * 24 * time.Hour)
	newSubsidy := func(n int, cat domain.SubsidyCategory, active bool) domain.Subsidy {
		return domain.Subsidy{
			ID:          idx.NewPrefixed(idx.PrefixSubsidy).String(),
			Title:       fmt.Sprintf("Scheme %d", n),
			Description: "Support for smallholders",
			Amount:      25000,
			Eligibility: "Land holding under 2 hectares",
			Category:    cat,
			State:       domain.DefaultSubsidyState,
			Deadline:    &deadline,
			IsActive:    active,
			CreatedBy:   author.ID,
			CreatedAt:   base.Add(time.Duration(n) * time.Minute),
			UpdatedAt:   base.Add(time.Duration(n) * time.Minute),
		}
	}

	seeds := newSubsidy(1, "seeds", true)
	equipment := newSubsidy(2, "equipment", true)
	retired := newSubsidy(3, "seeds", false)
	for _, sb := range []domain.Subsidy{seeds, equipment, retired} {
		require.NoError(t, repo.Create(ctx, sb))
	}

	active, err := repo.List(ctx, true, "")
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, equipment.ID, active[0].ID)

	all, err := repo.List(ctx, false, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	bySeed, err := repo.List(ctx, false, "seeds")
	require.NoError(t, err)
	require.Len(t, bySeed, 2)

	got, err := repo.GetByID(ctx, seeds.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Deadline)
	require.True(t, deadline.Equal(*got.Deadline))
	require.Empty(t, got.ApplicationLink)

	got.Amount = 30000
	got.IsActive = false
	got.ApplicationLink = "https://raitamitra.karnataka.gov.in"
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, got))

	after, err := repo.GetByID(ctx, seeds.ID)
	require.NoError(t, err)
	require.InDelta(t, 30000, after.Amount, 0.001)
	require.False(t, after.IsActive)
	require.Equal(t, "https://raitamitra.karnataka.gov.in", after.ApplicationLink)
	require.Equal(t, author.ID, after.CreatedBy)

	require.NoError(t, repo.Delete(ctx, seeds.ID))
	_, err = repo.GetByID(ctx, seeds.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, seeds.ID), store.ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, seeds), store.ErrNotFound)

	t.Run("unknown author", func(t *testing.T) {
		orphan := newSubsidy(9, "seeds", true)
		orphan.CreatedBy = "adm_missing"
		require.ErrorIs(t, repo.Create(ctx, orphan), store.ErrNotFound)
		_, err := repo.GetByID(ctx, orphan.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testMarketPrices(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.MarketPrices()

	author := NewAdmin("mandi@portal.in", domain.RoleMainAdmin)
	require.NoError(t, s.Admins().Create(ctx, author))

	newPrice := func(n int, commodity, market string, cat domain.PriceCategory, active bool) domain.MarketPrice {
		at := base.Add(time.Duration(n) * time.Minute)
		return domain.MarketPrice{
			ID:        idx.NewPrefixed(idx.PrefixMarketPrice).String(),
			Commodity: commodity,
			Market:    market,
			State:     "Karnataka",
			Category:  cat,
			Unit:      domain.UnitKg,
			Price:     decimal.RequireFromString("32.50"),
			MinPrice:  decimal.RequireFromString("30"),
			MaxPrice:  decimal.RequireFromString("35.75"),
			PriceDate: at,
			IsActive:  active,
			CreatedBy: author.ID,
			CreatedAt: at,
			UpdatedAt: at,
		}
	}

	tomato := newPrice(1, "Tomato", "Bangalore APMC", domain.PriceCategoryVegetable, true)
	mango := newPrice(2, "Mango", "Mysore", domain.PriceCategoryFruit, true)
	ragi := newPrice(3, "Ragi", "Hassan 100%", domain.PriceCategoryGrain, false)
	for _, p := range []domain.MarketPrice{tomato, mango, ragi} {
		require.NoError(t, repo.Create(ctx, p))
	}
	require.ErrorIs(t, repo.Create(ctx, tomato), store.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, tomato.ID)
	require.NoError(t, err)
	require.True(t, got.Price.Equal(tomato.Price), got.Price.String())
	require.True(t, got.MaxPrice.Equal(tomato.MaxPrice))
	require.True(t, tomato.PriceDate.Equal(got.PriceDate))
	require.Empty(t, got.District)
	require.Empty(t, got.UpdatedBy)

	all, err := repo.List(ctx, domain.MarketPriceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, ragi.ID, all[0].ID, "most recently updated first")

	active, err := repo.List(ctx, domain.MarketPriceFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 2)

	fruit, err := repo.List(ctx, domain.MarketPriceFilter{Category: domain.PriceCategoryFruit})
	require.NoError(t, err)
	require.Len(t, fruit, 1)
	require.Equal(t, mango.ID, fruit[0].ID)

	byMarket, err := repo.List(ctx, domain.MarketPriceFilter{Market: "bangalore"})
	require.NoError(t, err)
	require.Len(t, byMarket, 1)

	bySearch, err := repo.List(ctx, domain.MarketPriceFilter{Search: "TOM"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, tomato.ID, bySearch[0].ID)

	wildcard, err := repo.List(ctx, domain.MarketPriceFilter{Market: "%"})
	require.NoError(t, err)
	require.Len(t, wildcard, 1, "wildcards in the filter match literally")

	limited, err := repo.List(ctx, domain.MarketPriceFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)

	got.Price = decimal.RequireFromString("40")
	got.District = "Bangalore Urban"
	got.IsActive = false
	got.UpdatedBy = author.ID
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, got))

	after, err := repo.GetByID(ctx, tomato.ID)
	require.NoError(t, err)
	require.True(t, after.Price.Equal(decimal.NewFromInt(40)))
	require.Equal(t, "Bangalore Urban", after.District)
	require.False(t, after.IsActive)
	require.Equal(t, author.ID, after.UpdatedBy)
	require.Equal(t, author.ID, after.CreatedBy)

	all, err = repo.List(ctx, domain.MarketPriceFilter{})
	require.NoError(t, err)
	require.Equal(t, tomato.ID, all[0].ID)

	missing := newPrice(8, "Onion", "Hubli", domain.PriceCategoryVegetable, true)
	require.ErrorIs(t, repo.Update(ctx, missing), store.ErrNotFound)
	_, err = repo.GetByID(ctx, missing.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("unknown author", func(t *testing.T) {
		orphan := newPrice(9, "Beans", "Hassan", domain.PriceCategoryVegetable, true)
		orphan.CreatedBy = "adm_missing"
		require.ErrorIs(t, repo.Create(ctx, orphan), store.ErrNotFound)
		_, err := repo.GetByID(ctx, orphan.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testNotifications(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	repo := s.Notifications()

	f := NewFarmer(1)
	require.NoError(t, s.Farmers().Create(ctx, f))
	author := NewAdmin("notices@portal.in", domain.RoleMainAdmin)
	require.NoError(t, s.Admins().Create(ctx, author))

	n := domain.Notification{
		ID:              idx.NewPrefixed(idx.PrefixNotification).String(),
		Title:           "Monsoon advisory",
		Message:         "Sow after the first heavy rain",
		Type:            domain.NotificationInfo,
		Priority:        domain.PriorityMedium,
		Audience:        domain.AudienceLocation,
		TargetLocations: []string{"Mysuru", "Mandya"},
		IsActive:        true,
		CreatedBy:       author.ID,
		CreatedAt:       base,
	}
	require.NoError(t, repo.Create(ctx, n))

	later := n
	later.ID = idx.NewPrefixed(idx.PrefixNotification).String()
	later.Audience = domain.AudienceAll
	later.TargetLocations = nil
	later.CreatedAt = base.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, later))

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Mysuru", "Mandya"}, got.TargetLocations)
	require.Equal(t, domain.AudienceLocation, got.Audience)

	list, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, later.ID, list[0].ID)

	require.NoError(t, repo.Deactivate(ctx, later.ID))
	list, err = repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.ErrorIs(t, repo.Deactivate(ctx, "ntf_missing"), store.ErrNotFound)

	t.Run("read receipts keep the first read", func(t *testing.T) {
		first := base.Add(2 * time.Hour)
		require.NoError(t, repo.MarkRead(ctx, domain.NotificationRead{NotificationID: n.ID, FarmerID: f.ID, ReadAt: first}))
		require.NoError(t, repo.MarkRead(ctx, domain.NotificationRead{NotificationID: n.ID, FarmerID: f.ID, ReadAt: first.Add(time.Hour)}))

		reads, err := repo.ReadIDs(ctx, f.ID)
		require.NoError(t, err)
		require.Len(t, reads, 1)
		require.True(t, first.Equal(reads[n.ID]))

		err = repo.MarkRead(ctx, domain.NotificationRead{NotificationID: "ntf_missing", FarmerID: f.ID, ReadAt: first})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown author", func(t *testing.T) {
		orphan := n
		orphan.ID = idx.NewPrefixed(idx.PrefixNotification).String()
		orphan.CreatedBy = "adm_missing"
		require.ErrorIs(t, repo.Create(ctx, orphan), store.ErrNotFound)
		_, err := repo.GetByID(ctx, orphan.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func testTransactions(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	committed := NewFarmer(1)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Farmers().Create(ctx, committed)
	}))
	_, err := s.Farmers().GetByID(ctx, committed.ID)
	require.NoError(t, err)

	boom := errors.New("boom")
	rolledBack := NewFarmer(2)
	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Farmers().Create(ctx, rolledBack); err != nil {
			return err
		}
		got, err := tx.Farmers().GetByID(ctx, rolledBack.ID)
		if err != nil {
			return err
		}
		if got.Email != rolledBack.Email {
			return fmt.Errorf("read inside tx returned %q", got.Email)
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = s.Farmers().GetByID(ctx, rolledBack.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Farmers().Create(ctx, NewFarmer(3)))
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

	_, total, err := s.Farmers().List(ctx, domain.FarmerFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
}
