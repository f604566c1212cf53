package service

import (
	"context"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/stretchr/testify/require"
)

func TestSubsidies(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, true)
	ctx := context.Background()
	svc := &SubsidyService{Store: fx.store, Now: fx.clock.Now}
	admin := fx.seedAdmin(t, "schemes@portal.in", "admin-pass-1", domain.RoleMainAdmin)

	past := fx.clock.Now().Add(-24 * time.Hour)
	future := fx.clock.Now().Add(30 * 24 * time.Hour)

	drip, err := svc.Create(ctx, domain.Subsidy{
		Title: "Drip irrigation", Description: "90% subsidy on drip kits", Amount: 45000,
		Eligibility: "Small and marginal farmers", Category: "irrigation", Deadline: &future,
	}, admin.ID)
	require.NoError(t, err)
	require.True(t, drip.IsActive)
	require.Equal(t, domain.DefaultSubsidyState, drip.State)
	require.Equal(t, admin.ID, drip.CreatedBy)

	fx.clock.Advance(time.Minute)
	_, err = svc.Create(ctx, domain.Subsidy{
		Title: "Seed kit", Description: "Certified paddy seed", Eligibility: "All", Category: "seeds", Deadline: &past,
	}, admin.ID)
	require.NoError(t, err)

	fx.clock.Advance(time.Minute)
	tractor, err := svc.Create(ctx, domain.Subsidy{
		Title: "Tractor loan", Description: "Interest subvention", Eligibility: "All", Category: "loan", State: "Kerala",
	}, admin.ID)
	require.NoError(t, err)
	require.Equal(t, "Kerala", tractor.State)

	open, err := svc.ListOpen(ctx, "")
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, tractor.ID, open[0].ID)

	tractor, err = svc.Toggle(ctx, tractor.ID)
	require.NoError(t, err)
	require.False(t, tractor.IsActive)

	open, err = svc.ListOpen(ctx, "irrigation")
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, drip.ID, open[0].ID)

	all, err := svc.ListAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	updated, err := svc.Update(ctx, drip.ID, domain.Subsidy{
		Title: "Drip irrigation 2024", Description: "Revised", Amount: 50000,
		Eligibility: "Small farmers", Category: "irrigation",
	})
	require.NoError(t, err)
	require.Equal(t, admin.ID, updated.CreatedBy)
	require.True(t, updated.IsActive)
	require.Equal(t, drip.CreatedAt, updated.CreatedAt)

	_, err = svc.Update(ctx, "sub_missing", updated)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, domain.Subsidy{Title: "Orphan", Category: "seeds"}, "adm_missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, drip.ID))
	require.ErrorIs(t, svc.Delete(ctx, drip.ID), ErrNotFound)
	_, err = svc.Get(ctx, drip.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNotifications(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, true)
	ctx := context.Background()
	svc := &NotificationService{Store: fx.store, Now: fx.clock.Now}
	admin := fx.seedAdmin(t, "notices@portal.in", "admin-pass-1", domain.RoleMainAdmin)

	approved := fx.approved(t, 1)
	pending := fx.register(t, 2)

	all, err := svc.Broadcast(ctx, domain.Notification{Title: "Welcome", Message: "Portal is live"}, admin.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AudienceAll, all.Audience)
	require.Equal(t, domain.NotificationInfo, all.Type)
	require.Equal(t, domain.PriorityMedium, all.Priority)

	fx.clock.Advance(time.Minute)
	onlyApproved, err := svc.Broadcast(ctx, domain.Notification{Title: "Prices", Message: "Mandi rates updated", Audience: domain.AudienceApproved}, admin.ID)
	require.NoError(t, err)

	fx.clock.Advance(time.Minute)
	cotton, err := svc.Broadcast(ctx, domain.Notification{Title: "Pests", Message: "Bollworm alert", Audience: domain.AudienceCrop, TargetCrops: []string{"cotton"}}, admin.ID)
	require.NoError(t, err)

	soon := fx.clock.Now().Add(time.Hour)
	fx.clock.Advance(time.Minute)
	_, err = svc.Broadcast(ctx, domain.Notification{Title: "Camp", Message: "Soil testing today", ExpiresAt: &soon}, admin.ID)
	require.NoError(t, err)

	list, unread, err := svc.ForFarmer(ctx, approved)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, 3, unread)

	list, _, err = svc.ForFarmer(ctx, pending)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.MarkRead(ctx, approved, onlyApproved.ID))
	require.NoError(t, svc.MarkRead(ctx, approved, onlyApproved.ID))
	require.ErrorIs(t, svc.MarkRead(ctx, pending, onlyApproved.ID), ErrNotFound)
	require.ErrorIs(t, svc.MarkRead(ctx, approved, cotton.ID), ErrNotFound)
	require.ErrorIs(t, svc.MarkRead(ctx, approved, "ntf_missing"), ErrNotFound)

	list, unread, err = svc.ForFarmer(ctx, approved)
	require.NoError(t, err)
	require.Equal(t, 2, unread)
	for _, n := range list {
		require.Equal(t, n.ID == onlyApproved.ID, n.Read, n.Title)
	}

	fx.clock.Advance(2 * time.Hour)
	require.NoError(t, svc.Deactivate(ctx, all.ID))
	require.ErrorIs(t, svc.Deactivate(ctx, "ntf_missing"), ErrNotFound)

	list, unread, err = svc.ForFarmer(ctx, approved)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Zero(t, unread)

	everything, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, everything, 4)
}

func TestStats(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, true)
	ctx := context.Background()

	var last domain.Farmer
	for n := range 6 {
		fx.clock.Advance(time.Minute)
		last = fx.register(t, n+1)
	}
	fx.clock.Advance(time.Minute)
	fx.approved(t, 10)
	rejected := fx.register(t, 11)
	_, err := fx.accounts.Reject(ctx, rejected.ID, "incomplete")
	require.NoError(t, err)

	st, err := (&StatsService{Store: fx.store}).Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, st.Counts.Total())
	require.Equal(t, 6, st.Counts[domain.StatusPending])
	require.Equal(t, 1, st.Counts[domain.StatusApproved])
	require.Equal(t, 1, st.Counts[domain.StatusRejected])
	require.Zero(t, st.Counts[domain.StatusSuspended])
	require.Len(t, st.Recent, 5)
	require.Contains(t, []string{st.Recent[0].ID, st.Recent[1].ID, st.Recent[2].ID}, last.ID)
}
