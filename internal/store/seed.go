package store

import (
	"context"
	"time"

	"github.com/bekirdag/keydash/internal/identity"
	"github.com/bekirdag/keydash/internal/keyservice"
)

// SeedDemo fills the store with a small organization and a handful of keys
// covering every optional-field combination the key table renders.
func (s *Store) SeedDemo(ctx context.Context, adminUserID string, now time.Time) error {
	members := []identity.Member{
		{UserID: adminUserID, Identifier: "demo@keydash.dev", FirstName: "Demo", LastName: "Admin", Role: identity.RoleAdmin, CreatedAt: now.Add(-90 * 24 * time.Hour)},
		{UserID: "user_ada", Identifier: "ada@keydash.dev", FirstName: "Ada", LastName: "Lovelace", Role: identity.RoleAdmin, CreatedAt: now.Add(-60 * 24 * time.Hour)},
		{UserID: "user_grace", Identifier: "grace@keydash.dev", FirstName: "Grace", LastName: "Hopper", Role: identity.RoleBasicMember, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{UserID: "user_linus", Identifier: "linus@contractor.io", Role: identity.RoleGuestMember, CreatedAt: now.Add(-7 * 24 * time.Hour)},
	}
	for _, m := range members {
		if err := s.AddMember(ctx, m); err != nil {
			return err
		}
	}

	invitations := []identity.Invitation{
		{ID: "inv_pending", EmailAddress: "new.hire@keydash.dev", Role: identity.RoleBasicMember, Status: identity.InvitationPending, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "inv_accepted", EmailAddress: "grace@keydash.dev", Role: identity.RoleBasicMember, Status: identity.InvitationAccepted, CreatedAt: now.Add(-31 * 24 * time.Hour)},
		{ID: "inv_revoked", EmailAddress: "old@keydash.dev", Role: identity.RoleAdmin, Status: identity.InvitationRevoked, CreatedAt: now.Add(-45 * 24 * time.Hour)},
	}
	for _, inv := range invitations {
		if err := s.AddInvitation(ctx, inv); err != nil {
			return err
		}
	}

	str := func(v string) *string { return &v }
	num := func(v int64) *int64 { return &v }
	at := func(d time.Duration) *time.Time { t := now.Add(d); return &t }
	keys := []keyservice.Key{
		{
			ID: "key_prod", Start: "kd_3ZpQ", CreatedAt: now.Add(-40 * 24 * time.Hour),
			OwnerID: str(adminUserID), Name: str("production"),
			RatelimitType: str("fast"), RatelimitLimit: num(100), RatelimitRefillRate: num(10), RatelimitRefillInterval: num(1000),
			RemainingRequests: num(1250000),
		},
		{
			ID: "key_ci", Start: "kd_9xLm", CreatedAt: now.Add(-10 * 24 * time.Hour),
			Expires: at(time.Hour), Name: str("ci pipeline"), RemainingRequests: num(0),
		},
		{
			ID: "key_trial", Start: "kd_Ab12", CreatedAt: now.Add(-3 * 24 * time.Hour),
			Expires: at(14 * 24 * time.Hour), OwnerID: str("user_grace"),
			RatelimitType: str("consistent"), RatelimitLimit: num(10), RatelimitRefillRate: num(1), RatelimitRefillInterval: num(60000),
		},
		{
			ID: "key_bare", Start: "kd_0000", CreatedAt: now.Add(-time.Hour),
		},
	}
	for _, k := range keys {
		if err := s.AddKey(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
