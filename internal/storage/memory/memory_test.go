// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/remessasegura/backend/internal/core"
)

func TestUsers_CreateAndFind(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	id, err := repos.Users.Create(ctx, core.User{Name: "Ana", Email: " Ana@Example.com ", Active: true}, core.RoleAdmin)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u, err := repos.Users.FindByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if u.ID != id || u.Email != "ana@example.com" {
		t.Errorf("unexpected user %+v", u)
	}

	roles, _ := repos.Permissions.CodesByUser(ctx, id)
	if len(roles) != 1 || roles[0] != core.RoleAdmin {
		t.Errorf("expected [ADMIN], got %v", roles)
	}

	if _, err := repos.Users.Create(ctx, core.User{Email: "ana@EXAMPLE.com"}, core.RolePortal); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}

	exists, err := repos.Users.ExistsByEmail(ctx, "nobody@example.com")
	if err != nil || exists {
		t.Errorf("expected unknown email to not exist, got %v %v", exists, err)
	}
}

func TestResetTokens_RedeemIsSingleUse(t *testing.T) {
	store := New()
	repos := store.Repositories()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id, _ := repos.Users.Create(ctx, core.User{Email: "a@b.c", PasswordHash: "old"}, "")
	if err := repos.ResetTokens.Create(ctx, core.ResetToken{UserID: id, TokenHash: "h", ExpiresAt: now.Add(30 * time.Minute)}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got, err := repos.ResetTokens.FindValidUser(ctx, "h", now); err != nil || got != id {
		t.Fatalf("FindValidUser = %v, %v", got, err)
	}
	if err := repos.ResetTokens.Redeem(ctx, "h", now, "new"); err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if err := repos.ResetTokens.Redeem(ctx, "h", now, "newer"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected second redeem to fail, got %v", err)
	}

	u, _ := repos.Users.FindByEmail(ctx, "a@b.c")
	if u.PasswordHash != "new" {
		t.Errorf("expected password hash from first redeem, got %q", u.PasswordHash)
	}
}

func TestResetTokens_ConcurrentRedeem(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	now := time.Now()

	id, _ := repos.Users.Create(ctx, core.User{Email: "a@b.c"}, "")
	repos.ResetTokens.Create(ctx, core.ResetToken{UserID: id, TokenHash: "h", ExpiresAt: now.Add(time.Minute)})

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = repos.ResetTokens.Redeem(ctx, "h", now, "x")
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful redeem, got %d", ok)
	}
}

func TestResetTokens_ExpiryAndPurge(t *testing.T) {
	store := New()
	repos := store.Repositories()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id, _ := repos.Users.Create(ctx, core.User{Email: "a@b.c"}, "")
	repos.ResetTokens.Create(ctx, core.ResetToken{UserID: id, TokenHash: "old", ExpiresAt: now})
	repos.ResetTokens.Create(ctx, core.ResetToken{UserID: id, TokenHash: "live", ExpiresAt: now.Add(time.Hour)})

	if _, err := repos.ResetTokens.FindValidUser(ctx, "old", now); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected token expiring at now to be invalid, got %v", err)
	}

	purged, err := repos.ResetTokens.PurgeExpired(ctx, now.Add(time.Second))
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if purged != 1 || store.TokenCount() != 1 {
		t.Errorf("expected 1 purged and 1 kept, got %d purged, %d kept", purged, store.TokenCount())
	}
}

func TestNews_Ordering(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	day := func(d int) *time.Time {
		ts := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	one, two := 1, 2

	repos.News.Create(ctx, core.News{Slug: "a", Published: true, PublishedAt: day(1), Featured: true, FeaturedOrder: &two})
	b, _ := repos.News.Create(ctx, core.News{Slug: "b", Published: true, PublishedAt: day(3), Featured: true, FeaturedOrder: &one})
	repos.News.Create(ctx, core.News{Slug: "c", Published: true})
	repos.News.Create(ctx, core.News{Slug: "draft", Published: false, PublishedAt: day(4)})

	list, _ := repos.News.ListPublished(ctx)
	if len(list) != 3 || list[0].Slug != "b" || list[2].Slug != "c" {
		t.Errorf("unexpected published order: %v", slugs(list))
	}

	highlights, _ := repos.News.Highlights(ctx, 5)
	if len(highlights) != 2 || highlights[0].Slug != "b" {
		t.Errorf("unexpected highlights: %v", slugs(highlights))
	}

	repos.News.IncrementViews(ctx, b.ID)
	mostRead, _ := repos.News.MostRead(ctx, 1)
	if len(mostRead) != 1 || mostRead[0].Slug != "b" {
		t.Errorf("unexpected most read: %v", slugs(mostRead))
	}

	if _, err := repos.News.BySlug(ctx, "draft"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected draft to be hidden by slug, got %v", err)
	}
	if _, err := repos.News.Create(ctx, core.News{Slug: "a"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected slug conflict, got %v", err)
	}
}

func TestNews_UpdateKeepsViews(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	n, _ := repos.News.Create(ctx, core.News{Slug: "a", Title: "old"})
	repos.News.IncrementViews(ctx, n.ID)

	updated, err := repos.News.Update(ctx, n.ID, core.News{Slug: "a", Title: "new"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "new" || updated.Views != 1 || updated.UpdatedAt.IsZero() {
		t.Errorf("unexpected update result %+v", updated)
	}
	if err := repos.News.Delete(ctx, n.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repos.News.Delete(ctx, n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestOccurrences_CreateAndPatch(t *testing.T) {
	store := New()
	repos := store.Repositories()
	ctx := context.Background()
	bank := store.AddBank("001", "Banco do Brasil")

	note := "see manual"
	_, err := repos.Occurrences.Create(ctx, core.OccurrenceReason{BankID: bank.ID, Occurrence: "02", Reason: "A1", Description: "first", Note: &note})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repos.Occurrences.Create(ctx, core.OccurrenceReason{BankID: bank.ID, Occurrence: "02", Reason: "A1"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	key := core.OccurrenceReasonKey{BankID: bank.ID, Occurrence: "02", Reason: "A1"}
	desc := "second"
	updated, err := repos.Occurrences.Update(ctx, key, core.OccurrenceReasonPatch{Description: &desc})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Description != "second" || updated.Note == nil || *updated.Note != "see manual" {
		t.Errorf("expected description replaced and note kept, got %+v", updated)
	}

	list, _ := repos.Occurrences.List(ctx, bank.ID, "02")
	if len(list) != 1 {
		t.Errorf("expected 1 reason, got %d", len(list))
	}
}

func TestBanks_ListOrdered(t *testing.T) {
	store := New()
	store.AddBank("237", "Bradesco")
	store.AddBank("001", "Banco do Brasil")

	banks, _ := store.Repositories().Banks.List(context.Background())
	if len(banks) != 2 || banks[0].Number != "001" {
		t.Errorf("expected banks ordered by number, got %+v", banks)
	}
}

func slugs(list []core.News) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.Slug
	}
	return out
}
