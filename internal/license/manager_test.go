package license

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensor/internal/store"
	"licensor/pkg/contracts/domain"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), logger)
	require.NoError(t, err)

	require.NoError(t, store.Replace(context.Background(), st, store.CollectionProducts, []domain.Product{
		{ID: "prod-1", Name: "Test Product", CreatedAt: time.Now().UTC()},
	}))

	return NewManager(st, Options{Logger: logger}), st
}

func issueTestLicense(t *testing.T, m *Manager, req IssueRequest) *domain.License {
	t.Helper()
	if req.ProductID == "" {
		req.ProductID = "prod-1"
	}
	if req.DiscordID == "" {
		req.DiscordID = "owner-1"
	}
	lic, err := m.Issue(context.Background(), req)
	require.NoError(t, err)
	return lic
}

func TestIssue(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	lic, err := m.Issue(ctx, IssueRequest{
		ProductID: "prod-1",
		DiscordID: "owner-1",
		Email:     "owner@example.com",
		MaxIPs:    domain.Bounded(2),
		MaxHWIDs:  domain.Unlimited(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, lic.ID)
	assert.NotEmpty(t, lic.Key)
	assert.Equal(t, domain.LicenseStatusActive, lic.Status)
	assert.Empty(t, lic.AllowedIPs)
	assert.Empty(t, lic.AllowedHWIDs)
	assert.Empty(t, lic.SubUserDiscordIDs)
	assert.Zero(t, lic.Validations)
	assert.Nil(t, lic.ExpiresAt)

	stored, err := m.Get(ctx, lic.Key)
	require.NoError(t, err)
	assert.Equal(t, lic.Key, stored.Key)
}

func TestIssueUnknownProduct(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Issue(context.Background(), IssueRequest{
		ProductID: "no-such-product",
		DiscordID: "owner-1",
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestIssueKeysAreUnique(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		lic, err := m.Issue(ctx, IssueRequest{ProductID: "prod-1", DiscordID: "owner-1"})
		require.NoError(t, err)
		assert.False(t, seen[lic.Key])
		seen[lic.Key] = true
	}
}

func TestGetNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Get(context.Background(), "LIC-ZZZZ-ZZZZ-ZZZZ-ZZZZ")
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestGetNormalizesKey(t *testing.T) {
	m, _ := newTestManager(t)
	lic := issueTestLicense(t, m, IssueRequest{})

	got, err := m.Get(context.Background(), "  "+lic.Key+" ")
	require.NoError(t, err)
	assert.Equal(t, lic.Key, got.Key)
}

func TestRenew(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	past := time.Now().Add(-24 * time.Hour)
	lic := issueTestLicense(t, m, IssueRequest{ExpiresAt: &past})
	_, err := m.SetStatus(ctx, lic.Key, domain.LicenseStatusInactive)
	require.NoError(t, err)

	future := time.Now().Add(30 * 24 * time.Hour).UTC()
	renewed, err := m.Renew(ctx, lic.Key, future)
	require.NoError(t, err)

	assert.Equal(t, domain.LicenseStatusActive, renewed.Status)
	require.NotNil(t, renewed.ExpiresAt)
	assert.True(t, renewed.ExpiresAt.Equal(future))
	assert.True(t, renewed.UpdatedAt.After(lic.UpdatedAt) || renewed.UpdatedAt.Equal(lic.UpdatedAt))
}

func TestRenewNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Renew(context.Background(), "LIC-MISSING", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrLicenseNotFound)
}

func TestSetStatus(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	lic := issueTestLicense(t, m, IssueRequest{ExpiresAt: &future})

	updated, err := m.SetStatus(ctx, lic.Key, domain.LicenseStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseStatusInactive, updated.Status)
	// status toggle must not touch expiry
	require.NotNil(t, updated.ExpiresAt)
	assert.True(t, updated.ExpiresAt.Equal(future))

	_, err = m.SetStatus(ctx, lic.Key, domain.LicenseStatus("suspended"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAddSubUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	lic := issueTestLicense(t, m, IssueRequest{DiscordID: "owner-a"})

	updated, err := m.AddSubUser(ctx, lic.Key, "user-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-b"}, updated.SubUserDiscordIDs)

	// duplicate is a conflict
	_, err = m.AddSubUser(ctx, lic.Key, "user-b")
	assert.ErrorIs(t, err, ErrDuplicateSubUser)

	// owner can never be a sub-user of its own license
	_, err = m.AddSubUser(ctx, lic.Key, "owner-a")
	assert.ErrorIs(t, err, ErrOwnerSubUser)

	got, err := m.Get(ctx, lic.Key)
	require.NoError(t, err)
	assert.NotContains(t, got.SubUserDiscordIDs, "owner-a")
}

func TestRemoveSubUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	lic := issueTestLicense(t, m, IssueRequest{})

	_, err := m.AddSubUser(ctx, lic.Key, "user-b")
	require.NoError(t, err)

	updated, err := m.RemoveSubUser(ctx, lic.Key, "user-b")
	require.NoError(t, err)
	assert.Empty(t, updated.SubUserDiscordIDs)

	_, err = m.RemoveSubUser(ctx, lic.Key, "user-b")
	assert.ErrorIs(t, err, ErrSubUserNotFound)
}

func TestPatchIdentity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	lic := issueTestLicense(t, m, IssueRequest{
		MaxIPs:   domain.Bounded(1),
		MaxHWIDs: domain.Bounded(1),
	})

	updated, err := m.PatchIdentity(ctx, lic.Key, "1.2.3.4", "hw-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4"}, updated.AllowedIPs)
	assert.Equal(t, []string{"hw-1"}, updated.AllowedHWIDs)

	// same policy as the validation path: capacity rejection is a conflict
	_, err = m.PatchIdentity(ctx, lic.Key, "5.6.7.8", "")
	kind, ok := IsCapacityError(err)
	require.True(t, ok)
	assert.Equal(t, KindIP, kind)

	// all-or-nothing: a rejected hwid blocks an admissible ip
	lic2 := issueTestLicense(t, m, IssueRequest{
		MaxIPs:   domain.Bounded(5),
		MaxHWIDs: domain.Bounded(0),
	})
	_, err = m.PatchIdentity(ctx, lic2.Key, "9.9.9.9", "hw-x")
	kind, ok = IsCapacityError(err)
	require.True(t, ok)
	assert.Equal(t, KindHWID, kind)

	got, err := m.Get(ctx, lic2.Key)
	require.NoError(t, err)
	assert.Empty(t, got.AllowedIPs)
	assert.Empty(t, got.AllowedHWIDs)

	_, err = m.PatchIdentity(ctx, lic.Key, "", "")
	assert.ErrorIs(t, err, ErrNoEvidence)
}

func TestDelete(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	lic := issueTestLicense(t, m, IssueRequest{})

	require.NoError(t, m.Delete(ctx, lic.Key))

	_, err := m.Get(ctx, lic.Key)
	assert.ErrorIs(t, err, ErrLicenseNotFound)

	assert.ErrorIs(t, m.Delete(ctx, lic.Key), ErrLicenseNotFound)
}

func TestBlacklistReplaceAndRead(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	bl, err := m.Blacklist(ctx)
	require.NoError(t, err)
	assert.Empty(t, bl.DiscordIDs)

	require.NoError(t, m.ReplaceBlacklist(ctx, domain.Blacklist{DiscordIDs: []string{"bad"}}))

	bl, err = m.Blacklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, bl.DiscordIDs)
}

func TestAdminMutationsLeaveAuditTrail(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	lic := issueTestLicense(t, m, IssueRequest{})
	_, err := m.AddSubUser(ctx, lic.Key, "user-b")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, lic.Key))

	entries, err := m.Logs(ctx, LogFilter{LicenseKey: lic.Key})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.EventIssue, entries[0].Event)
	assert.Equal(t, domain.EventSubUserAdd, entries[1].Event)
	assert.Equal(t, domain.EventDelete, entries[2].Event)
	for _, e := range entries {
		assert.Equal(t, domain.OutcomeSuccess, e.Outcome)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	}
}
