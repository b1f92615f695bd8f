package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	vals  map[string]string
	reads int
	err   error
}

func newMemRepo() *memRepo { return &memRepo{vals: map[string]string{}} }

func (m *memRepo) All(context.Context) (map[string]string, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(m.vals))
	for k, v := range m.vals {
		out[k] = v
	}
	return out, nil
}

func (m *memRepo) Set(_ context.Context, key, value, _ string) error {
	m.vals[key] = value
	return nil
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, time.Minute, zap.NewNop())
}

func TestService_Defaults(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	assert.True(t, svc.Enabled(ctx))

	c, err := svc.Company(ctx)
	require.NoError(t, err)
	assert.Equal(t, "БЕБИ ГРУП ЕООД", c.Name)
	assert.Equal(t, "206222651", c.TaxID)
	assert.Empty(t, c.LogoURL)
	assert.Empty(t, c.SignatureURL)
	assert.Empty(t, c.BadgeURL)
}

func TestService_SetSanitizes(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, KeyCompanyName, "  <b>Acme</b>\n&amp;  Co\t", "admin"))
	require.NoError(t, svc.Set(ctx, KeyLogoURL, "javascript:alert(1)", "admin"))
	require.NoError(t, svc.Set(ctx, KeyBadgeURL, "https://cdn.example/badge.png", "admin"))

	assert.Equal(t, "Acme & Co", repo.vals[KeyCompanyName])
	assert.Equal(t, "", repo.vals[KeyLogoURL])
	assert.Equal(t, "https://cdn.example/badge.png", repo.vals[KeyBadgeURL])
}

func TestService_SetUnknownKey(t *testing.T) {
	svc := newTestService(newMemRepo())
	err := svc.Set(context.Background(), "company.motto", "x", "admin")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestService_SaveUncheckedToggleDisables(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.True(t, svc.Enabled(ctx))
	require.NoError(t, svc.Save(ctx, map[string]string{KeyCompanyCity: "Sofia"}, "admin"))

	assert.False(t, svc.Enabled(ctx))
	assert.Equal(t, "no", repo.vals[KeyEnable])
	assert.Equal(t, "Sofia", repo.vals[KeyCompanyCity])
	_, touched := repo.vals[KeyCompanyName]
	assert.False(t, touched)

	require.NoError(t, svc.Save(ctx, map[string]string{KeyEnable: "yes"}, "admin"))
	assert.True(t, svc.Enabled(ctx))
}

func TestService_SaveRejectsUnknownBeforeWriting(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	err := svc.Save(context.Background(), map[string]string{KeyCompanyCity: "Sofia", "bogus": "1"}, "admin")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Empty(t, repo.vals)
}

func TestService_WriteFromOtherInstanceSeenImmediately(t *testing.T) {
	repo := newMemRepo()
	issuerSide := newTestService(repo)
	adminSide := newTestService(repo)
	ctx := context.Background()

	require.True(t, issuerSide.Enabled(ctx))
	_, err := issuerSide.Company(ctx)
	require.NoError(t, err)

	require.NoError(t, adminSide.Save(ctx, map[string]string{}, "admin"))
	assert.Equal(t, "no", repo.vals[KeyEnable])
	assert.False(t, issuerSide.Enabled(ctx))

	require.NoError(t, adminSide.Set(ctx, KeyCompanyPhone, "123", "cli"))
	c, err := issuerSide.Company(ctx)
	require.NoError(t, err)
	assert.Equal(t, "123", c.Phone)
}

func TestService_ServesLastSnapshotWhileRepoFails(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, KeyEnable, "no", "admin"))
	require.NoError(t, svc.Set(ctx, KeyCompanyCity, "Sofia", "admin"))
	require.False(t, svc.Enabled(ctx))

	repo.err = errors.New("db down")
	assert.False(t, svc.Enabled(ctx))
	c, err := svc.Company(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sofia", c.City)
}

func TestService_EnabledOnStorageError(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("db down")
	svc := newTestService(repo)

	assert.True(t, svc.Enabled(context.Background()))
	_, err := svc.Company(context.Background())
	assert.Error(t, err)
}
