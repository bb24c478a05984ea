package prefs_test

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/receiptwise/internal/localstore"
	"github.com/receiptwise/receiptwise/internal/notification"
	"github.com/receiptwise/receiptwise/internal/prefs"
)

func openStore(t *testing.T, path string) *localstore.Store {
	t.Helper()

	store, err := localstore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestService_Defaults(t *testing.T) {
	t.Parallel()

	store := openStore(t, filepath.Join(t.TempDir(), "prefs.db"))

	svc, err := prefs.NewService(store, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, prefs.ThemeSystem, svc.Appearance().Theme)
	assert.Equal(t, "USD", svc.Appearance().DisplayCurrency)
	assert.True(t, svc.PushEnabled())
	assert.True(t, svc.TypeEnabled(notification.TypeReceiptProcessingCompleted))
}

func TestService_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.db")

	store, err := localstore.Open(path)
	require.NoError(t, err)

	svc, err := prefs.NewService(store, slog.Default())
	require.NoError(t, err)

	require.NoError(t, svc.SetAppearance(prefs.Appearance{
		Theme:           prefs.ThemeDark,
		Locale:          "de-DE",
		DisplayCurrency: "EUR",
	}))
	require.NoError(t, svc.SetPushEnabled(false))
	require.NoError(t, svc.SetTypeEnabled(notification.TypeClaimApproved, false))
	require.NoError(t, store.Close())

	reopened := openStore(t, path)

	svc, err = prefs.NewService(reopened, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, prefs.ThemeDark, svc.Appearance().Theme)
	assert.Equal(t, "EUR", svc.Appearance().DisplayCurrency)
	assert.False(t, svc.PushEnabled())
	assert.False(t, svc.TypeEnabled(notification.TypeClaimApproved))
	assert.True(t, svc.TypeEnabled(notification.TypeClaimRejected))
}

func TestService_UnmuteRestoresType(t *testing.T) {
	t.Parallel()

	store := openStore(t, filepath.Join(t.TempDir(), "prefs.db"))

	svc, err := prefs.NewService(store, slog.Default())
	require.NoError(t, err)

	require.NoError(t, svc.SetTypeEnabled(notification.TypeTeamInvitationSent, false))
	assert.False(t, svc.TypeEnabled(notification.TypeTeamInvitationSent))

	require.NoError(t, svc.SetTypeEnabled(notification.TypeTeamInvitationSent, true))
	assert.True(t, svc.TypeEnabled(notification.TypeTeamInvitationSent))
}
