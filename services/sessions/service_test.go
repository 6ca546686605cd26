package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"sharestream/models"
)

func TestPutGetRoundTrip(t *testing.T) {
	svc, err := NewService(afero.NewMemMapFs(), "/data", time.Hour)
	require.NoError(t, err)

	cred := models.Credential{AccessToken: "wst", StickyCookie: "php"}
	require.NoError(t, svc.Put("token-1", cred, 0))

	got, ok := svc.Get("token-1")
	require.True(t, ok)
	require.Equal(t, cred, got)
}

func TestGetUnknownToken(t *testing.T) {
	svc, err := NewService(afero.NewMemMapFs(), "", time.Hour)
	require.NoError(t, err)

	_, ok := svc.Get("nope")
	require.False(t, ok)
	_, ok = svc.Get("")
	require.False(t, ok)
}

func TestExpiredTokenIsAbsent(t *testing.T) {
	svc, err := NewService(afero.NewMemMapFs(), "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.Put("short", models.Credential{AccessToken: "wst"}, time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := svc.Get("short")
	require.False(t, ok)
	require.Equal(t, 0, svc.Count(), "expired entry should be removed on read")
}

func TestPersistenceAcrossRestart(t *testing.T) {
	fs := afero.NewMemMapFs()

	svc, err := NewService(fs, "/data", time.Hour)
	require.NoError(t, err)
	cred := models.Credential{AccessToken: "wst-persisted"}
	require.NoError(t, svc.Put("token-1", cred, time.Hour))
	require.NoError(t, svc.Put("stale", models.Credential{AccessToken: "old"}, time.Nanosecond))

	reloaded, err := NewService(fs, "/data", time.Hour)
	require.NoError(t, err)

	got, ok := reloaded.Get("token-1")
	require.True(t, ok)
	require.Equal(t, cred, got)

	_, ok = reloaded.Get("stale")
	require.False(t, ok, "expired sessions must not survive a reload")
}

func TestCleanup(t *testing.T) {
	svc, err := NewService(afero.NewMemMapFs(), "", time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.Put("live", models.Credential{AccessToken: "a"}, time.Hour))
	require.NoError(t, svc.Put("dead", models.Credential{AccessToken: "b"}, time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, 1, svc.Cleanup())
	require.Equal(t, 1, svc.Count())
}

func TestGetDoesNotEvictRefreshedSession(t *testing.T) {
	svc, err := NewService(afero.NewMemMapFs(), "", time.Hour)
	require.NoError(t, err)

	fresh := models.Credential{AccessToken: "fresh"}
	for i := 0; i < 200; i++ {
		require.NoError(t, svc.Put("tok", models.Credential{AccessToken: "stale"}, time.Nanosecond))

		// Race a read of the expired entry against the refreshing Put. The
		// refreshed session must never be evicted by the concurrent Get.
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Get("tok")
		}()
		require.NoError(t, svc.Put("tok", fresh, time.Hour))
		wg.Wait()

		got, ok := svc.Get("tok")
		require.True(t, ok, "refreshed session evicted on iteration %d", i)
		require.Equal(t, fresh, got)
	}
}

func TestPutEmptyToken(t *testing.T) {
	svc, err := NewService(afero.NewMemMapFs(), "", time.Hour)
	require.NoError(t, err)
	require.Error(t, svc.Put("  ", models.Credential{}, time.Hour))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	require.Len(t, a, 2*tokenBytes)
	require.NotEqual(t, a, b)
}
