package currency_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/currency"
	"github.com/receiptwise/receiptwise/internal/localstore"
)

func openCache(t *testing.T) *localstore.Store {
	t.Helper()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func ratesProvider(t *testing.T, hits *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestService_Rates(t *testing.T) {
	t.Parallel()

	const table = `{"base":"USD","rates":{"EUR":0.92,"GBP":0.79,"JPY":148.3}}`

	t.Run("FetchesAndCaches", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := ratesProvider(t, &hits, http.StatusOK, table)
		svc := currency.NewService(openCache(t), srv.URL, 24*time.Hour, slog.Default())

		rates, err := svc.Rates(context.Background(), "usd")
		require.NoError(t, err)
		assert.Equal(t, "USD", rates.Base)
		assert.InDelta(t, 0.92, rates.Rates["EUR"], 0.0001)

		// Second call inside the max age is served from the cache.
		_, err = svc.Rates(context.Background(), "USD")
		require.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("StaleCacheTriggersRefetch", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := ratesProvider(t, &hits, http.StatusOK, table)
		cache := openCache(t)

		require.NoError(t, cache.PutRates("USD", &currency.Rates{
			Base:      "USD",
			Rates:     map[string]float64{"EUR": 0.5},
			FetchedAt: time.Now().Add(-48 * time.Hour),
		}))

		svc := currency.NewService(cache, srv.URL, 24*time.Hour, slog.Default())

		rates, err := svc.Rates(context.Background(), "USD")
		require.NoError(t, err)
		assert.InDelta(t, 0.92, rates.Rates["EUR"], 0.0001)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("ProviderDownServesStaleTable", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := ratesProvider(t, &hits, http.StatusBadGateway, "")
		cache := openCache(t)

		fetchedAt := time.Now().Add(-72 * time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, cache.PutRates("USD", &currency.Rates{
			Base:      "USD",
			Rates:     map[string]float64{"EUR": 0.91},
			FetchedAt: fetchedAt,
		}))

		svc := currency.NewService(cache, srv.URL, 24*time.Hour, slog.Default())

		rates, err := svc.Rates(context.Background(), "USD")
		require.NoError(t, err)
		assert.InDelta(t, 0.91, rates.Rates["EUR"], 0.0001)
		assert.True(t, rates.FetchedAt.Equal(fetchedAt))
	})

	t.Run("ProviderDownWithEmptyCacheFails", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := ratesProvider(t, &hits, http.StatusBadGateway, "")
		svc := currency.NewService(openCache(t), srv.URL, 24*time.Hour, slog.Default())

		_, err := svc.Rates(context.Background(), "USD")
		require.Error(t, err)
		assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
	})

	t.Run("RejectsUnknownCode", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := ratesProvider(t, &hits, http.StatusOK, table)
		svc := currency.NewService(openCache(t), srv.URL, 24*time.Hour, slog.Default())

		_, err := svc.Rates(context.Background(), "DOGE")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, int32(0), hits.Load())
	})
}

func TestService_Convert(t *testing.T) {
	t.Parallel()

	const table = `{"base":"USD","rates":{"EUR":0.92,"JPY":148.3}}`

	var hits atomic.Int32
	srv := ratesProvider(t, &hits, http.StatusOK, table)
	svc := currency.NewService(openCache(t), srv.URL, 24*time.Hour, slog.Default())

	t.Run("ConvertsAndRounds", func(t *testing.T) {
		got, err := svc.Convert(context.Background(), decimal.NewFromFloat(10.50), "USD", "EUR")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromFloat(9.66)), "got %s", got)
	})

	t.Run("SameCurrencyIsIdentity", func(t *testing.T) {
		amount := decimal.NewFromFloat(42.42)

		got, err := svc.Convert(context.Background(), amount, "EUR", "eur")
		require.NoError(t, err)
		assert.True(t, got.Equal(amount))
	})

	t.Run("MissingTargetRate", func(t *testing.T) {
		_, err := svc.Convert(context.Background(), decimal.NewFromInt(1), "USD", "CHF")
		require.Error(t, err)
		assert.Equal(t, apperr.KindCache, apperr.KindOf(err))
	})
}
