package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/receiptwise/receiptwise/internal/apperr"
	"github.com/receiptwise/receiptwise/internal/localstore"
)

// Cache is the on-device store for rate tables, keyed by base currency.
type Cache interface {
	PutRates(base string, value any) error
	GetRates(base string, dest any) error
}

// Service serves rate tables cache-first: a fresh cached table is
// returned without touching the network, a stale one triggers a
// refetch, and a failed refetch falls back to the stale table so
// conversion keeps working offline.
type Service struct {
	cache       Cache
	client      *http.Client
	providerURL string
	maxAge      time.Duration
	logger      *slog.Logger
}

func NewService(cache Cache, providerURL string, maxAge time.Duration, logger *slog.Logger) *Service {
	return &Service{
		cache:       cache,
		client:      &http.Client{Timeout: 15 * time.Second},
		providerURL: providerURL,
		maxAge:      maxAge,
		logger:      logger,
	}
}

var _ Cache = (*localstore.Store)(nil)

// Rates returns the rate table for base, refreshing it when the cached
// copy is older than the configured maximum age.
func (s *Service) Rates(ctx context.Context, base string) (*Rates, error) {
	base, err := Normalize(base)
	if err != nil {
		return nil, err
	}

	var cached Rates

	cacheErr := s.cache.GetRates(base, &cached)
	if cacheErr == nil && !cached.Stale(s.maxAge, time.Now()) {
		return &cached, nil
	}

	fresh, fetchErr := s.fetch(ctx, base)
	if fetchErr == nil {
		if err := s.cache.PutRates(base, fresh); err != nil {
			s.logger.Warn("caching exchange rates failed", "base", base, "error", err)
		}

		return fresh, nil
	}

	if cacheErr == nil {
		// Offline or provider down: a stale table beats no table.
		s.logger.Warn("serving stale exchange rates", "base", base,
			"fetched_at", cached.FetchedAt, "error", fetchErr)
		return &cached, nil
	}

	if errors.Is(cacheErr, localstore.ErrNotFound) {
		return nil, apperr.Translate(fetchErr)
	}

	return nil, apperr.Translate(cacheErr)
}

// Convert re-denominates amount from one currency to another using the
// table based on the source currency.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, err := Normalize(from)
	if err != nil {
		return decimal.Zero, err
	}

	to, err = Normalize(to)
	if err != nil {
		return decimal.Zero, err
	}

	if from == to {
		return amount, nil
	}

	rates, err := s.Rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates.Rates[to]
	if !ok {
		return decimal.Zero, apperr.Newf(apperr.KindCache, "no rate from %s to %s", from, to)
	}

	return amount.Mul(decimal.NewFromFloat(rate)).Round(2), nil
}

func (s *Service) fetch(ctx context.Context, base string) (*Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.providerURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("building rates request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.BackendError{Status: resp.StatusCode, Message: "rates provider error"}
	}

	var body struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding rates: %w", err)
	}

	if len(body.Rates) == 0 {
		return nil, apperr.New(apperr.KindServer, "rates provider returned an empty table")
	}

	return &Rates{Base: base, Rates: body.Rates, FetchedAt: time.Now().UTC()}, nil
}
