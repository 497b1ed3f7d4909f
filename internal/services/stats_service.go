package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// StatsService aggregates a profile's transactions per currency and
// category. Results are best-effort snapshots read without a transaction.
type StatsService struct {
	repo            *storage.SQLiteRepository
	defaultCurrency string
	cache           cache.Cache[core.Stats]

	// generations counts invalidations per profile. Compute stores a result
	// only if no invalidation happened since it started reading.
	mu          sync.Mutex
	generations map[int64]uint64

	afterRead func()
}

// NewStatsService creates the aggregator. statsCache may be nil.
func NewStatsService(repo *storage.SQLiteRepository, defaultCurrency string, statsCache cache.Cache[core.Stats]) *StatsService {
	defaultCurrency = strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrency
	}
	return &StatsService{
		repo:            repo,
		defaultCurrency: defaultCurrency,
		cache:           statsCache,
		generations:     make(map[int64]uint64),
	}
}

// Compute returns income, expense and net per currency for transactions
// dated in [filter.From, filter.To). A transaction whose wallet is missing
// or absent counts under the default currency.
func (s *StatsService) Compute(ctx context.Context, profileID int64, filter core.StatsFilter) (core.Stats, error) {
	key := statsKey(profileID, filter)
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			return stats, nil
		}
	}

	gen := s.generation(profileID)

	var (
		wallets []core.Wallet
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		wallets, err = s.repo.ListWallets(gctx, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.repo.ListTransactionsInRange(gctx, profileID, filter.From, filter.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Stats{}, &core.StoreError{Op: "compute stats", Err: err}
	}

	if s.afterRead != nil {
		s.afterRead()
	}

	stats := Aggregate(profileID, filter, wallets, txs, s.defaultCurrency)

	if s.cache != nil {
		s.mu.Lock()
		if s.generations[profileID] == gen {
			s.cache.Set(key, stats)
		}
		s.mu.Unlock()
	}
	slog.DebugContext(ctx, "Stats computed",
		"profile_id", profileID,
		"transactions", len(txs),
		"currencies", len(stats.Currencies))
	return stats, nil
}

// Invalidate drops every cached report of the profile. It has the shape of
// a ChangeListener.
func (s *StatsService) Invalidate(ctx context.Context, profileID int64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.generations[profileID]++
	n := s.cache.DeletePrefix(statsPrefix(profileID))
	s.mu.Unlock()
	if n > 0 {
		slog.DebugContext(ctx, "Stats cache invalidated", "profile_id", profileID, "entries", n)
	}
}

func (s *StatsService) generation(profileID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[profileID]
}

func statsPrefix(profileID int64) string {
	return fmt.Sprintf("stats:%d:", profileID)
}

func statsKey(profileID int64, f core.StatsFilter) string {
	var from, to string
	if !f.From.IsZero() {
		from = storage.FormatDate(f.From)
	}
	if !f.To.IsZero() {
		to = storage.FormatDate(f.To)
	}
	return statsPrefix(profileID) + from + "/" + to
}

// Aggregate is the pure part of Compute.
func Aggregate(profileID int64, filter core.StatsFilter, wallets []core.Wallet, txs []core.Transaction, defaultCurrency string) core.Stats {
	currencyOf := make(map[int64]string, len(wallets))
	for _, w := range wallets {
		currencyOf[w.ID] = strings.ToUpper(w.WalletCurrency())
	}

	type bucket struct {
		stats   core.CurrencyStats
		income  map[string]core.Money
		expense map[string]core.Money
	}
	buckets := make(map[string]*bucket)

	for _, t := range txs {
		currency := defaultCurrency
		if t.WalletID != nil {
			if c, ok := currencyOf[*t.WalletID]; ok {
				currency = c
			}
		}

		b, ok := buckets[currency]
		if !ok {
			b = &bucket{
				stats:   core.CurrencyStats{Currency: currency},
				income:  make(map[string]core.Money),
				expense: make(map[string]core.Money),
			}
			buckets[currency] = b
		}

		b.stats.Count++
		if t.Amount.Cents >= 0 {
			b.stats.Income = b.stats.Income.Add(t.Amount)
			b.income[t.Category] = b.income[t.Category].Add(t.Amount)
		} else {
			b.stats.Expense = b.stats.Expense.Add(t.Amount.Abs())
			b.expense[t.Category] = b.expense[t.Category].Add(t.Amount.Abs())
		}
	}

	stats := core.Stats{
		ProfileID:  profileID,
		From:       filter.From,
		To:         filter.To,
		Currencies: make([]core.CurrencyStats, 0, len(buckets)),
	}
	for _, b := range buckets {
		cs := b.stats
		cs.Net = cs.Income.Sub(cs.Expense)
		cs.IncomeByCategory = shares(b.income, cs.Income)
		cs.ExpenseByCategory = shares(b.expense, cs.Expense)
		stats.Currencies = append(stats.Currencies, cs)
	}
	sort.Slice(stats.Currencies, func(i, j int) bool {
		return stats.Currencies[i].Currency < stats.Currencies[j].Currency
	})
	return stats
}

// shares sorts categories by amount, largest first.
func shares(byCategory map[string]core.Money, total core.Money) []core.CategoryShare {
	out := make([]core.CategoryShare, 0, len(byCategory))
	for name, amount := range byCategory {
		out = append(out, core.CategoryShare{
			Category: name,
			Amount:   amount,
			Percent:  core.Percent(amount, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}
