package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/market"
	"github.com/ajitpratap0/equityfunk/internal/risk"
	"github.com/ajitpratap0/equityfunk/internal/store"
)

type stubRunner struct {
	mu      sync.Mutex
	cycles  []string
	systems []string
	users   []string
}

func (s *stubRunner) Run(_ context.Context, cycleID, systemPrompt, userPrompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = append(s.cycles, cycleID)
	s.systems = append(s.systems, systemPrompt)
	s.users = append(s.users, userPrompt)
	return nil
}

func (s *stubRunner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cycles)
}

type stubClock struct {
	open bool
}

func (s *stubClock) GetPrice(_ context.Context, _ string) (float64, error) { return 150.0, nil }
func (s *stubClock) GetHistory(_ context.Context, _ string, days int) ([]market.Bar, error) {
	bars := make([]market.Bar, days)
	base := time.Now().AddDate(0, 0, -days)
	for i := range bars {
		price := 500.0 + float64(i)*0.1
		bars[i] = market.Bar{Time: base.AddDate(0, 0, i), Open: price, High: price + 1, Low: price - 1, Close: price}
	}
	return bars, nil
}
func (s *stubClock) GetSnapshots(_ context.Context, _ []string) (map[string]market.Snapshot, error) {
	return nil, nil
}
func (s *stubClock) IsMarketOpen(_ context.Context) (bool, error) { return s.open, nil }

type stubBook struct{}

func (stubBook) GetTotalValue(_ context.Context) (float64, error) { return 123456.78, nil }
func (stubBook) GetCash(_ context.Context) (float64, error)       { return 45000.0, nil }
func (stubBook) GetPositions(_ context.Context) (map[string]int, error) {
	return map[string]int{"AAPL": 100}, nil
}
func (stubBook) ExecuteTrade(_ context.Context, _, _ string, _ int) error { return nil }

type fakeStores struct{}

func (fakeStores) LogTrade(_ context.Context, _ store.TradeEntry) error { return nil }
func (fakeStores) RecentEntries(_ context.Context, _ int) (string, error) {
	return "[2026-08-27 10:00] BUY 100 AAPL @ $150.00 | Reason: test", nil
}
func (fakeStores) GetNotes(_ context.Context) (string, error)     { return "stay patient", nil }
func (fakeStores) UpdateNotes(_ context.Context, _ string) error  { return nil }
func (fakeStores) AppendNotes(_ context.Context, _ string) error  { return nil }
func (fakeStores) ActiveTheses(_ context.Context) (string, error) { return "No active theses.", nil }
func (fakeStores) SaveThesis(_ context.Context, _, _ string, _, _ float64) error {
	return nil
}
func (fakeStores) CloseThesis(_ context.Context, _ string) error { return nil }
func (fakeStores) Info(_ string, _ map[string]interface{})       {}
func (fakeStores) Warning(_ string, _ map[string]interface{})    {}
func (fakeStores) Error(_ string, _ map[string]interface{})      {}

func newTestScheduler(clock *stubClock, runner *stubRunner) *Scheduler {
	return New(Deps{
		Market:    clock,
		Portfolio: stubBook{},
		Journal:   fakeStores{},
		Notes:     fakeStores{},
		Theses:    fakeStores{},
		Remote:    fakeStores{},
		Runner:    runner,
		Limits: risk.Limits{
			MinNotional:    5000,
			MaxNotional:    25000,
			ExposureCapPct: 0.20,
			Cooldown:       30 * time.Minute,
		},
		Trading: config.TradingConfig{
			PollInterval:      1,
			MarketClosedWait:  1,
			MaxTurns:          10,
			MaxOrdersPerCycle: 3,
		},
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	clock := &stubClock{open: true}
	runner := &stubRunner{}
	sched := newTestScheduler(clock, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	// Let at least one cycle complete, then cancel
	require.Eventually(t, func() bool { return runner.count() >= 1 },
		3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestRun_SkipsCyclesWhileMarketClosed(t *testing.T) {
	clock := &stubClock{open: false}
	runner := &stubRunner{}
	sched := newTestScheduler(clock, runner)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, sched.Run(ctx))
	assert.Zero(t, runner.count(), "no cycles may run while the market is closed")
}

func TestSystemPrompt_EmbedsRiskLimits(t *testing.T) {
	sched := newTestScheduler(&stubClock{open: true}, &stubRunner{})

	prompt := sched.systemPrompt(context.Background())
	assert.Contains(t, prompt, "Max 3 orders")
	assert.Contains(t, prompt, "between $5000 and $25000")
	assert.Contains(t, prompt, "above 20% of total portfolio value")
	assert.Contains(t, prompt, "blocked for 30 minutes")
	assert.Contains(t, prompt, "stay patient")
	assert.Contains(t, prompt, "BUY 100 AAPL")
	assert.Contains(t, prompt, "SPY Price:")
}

func TestUserPrompt_EmbedsPortfolioState(t *testing.T) {
	sched := newTestScheduler(&stubClock{open: true}, &stubRunner{})

	prompt := sched.userPrompt(context.Background())
	assert.Contains(t, prompt, "Portfolio: $123456.78")
	assert.Contains(t, prompt, "Cash: $45000.00")
	assert.Contains(t, prompt, "AAPL: 100 shares")
}

type brokenBook struct{}

func (brokenBook) GetTotalValue(_ context.Context) (float64, error) {
	return 0, fmt.Errorf("broker unreachable")
}
func (brokenBook) GetCash(_ context.Context) (float64, error) {
	return 0, fmt.Errorf("broker unreachable")
}
func (brokenBook) GetPositions(_ context.Context) (map[string]int, error) {
	return nil, fmt.Errorf("broker unreachable")
}
func (brokenBook) ExecuteTrade(_ context.Context, _, _ string, _ int) error {
	return fmt.Errorf("broker unreachable")
}

func TestUserPrompt_BrokerFailureDegradesToUnavailable(t *testing.T) {
	sched := newTestScheduler(&stubClock{open: true}, &stubRunner{})
	sched.portfolio = brokenBook{}

	prompt := sched.userPrompt(context.Background())
	assert.Contains(t, prompt, "Portfolio: Unavailable")
	assert.Contains(t, prompt, "Cash: Unavailable")
	assert.Contains(t, prompt, "Holdings: Unavailable")
	assert.NotContains(t, prompt, "$0.00", "a failed balance lookup must not read as a zero balance")
}

func TestRunCycle_UniqueCycleIDs(t *testing.T) {
	runner := &stubRunner{}
	sched := newTestScheduler(&stubClock{open: true}, runner)

	sched.runCycle(context.Background())
	sched.runCycle(context.Background())

	require.Len(t, runner.cycles, 2)
	assert.NotEqual(t, runner.cycles[0], runner.cycles[1])
}

func TestSleep_InterruptedByCancel(t *testing.T) {
	sched := newTestScheduler(&stubClock{open: true}, &stubRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	completed := sched.sleep(ctx, time.Hour)
	assert.False(t, completed)
	assert.Less(t, time.Since(start), 5*time.Second)
}
