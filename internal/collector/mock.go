package collector

import (
	"context"
	"sync"

	"SmartPortfolio/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	ID      string
	Records map[string]model.FundamentalRecord
	Errors  map[string]error

	mu    sync.Mutex
	calls map[string]int
}

// NewMockProvider creates a mock serving the given records by ticker.
func NewMockProvider(records ...model.FundamentalRecord) *MockProvider {
	m := &MockProvider{ID: "mock", Records: make(map[string]model.FundamentalRecord), Errors: make(map[string]error)}
	for _, r := range records {
		m.Records[r.Ticker] = r
	}
	return m
}

func (m *MockProvider) Name() string { return m.ID }

func (m *MockProvider) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalRecord, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[ticker]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[ticker]; ok && err != nil {
		return nil, err
	}
	rec, ok := m.Records[ticker]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Calls returns how often ticker was requested.
func (m *MockProvider) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

// DemoRecords is a fixed offline dataset covering the default pools.
func DemoRecords() []model.FundamentalRecord {
	f := model.Float
	return []model.FundamentalRecord{
		{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Technology", PERatio: f(29.1), PBRatio: f(45.2), ROE: f(1.56), DebtToEquity: f(1.87), EPSGrowth: f(0.09), Price: f(189.5)},
		{Ticker: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", PERatio: f(34.8), PBRatio: f(11.9), ROE: f(0.38), DebtToEquity: f(0.29), EPSGrowth: f(0.2), Price: f(415.1)},
		{Ticker: "GOOGL", Name: "Alphabet Inc.", Sector: "Communication Services", PERatio: f(23.4), PBRatio: f(6.8), ROE: f(0.29), DebtToEquity: f(0.1), EPSGrowth: f(0.31), Price: f(171.2)},
		{Ticker: "TSLA", Name: "Tesla, Inc.", Sector: "Consumer Cyclical", PERatio: f(61.5), PBRatio: f(9.4), ROE: f(0.21), DebtToEquity: f(0.18), EPSGrowth: f(-0.46), Price: f(248.4)},
		{Ticker: "BHP.AX", Name: "BHP Group Limited", Sector: "Basic Materials", PERatio: f(17.9), PBRatio: f(2.9), ROE: f(0.18), DebtToEquity: f(0.45), EPSGrowth: f(-0.37), Price: f(43.1)},
		{Ticker: "WES.AX", Name: "Wesfarmers Limited", Sector: "Consumer Cyclical", PERatio: f(32.7), PBRatio: f(8.6), ROE: f(0.31), DebtToEquity: f(0.86), EPSGrowth: f(0.03), Price: f(68.9)},
		{Ticker: "CSL.AX", Name: "CSL Limited", Sector: "Healthcare", PERatio: f(36.2), PBRatio: f(5.1), ROE: f(0.14), DebtToEquity: f(0.62), EPSGrowth: f(0.11), Price: f(286.3)},
		{Ticker: "CBA.AX", Name: "Commonwealth Bank of Australia", Sector: "Financial Services", PERatio: f(24.9), PBRatio: f(3.3), ROE: f(0.13), DebtToEquity: nil, EPSGrowth: f(0.02), Price: f(133.6)},
	}
}
