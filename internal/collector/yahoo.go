package collector

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"SmartPortfolio/internal/model"
)

// Yahoo implements Provider on Yahoo Finance quotes. It supplies price,
// name, trailing PE and price/book; the other ratios stay nil.
type Yahoo struct {
	get func(symbol string) (*finance.Equity, error)
}

// NewYahoo creates a Yahoo Finance adapter.
func NewYahoo() *Yahoo {
	return &Yahoo{get: equity.Get}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalRecord, error) {
	type result struct {
		eq  *finance.Equity
		err error
	}
	// equity.Get takes no context, so the call is raced against ctx.
	ch := make(chan result, 1)
	go func() {
		eq, err := y.get(ticker)
		ch <- result{eq, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil {
		return nil, fmt.Errorf("yahoo equity %s: %w", ticker, res.err)
	}
	if res.eq == nil {
		return nil, ErrNotFound
	}

	eq := res.eq
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	return &model.FundamentalRecord{
		Ticker:  ticker,
		Name:    name,
		Price:   model.NonZero(eq.RegularMarketPrice),
		PERatio: model.NonZero(eq.TrailingPE),
		PBRatio: model.NonZero(eq.PriceToBook),
	}, nil
}
