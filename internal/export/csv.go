// Package export renders allocation and rebalance tables as CSV and ships
// them to a Sink.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"SmartPortfolio/internal/model"
)

var (
	AllocationHeader = []string{"Ticker", "Name", "Score", "Price", "Investment($)", "Est.Shares", "Sector", "Allocation%"}
	RebalanceHeader  = []string{"Ticker", "Name", "Current Shares", "Target Shares", "Action"}
)

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func optionalMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return money(*v)
}

// WriteAllocations writes one row per allocation in the given order.
func WriteAllocations(w io.Writer, allocs []model.Allocation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AllocationHeader); err != nil {
		return fmt.Errorf("write allocation header: %w", err)
	}
	for _, a := range allocs {
		row := []string{
			a.Ticker,
			a.Name,
			money(a.Score),
			optionalMoney(a.Price),
			money(a.Investment),
			strconv.Itoa(a.TargetShares),
			a.SectorOrUnknown(),
			money(a.Fraction * 100),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write allocation %s: %w", a.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRebalance writes one row per rebalance entry in the given order.
func WriteRebalance(w io.Writer, rows []model.RebalanceRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RebalanceHeader); err != nil {
		return fmt.Errorf("write rebalance header: %w", err)
	}
	for _, r := range rows {
		row := []string{
			r.Ticker,
			r.Name,
			strconv.Itoa(r.CurrentShares),
			strconv.Itoa(r.TargetShares),
			r.Action.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write rebalance %s: %w", r.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AllocationsCSV is WriteAllocations into a byte slice.
func AllocationsCSV(allocs []model.Allocation) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteAllocations(&buf, allocs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RebalanceCSV is WriteRebalance into a byte slice.
func RebalanceCSV(rows []model.RebalanceRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRebalance(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
