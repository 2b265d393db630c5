package model

import "math"

// UnknownSector is the bucket for tickers without a mapped sector.
const UnknownSector = "Unknown"

// Ratio identifies one of the five scoring dimensions.
type Ratio int

const (
	RatioPE Ratio = iota
	RatioPB
	RatioROE
	RatioDebtToEquity
	RatioEPSGrowth
)

// RatioCount is the number of scoring dimensions.
const RatioCount = 5

var ratioNames = [RatioCount]string{"PE Ratio", "PB Ratio", "ROE", "Debt/Equity", "EPS Growth"}

func (r Ratio) String() string {
	if r < 0 || int(r) >= RatioCount {
		return "unknown"
	}
	return ratioNames[r]
}

// LowerIsBetter reports whether the raw ratio is inverted before scoring.
func (r Ratio) LowerIsBetter() bool {
	return r == RatioPE || r == RatioPB || r == RatioDebtToEquity
}

// FundamentalRecord is a best-effort snapshot of one ticker's fundamentals.
// A nil field means the value was unavailable from every provider.
type FundamentalRecord struct {
	Ticker       string   `json:"ticker" msgpack:"ticker"`
	Name         string   `json:"name" msgpack:"name"`
	Sector       string   `json:"sector" msgpack:"sector"`
	PERatio      *float64 `json:"pe_ratio,omitempty" msgpack:"pe_ratio"`
	PBRatio      *float64 `json:"pb_ratio,omitempty" msgpack:"pb_ratio"`
	ROE          *float64 `json:"roe,omitempty" msgpack:"roe"`
	DebtToEquity *float64 `json:"debt_to_equity,omitempty" msgpack:"debt_to_equity"`
	EPSGrowth    *float64 `json:"eps_growth,omitempty" msgpack:"eps_growth"`
	Price        *float64 `json:"price,omitempty" msgpack:"price"`
}

// Ratio returns the raw value of the given dimension.
func (r *FundamentalRecord) Ratio(d Ratio) *float64 {
	switch d {
	case RatioPE:
		return r.PERatio
	case RatioPB:
		return r.PBRatio
	case RatioROE:
		return r.ROE
	case RatioDebtToEquity:
		return r.DebtToEquity
	case RatioEPSGrowth:
		return r.EPSGrowth
	}
	return nil
}

// SetRatio assigns the raw value of the given dimension.
func (r *FundamentalRecord) SetRatio(d Ratio, v *float64) {
	switch d {
	case RatioPE:
		r.PERatio = v
	case RatioPB:
		r.PBRatio = v
	case RatioROE:
		r.ROE = v
	case RatioDebtToEquity:
		r.DebtToEquity = v
	case RatioEPSGrowth:
		r.EPSGrowth = v
	}
}

// Complete reports whether every ratio and the price are present.
func (r *FundamentalRecord) Complete() bool {
	for d := Ratio(0); d < RatioCount; d++ {
		if r.Ratio(d) == nil {
			return false
		}
	}
	return r.Price != nil && r.Name != "" && r.Sector != ""
}

// SectorOrUnknown returns the sector label, defaulting to UnknownSector.
func (r *FundamentalRecord) SectorOrUnknown() string {
	if r.Sector == "" {
		return UnknownSector
	}
	return r.Sector
}

// Float returns a pointer to v, or nil when v is not a finite number.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NonZero is like Float but also treats zero as absent. Providers that
// encode "unknown" as 0 in their JSON go through this.
func NonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return Float(v)
}
