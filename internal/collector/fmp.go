package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"SmartPortfolio/internal/model"
)

// DefaultFMPBaseURL is the Financial Modeling Prep v3 API root.
const DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"

// FMP implements Provider on the Financial Modeling Prep REST API.
type FMP struct {
	client *resty.Client
	apiKey string
}

// NewFMP creates an FMP adapter. An empty baseURL uses DefaultFMPBaseURL.
func NewFMP(baseURL, apiKey string, timeout time.Duration, proxy string) *FMP {
	if baseURL == "" {
		baseURL = DefaultFMPBaseURL
	}
	return &FMP{client: newRestClient(baseURL, timeout, proxy), apiKey: apiKey}
}

func (f *FMP) Name() string { return "fmp" }

type fmpProfile struct {
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector"`
	Price       number `json:"price"`
}

type fmpRatiosTTM struct {
	PERatioTTM           number `json:"peRatioTTM"`
	PriceToBookRatioTTM  number `json:"priceToBookRatioTTM"`
	PBRatioTTM           number `json:"pbRatioTTM"`
	ReturnOnEquityTTM    number `json:"returnOnEquityTTM"`
	ROETTM               number `json:"roeTTM"`
	DebtEquityRatioTTM   number `json:"debtEquityRatioTTM"`
	DebtToEquityRatioTTM number `json:"debtToEquityRatioTTM"`
}

type fmpGrowth struct {
	EPSGrowth      number `json:"epsgrowth"`
	EPSGrowthCamel number `json:"epsGrowth"`
}

func (f *FMP) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalRecord, error) {
	params := map[string]string{"apikey": f.apiKey}
	symbol := url.PathEscape(ticker)

	var profiles []fmpProfile
	if err := getJSON(ctx, f.client, f.Name(), "/profile/"+symbol, params, &profiles); err != nil {
		return nil, err
	}
	var ratios []fmpRatiosTTM
	if err := getJSON(ctx, f.client, f.Name(), "/ratios-ttm/"+symbol, params, &ratios); err != nil {
		return nil, err
	}
	if len(profiles) == 0 && len(ratios) == 0 {
		return nil, ErrNotFound
	}

	rec := &model.FundamentalRecord{Ticker: ticker}
	if len(profiles) > 0 {
		p := profiles[0]
		rec.Name = p.CompanyName
		rec.Sector = p.Sector
		rec.Price = p.Price.Ptr()
	}
	if len(ratios) > 0 {
		r := ratios[0]
		rec.PERatio = r.PERatioTTM.Ptr()
		rec.PBRatio = first(r.PriceToBookRatioTTM.Ptr(), r.PBRatioTTM.Ptr())
		rec.ROE = first(r.ReturnOnEquityTTM.Ptr(), r.ROETTM.Ptr())
		rec.DebtToEquity = first(r.DebtEquityRatioTTM.Ptr(), r.DebtToEquityRatioTTM.Ptr())
	}

	// EPS growth lives behind a separate endpoint that some plans do not
	// include; a 401/403/404 there only leaves the field empty.
	growthParams := map[string]string{"apikey": f.apiKey, "limit": "1"}
	var growth []fmpGrowth
	err := getJSON(ctx, f.client, f.Name(), "/financial-growth/"+symbol, growthParams, &growth)
	switch {
	case err == nil:
		if len(growth) > 0 {
			rec.EPSGrowth = first(growth[0].EPSGrowth.Ptr(), growth[0].EPSGrowthCamel.Ptr())
		}
	case planRestricted(err):
	default:
		return nil, err
	}
	return rec, nil
}

func planRestricted(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
