package collector

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"SmartPortfolio/internal/model"
)

// DefaultEODHDBaseURL is the EODHD API root.
const DefaultEODHDBaseURL = "https://eodhd.com/api"

// EODHD implements Provider on the EOD Historical Data API.
type EODHD struct {
	client *resty.Client
	apiKey string
}

// NewEODHD creates an EODHD adapter. An empty baseURL uses DefaultEODHDBaseURL.
func NewEODHD(baseURL, apiKey string, timeout time.Duration, proxy string) *EODHD {
	if baseURL == "" {
		baseURL = DefaultEODHDBaseURL
	}
	return &EODHD{client: newRestClient(baseURL, timeout, proxy), apiKey: apiKey}
}

func (e *EODHD) Name() string { return "eodhd" }

type eodFundamentals struct {
	General struct {
		Name   string `json:"Name"`
		Sector string `json:"Sector"`
	} `json:"General"`
	Highlights struct {
		PERatio                    number `json:"PERatio"`
		ReturnOnEquityTTM          number `json:"ReturnOnEquityTTM"`
		QuarterlyEarningsGrowthYOY number `json:"QuarterlyEarningsGrowthYOY"`
	} `json:"Highlights"`
	Valuation struct {
		PriceBookMRQ number `json:"PriceBookMRQ"`
	} `json:"Valuation"`
}

type eodQuote struct {
	Close         number `json:"close"`
	PreviousClose number `json:"previousClose"`
}

func (e *EODHD) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalRecord, error) {
	symbol := url.PathEscape(eodSymbol(ticker))
	params := map[string]string{"api_token": e.apiKey, "fmt": "json"}

	var fund eodFundamentals
	if err := getJSON(ctx, e.client, e.Name(), "/fundamentals/"+symbol, params, &fund); err != nil {
		if planRestricted(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec := &model.FundamentalRecord{
		Ticker:    ticker,
		Name:      fund.General.Name,
		Sector:    fund.General.Sector,
		PERatio:   fund.Highlights.PERatio.Ptr(),
		PBRatio:   fund.Valuation.PriceBookMRQ.Ptr(),
		ROE:       fund.Highlights.ReturnOnEquityTTM.Ptr(),
		EPSGrowth: fund.Highlights.QuarterlyEarningsGrowthYOY.Ptr(),
	}

	var quote eodQuote
	if err := getJSON(ctx, e.client, e.Name(), "/real-time/"+symbol, params, &quote); err == nil {
		rec.Price = first(quote.Close.Ptr(), quote.PreviousClose.Ptr())
	} else if !planRestricted(err) {
		return nil, err
	}
	return rec, nil
}

// eodSymbol converts a Yahoo-style ticker to EODHD's TICKER.EXCHANGE form.
func eodSymbol(ticker string) string {
	ticker = strings.ToUpper(ticker)
	dot := strings.LastIndex(ticker, ".")
	if dot < 0 {
		return ticker + ".US"
	}
	switch suffix := ticker[dot+1:]; suffix {
	case "AX":
		return ticker[:dot] + ".AU"
	case "L":
		return ticker[:dot] + ".LSE"
	case "TO":
		return ticker[:dot] + ".TO"
	default:
		return ticker
	}
}
