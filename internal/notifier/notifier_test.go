package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/strategy"
)

func result(threshold float64, holdings map[string]int) *strategy.Result {
	records := []model.FundamentalRecord{
		{Ticker: "AAPL", Name: "Apple & Co", Sector: "Technology", PERatio: model.Float(10), ROE: model.Float(0.3), Price: model.Float(100)},
		{Ticker: "XOM", Name: "Exxon", Sector: "Energy", PERatio: model.Float(20), ROE: model.Float(0.1), Price: model.Float(50)},
	}
	p := strategy.Params{Allocation: strategy.DefaultAllocationParams(1234.5), Holdings: holdings}
	p.Allocation.Threshold = threshold
	return strategy.Evaluate(records, p)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", Money(1234.5))
	assert.Equal(t, "$0.00", Money(0))
	assert.Equal(t, "-$12.30", Money(-12.3))
}

func TestFormatSignals(t *testing.T) {
	at := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
	msg := FormatSignals(result(40, nil), "US", at)
	assert.Contains(t, msg, "2024-05-06 09:30")
	assert.Contains(t, msg, "Budget $1,234.50")
	assert.Contains(t, msg, "1. <b>AAPL</b> Apple &amp; Co")
	assert.NotContains(t, msg, "XOM", "below threshold")

	empty := FormatSignals(strategy.Evaluate(nil, strategy.Params{}), "US", at)
	assert.Contains(t, empty, msgNoData)

	none := FormatSignals(result(100, nil), "US", at)
	assert.Contains(t, none, msgNoQualifying)
}

func TestFormatRebalance(t *testing.T) {
	msg := FormatRebalance(result(0, map[string]int{"AAPL": 20, "XOM": 1}))
	assert.Contains(t, msg, "AAPL</b> 20 → ")
	assert.Contains(t, msg, "SELL")
	assert.Contains(t, msg, "BUY")
}

func TestFormatHoldings(t *testing.T) {
	assert.Contains(t, FormatHoldings(nil), "No holdings")
	msg := FormatHoldings(map[string]int{"MSFT": 1500, "AAPL": 10})
	assert.Less(t, strings.Index(msg, "AAPL"), strings.Index(msg, "MSFT"))
	assert.Contains(t, msg, "MSFT: 1,500")
}

func TestTelegram_SendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "HTML", body["parse_mode"])

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"ok":false,"description":"upstream"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier(srv.URL, "TOKEN", "42", "", zerolog.Nop())
	tg.backoff = time.Millisecond
	require.NoError(t, tg.SendWithRetry(context.Background(), "hi", 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegram_SendWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok":false,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier(srv.URL, "BAD", "42", "", zerolog.Nop())
	tg.backoff = time.Millisecond
	err := tg.SendWithRetry(context.Background(), "hi", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestTelegram_PollAndDispatch(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/botT/getUpdates":
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			fmt.Fprint(w, `{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /signals ","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/holdings","chat":{"id":99}}},
				{"update_id":9}
			]}`)
		case "/botT/sendMessage":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			sent = append(sent, body["text"].(string))
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier(srv.URL, "T", "42", "", zerolog.Nop())
	ctx := context.Background()
	updates, err := tg.poll(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	var handled []string
	next := tg.dispatch(ctx, updates, 7, func(_ context.Context, cmd string) string {
		handled = append(handled, cmd)
		return "reply to " + cmd
	})
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/signals"}, handled, "other chats are ignored")
	assert.Equal(t, []string{"reply to /signals"}, sent)
}
