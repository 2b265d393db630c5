package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/strategy"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DOTENV_PATH", filepath.Join(dir, "none.env"))
	t.Setenv("FMP_API_KEY", "")
	t.Setenv("HOLDINGS_FILE", "")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.yaml"), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProjectCmd(t *testing.T) {
	out, err := run(t, "project", "--lump-sum", "0", "--contribution", "100", "--rate", "0", "--years", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "$2,600.00")
	assert.Contains(t, out, "$5,200.00")
}

func TestProjectCmd_RejectsNegative(t *testing.T) {
	_, err := run(t, "project", "--years", "-1")
	assert.Error(t, err)
}

func TestScoreCmd_Offline(t *testing.T) {
	out, err := run(t, "score", "--offline", "--no-export", "--threshold", "0", "--amount", "1000")
	require.NoError(t, err)
	for _, ticker := range []string{"AAPL", "MSFT", "GOOGL", "TSLA"} {
		assert.Contains(t, out, ticker)
	}
	assert.Contains(t, out, "BUY")
}

func TestScoreCmd_OfflineExplicitTickersAndExport(t *testing.T) {
	exportDir := t.TempDir()
	out, err := run(t, "score", "--offline", "--export-dir", exportDir, "--threshold", "0", "bhp.ax", "cba.ax", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "BHP.AX")
	assert.Contains(t, out, "No data: NOPE")

	entries, err := os.ReadDir(exportDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	data, err := os.ReadFile(filepath.Join(exportDir, entries[0].Name()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Ticker,Name,Score,Price,Investment($),Est.Shares,Sector,Allocation%"))
}

func TestScoreCmd_UnknownPool(t *testing.T) {
	_, err := run(t, "score", "--offline", "--pool", "eu")
	assert.Error(t, err)
}

func TestScoreCmd_MissingKey(t *testing.T) {
	_, err := run(t, "score")
	assert.ErrorContains(t, err, "api_key")
}

func TestRenderResult_States(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, strategy.Evaluate(nil, strategy.Params{}), "US")
	assert.Contains(t, buf.String(), "No data")

	buf.Reset()
	res := strategy.Evaluate([]model.FundamentalRecord{
		{Ticker: "ONE", PERatio: model.Float(10), Price: model.Float(5)},
	}, strategy.Params{Allocation: strategy.AllocationParams{Threshold: 80, Amount: 100}})
	renderResult(&buf, res, "US")
	assert.Contains(t, buf.String(), "No qualifying stocks")
	assert.Contains(t, buf.String(), "50.00")
}

func TestProjectCmd_RejectsUnboundedInput(t *testing.T) {
	for _, args := range [][]string{
		{"--rate", "NaN", "--years", "1"},
		{"--rate", "1e6", "--years", "60"},
		{"--years", "101"},
	} {
		_, err := run(t, append([]string{"project"}, args...)...)
		assert.Error(t, err, "%v", args)
	}
}

func TestScoreCmd_Raw(t *testing.T) {
	out, err := run(t, "score", "--offline", "--no-export", "--raw", "aapl", "msft")
	require.NoError(t, err)
	assert.Contains(t, out, "Raw data")
	assert.Contains(t, out, "PB Ratio")
	assert.Contains(t, out, "imputed with the batch mean")
}

func TestScoreCmd_ValidatesStrategyWithExplicitTickers(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative threshold", []string{"--threshold=-5"}},
		{"negative amount", []string{"--amount=-1"}},
		{"threshold above 100", []string{"--threshold=101"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"score", "--offline", "--no-export"}, tt.args...)
			_, err := run(t, append(args, "AAPL")...)
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}
