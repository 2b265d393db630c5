package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/strategy"
)

func allocation(ticker, name, sector string, score float64, price *float64, fraction, investment float64, shares int) model.Allocation {
	a := model.Allocation{Fraction: fraction, Investment: investment, TargetShares: shares}
	a.Ticker, a.Name, a.Sector, a.Price, a.Score = ticker, name, sector, price, score
	return a
}

func TestWriteAllocations(t *testing.T) {
	allocs := []model.Allocation{
		allocation("MSFT", "Microsoft, Corp", "Technology", 71.456, model.Float(415.1), 0.6, 300, 0),
		allocation("XYZ", "Xyz", "", 48, nil, 0.4, 200, 0),
	}
	data, err := AllocationsCSV(allocs)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Ticker,Name,Score,Price,Investment($),Est.Shares,Sector,Allocation%", lines[0])
	assert.Equal(t, `MSFT,"Microsoft, Corp",71.46,415.10,300.00,0,Technology,60.00`, lines[1])
	assert.Equal(t, "XYZ,Xyz,48.00,,200.00,0,Unknown,40.00", lines[2])
}

func TestWriteRebalance(t *testing.T) {
	rows := []model.RebalanceRow{
		{Allocation: allocation("A", "Alpha", "S", 60, model.Float(10), 1, 100, 10), CurrentShares: 4, Action: model.Action{Kind: model.ActionBuy, Shares: 6}},
		{Allocation: allocation("B", "Beta", "S", 50, model.Float(10), 1, 100, 4), CurrentShares: 10, Action: model.Action{Kind: model.ActionSell, Shares: 6}},
		{Allocation: allocation("C", "Gamma", "S", 40, model.Float(10), 1, 100, 5), CurrentShares: 5, Action: model.Action{Kind: model.ActionHold}},
	}
	data, err := RebalanceCSV(rows)
	require.NoError(t, err)
	assert.Equal(t,
		"Ticker,Name,Current Shares,Target Shares,Action\n"+
			"A,Alpha,4,10,BUY 6\n"+
			"B,Beta,10,4,SELL 6\n"+
			"C,Gamma,5,5,HOLD\n",
		string(data))
}

func TestEmptyTablesStillHaveHeaders(t *testing.T) {
	data, err := AllocationsCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(AllocationHeader, ",")+"\n", string(data))

	data, err = RebalanceCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(RebalanceHeader, ",")+"\n", string(data))
}

type fakeS3 struct {
	keys   []string
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, *in.Bucket+"/"+*in.Key)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func sampleResult() *strategy.Result {
	records := []model.FundamentalRecord{
		{Ticker: "A", Name: "Alpha", Sector: "Tech", PERatio: model.Float(10), ROE: model.Float(0.3), Price: model.Float(50)},
		{Ticker: "B", Name: "Beta", Sector: "Energy", PERatio: model.Float(20), ROE: model.Float(0.1), Price: model.Float(20)},
	}
	return strategy.Evaluate(records, strategy.Params{
		Allocation: strategy.DefaultAllocationParams(1000),
		Holdings:   map[string]int{"A": 3},
	})
}

func TestResult_DirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	names, err := Result(context.Background(), DirSink{Dir: dir}, sampleResult(), at)
	require.NoError(t, err)
	assert.Equal(t, []string{"allocation_20240301-093000.csv", "rebalance_20240301-093000.csv"}, names)

	data, err := os.ReadFile(filepath.Join(dir, names[1]))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Ticker,Name,Current Shares,Target Shares,Action\nA,Alpha,3,"))
}

func TestResult_S3Sink(t *testing.T) {
	fake := &fakeS3{}
	sink := NewS3SinkWithClient(fake, "bucket", "exports/daily")
	_, err := Result(context.Background(), sink, sampleResult(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bucket/exports/daily/allocation_20240301-000000.csv",
		"bucket/exports/daily/rebalance_20240301-000000.csv",
	}, fake.keys)
	assert.True(t, strings.HasPrefix(fake.bodies[0], "Ticker,Name,Score,"))

	fake.err = errors.New("denied")
	_, err = Result(context.Background(), sink, sampleResult(), time.Now())
	assert.ErrorContains(t, err, "denied")
}
