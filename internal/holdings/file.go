package holdings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML map of ticker to share count. A missing file
// yields an empty map.
//
//	AAPL: 10
//	BHP.AX: 25
func LoadFile(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	var raw map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse holdings: %w", err)
	}
	out := make(map[string]int, len(raw))
	for ticker, shares := range raw {
		ticker = normalize(ticker)
		if ticker == "" {
			continue
		}
		if shares < 0 {
			return nil, fmt.Errorf("parse holdings: %s has negative shares %d", ticker, shares)
		}
		out[ticker] = shares
	}
	return out, nil
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
