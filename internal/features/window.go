// Package features turns raw race tables into a leakage-free, model-ready feature table.
package features

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/keiba-edge/internal/models"
)

// Window is a lookback configuration: every prior race, or the most recent N.
// The zero value is the unbounded window.
type Window struct {
	n int
}

// WindowAll averages over every qualifying record.
var WindowAll = Window{}

// LastN returns a window over the n most recent qualifying records.
func LastN(n int) (Window, error) {
	if n <= 0 {
		return Window{}, fmt.Errorf("%w: window size must be a positive integer or \"all\", got %d", models.ErrInvalidArgument, n)
	}
	return Window{n: n}, nil
}

// ParseWindow parses "all" or a positive integer.
func ParseWindow(value string) (Window, error) {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, "all") {
		return WindowAll, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return Window{}, fmt.Errorf("%w: window must be a positive integer or \"all\", got %q", models.ErrInvalidArgument, value)
	}
	return LastN(n)
}

// ParseWindows parses a list of window identifiers, rejecting duplicates.
func ParseWindows(values []string) ([]Window, error) {
	windows := make([]Window, 0, len(values))
	seen := make(map[Window]struct{}, len(values))
	for _, value := range values {
		w, err := ParseWindow(value)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[w]; dup {
			return nil, fmt.Errorf("%w: duplicate window %s", models.ErrInvalidArgument, w)
		}
		seen[w] = struct{}{}
		windows = append(windows, w)
	}
	return windows, nil
}

// IsAll reports whether w is unbounded.
func (w Window) IsAll() bool {
	return w.n == 0
}

// N returns the record limit, 0 for the unbounded window.
func (w Window) N() int {
	return w.n
}

func (w Window) String() string {
	if w.IsAll() {
		return "all"
	}
	return strconv.Itoa(w.n)
}

// RankColumn names the average-finish-rank feature for w.
func (w Window) RankColumn() string {
	return "finish_rank_avg_" + w.String()
}

// PrizeColumn names the average-prize-money feature for w.
func (w Window) PrizeColumn() string {
	return "prize_avg_" + w.String()
}
