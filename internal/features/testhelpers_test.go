package features

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/models"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := models.ParseDate(value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

func result(t *testing.T, horseID, date string, rank int, prize float64) models.HistoricalResult {
	return models.HistoricalResult{HorseID: horseID, Date: day(t, date), FinishRank: rank, PrizeMoney: prize}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func mustWindow(t *testing.T, n int) Window {
	t.Helper()
	w, err := LastN(n)
	if err != nil {
		t.Fatalf("LastN(%d): %v", n, err)
	}
	return w
}
