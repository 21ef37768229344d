package storage

import (
	"fmt"
	"time"

	"github.com/rewired-gh/botia5m/internal/models"
)

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(models.TimestampLayout, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ledger timestamp %q: %w", ts, err)
	}
	return t, nil
}
