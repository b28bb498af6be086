package orders

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"id", "pair", "amount", "target_price", "condition", "status", "expiry"}

// WriteCSV writes one row per order. Orders without an expiry render the
// expiry column as "never".
func WriteCSV(w io.Writer, orders []LimitOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, order := range orders {
		expiry := "never"
		if order.ExpiresAt != nil {
			expiry = order.ExpiresAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			order.ID,
			order.Pair(),
			order.Amount,
			strconv.FormatFloat(order.TargetPrice, 'f', -1, 64),
			string(order.Condition),
			string(order.Status),
			expiry,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
