package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/platinummonkey/backer/pkg/subscriptions"
)

// Header is the first CSV record of every export
var Header = []string{"email", "name", "created_at", "active", "tier"}

// WriteCSV writes rows as CSV with Header
func WriteCSV(w io.Writer, rows []subscriptions.SubscriberRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Email,
			row.Name,
			row.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(row.Active),
			row.Tier,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
