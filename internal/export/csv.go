// Package export renders ledger transactions for download.
package export

import (
	"fmt"
	"io"
	"strings"

	"finans/internal/core"
)

// CSVHeader is the fixed column order of a transaction export.
const CSVHeader = "Date,Description,Merchant,Category,Amount,Currency"

const dateLayout = "2006-01-02"

// WriteCSV writes the transactions as CSV. Commas inside free-text
// fields are replaced with semicolons so each row keeps exactly six
// columns without quoting.
func WriteCSV(w io.Writer, txns []core.Transaction) error {
	if _, err := fmt.Fprintln(w, CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txns {
		row := strings.Join([]string{
			tx.Date.Format(dateLayout),
			sanitize(tx.Description),
			sanitize(tx.Merchant),
			sanitize(tx.CategoryOrOther()),
			tx.Amount.String(),
			tx.Currency,
		}, ",")
		if _, err := fmt.Fprintln(w, row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, ",", ";")
}
