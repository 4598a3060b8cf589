// Package extract defines the statement-extraction contract produced
// by the AI provider and consumed by ingestion. The engine is agnostic
// to which provider produced a Result; unknown category labels pass
// through unchanged.
package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type (
	// Result is one extraction of a statement PDF.
	Result struct {
		CardInfo      CardInfo      `json:"card_info"`
		StatementInfo StatementInfo `json:"statement_info"`
		Transactions  []LineItem    `json:"transactions"`
	}

	CardInfo struct {
		Bank     string `json:"bank,omitempty"`
		CardName string `json:"card_name,omitempty"`
		LastFour string `json:"last_four,omitempty"`
	}

	// StatementInfo carries the statement header. Dates are YYYY-MM-DD
	// strings; any of them may be missing or unparsable.
	StatementInfo struct {
		PeriodStart string           `json:"period_start,omitempty"`
		PeriodEnd   string           `json:"period_end,omitempty"`
		TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
		MinPayment  *decimal.Decimal `json:"min_payment,omitempty"`
		DueDate     string           `json:"due_date,omitempty"`
	}

	// LineItem is one extracted transaction. Amount is signed: positive
	// for spend, negative for refunds.
	LineItem struct {
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Merchant    string          `json:"merchant,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category,omitempty"`
	}
)

// Extractor turns a statement PDF into a structured Result.
type Extractor interface {
	ParseStatement(ctx context.Context, pdf []byte) (*Result, error)
}

// ExtractionError reports that the upstream AI call failed or returned
// data that does not satisfy the contract. Ingestion aborts before any
// write when it sees one; retrying is the caller's decision.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Decode parses raw model output into a Result.
func Decode(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &ExtractionError{Reason: "unparsable model output", Err: err}
	}
	return &res, nil
}

// Encode serializes a Result back to JSON, used to preserve the raw
// payload on the statement record.
func Encode(res *Result) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode extraction result: %w", err)
	}
	return string(data), nil
}
