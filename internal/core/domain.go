package core

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an extraction omits the currency code.
const DefaultCurrency = "TRY"

// UnknownCardName labels cards created during ingestion when the
// extraction could not determine a card name.
const UnknownCardName = "Bilinmeyen Kart"

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCardID      = errors.New("empty card id")
	ErrEmptyStatementID = errors.New("empty statement id")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrInvalidLastFour  = errors.New("last four must be up to 4 digits")
)

type (
	// Card is a payment card the user tracks. LastFour, when present,
	// acts as a best-effort natural key during ingestion; it is not a
	// uniqueness constraint.
	Card struct {
		ID        string
		Name      string
		Bank      string
		LastFour  string
		CreatedAt time.Time
	}

	// Statement is one ingested billing-period document. Period and
	// monetary header fields are optional: the extraction may not have
	// been able to read them. RawJSON preserves the extraction payload
	// verbatim for audit.
	Statement struct {
		ID          string
		CardID      string
		PeriodStart *time.Time
		PeriodEnd   *time.Time
		TotalAmount *decimal.Decimal
		MinPayment  *decimal.Decimal
		DueDate     *time.Time
		PDFPath     string
		RawJSON     string
		CreatedAt   time.Time
	}

	// Transaction is one statement line item. Amount is signed:
	// positive means spend, negative means refund/credit. Category is a
	// display-name reference into the category set, never an id.
	Transaction struct {
		ID          string
		StatementID string
		Date        time.Time
		Description string
		Merchant    string
		Amount      decimal.Decimal
		Currency    string
		Category    string
		CreatedAt   time.Time
	}
)

// NewCard builds a card with a fresh id and creation time.
func NewCard(name, bank, lastFour string) Card {
	return Card{
		ID:        uuid.NewString(),
		Name:      name,
		Bank:      bank,
		LastFour:  lastFour,
		CreatedAt: time.Now().UTC(),
	}
}

// NewStatement builds a statement owned by cardID with a fresh id.
func NewStatement(cardID string) Statement {
	return Statement{
		ID:        uuid.NewString(),
		CardID:    cardID,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTransaction builds a transaction owned by statementID with a fresh id.
func NewTransaction(statementID string, date time.Time, description string, amount decimal.Decimal) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		StatementID: statementID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Currency:    DefaultCurrency,
		CreatedAt:   time.Now().UTC(),
	}
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.LastFour != "" {
		if len(c.LastFour) > 4 {
			return ErrInvalidLastFour
		}
		for _, r := range c.LastFour {
			if !unicode.IsDigit(r) {
				return ErrInvalidLastFour
			}
		}
	}
	return nil
}

func (s Statement) Validate() error {
	if s.CardID == "" {
		return ErrEmptyCardID
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.StatementID == "" {
		return ErrEmptyStatementID
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// CategoryOrOther returns the transaction's category label, or the
// fixed fallback label when the transaction carries none.
func (t Transaction) CategoryOrOther() string {
	if t.Category == "" {
		return OtherCategory
	}
	return t.Category
}
