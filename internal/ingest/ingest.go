// Package ingest turns an extraction result into durable ledger rows:
// it resolves the owning card, builds the statement and its
// transactions, and commits them in one atomic write.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"finans/internal/core"
	"finans/internal/extract"
	"finans/internal/log"
)

// DateLayout is the date format extractions use for statement and
// transaction dates.
const DateLayout = "2006-01-02"

// Store is the slice of the ledger store ingestion writes through.
type Store interface {
	FindCardByLastFour(ctx context.Context, lastFour string) (*core.Card, error)
	CreateCard(ctx context.Context, c core.Card) error
	CreateStatementWithTransactions(ctx context.Context, st core.Statement, txns []core.Transaction) error
}

// DocumentReadError reports that the statement document could not be
// read before extraction was even attempted.
type DocumentReadError struct {
	Path string
	Err  error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("read statement document %s: %v", e.Path, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// Receipt summarizes one completed ingestion.
type Receipt struct {
	StatementID      string `json:"statement_id"`
	CardID           string `json:"card_id"`
	CardCreated      bool   `json:"card_created"`
	TransactionCount int    `json:"transaction_count"`
}

// Service wires an extractor to the ledger store.
type Service struct {
	store     Store
	extractor extract.Extractor
	logger    *log.Logger
	now       func() time.Time
}

func NewService(store Store, extractor extract.Extractor, logger *log.Logger) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
		logger:    logger.WithComponent(log.ComponentIngest),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IngestFile reads the PDF at path and ingests it. A failure to read
// the file surfaces as a DocumentReadError and nothing is written.
func (s *Service) IngestFile(ctx context.Context, path string) (*Receipt, error) {
	pdf, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentReadError{Path: path, Err: err}
	}
	return s.IngestDocument(ctx, pdf, path)
}

// IngestDocument extracts the statement PDF and commits the resulting
// card, statement and transactions. Extraction failures abort before
// any write.
func (s *Service) IngestDocument(ctx context.Context, pdf []byte, pdfPath string) (*Receipt, error) {
	res, err := s.extractor.ParseStatement(ctx, pdf)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, res, pdfPath)
}

// Commit writes an extraction result to the ledger. The statement and
// all its transactions land in a single store transaction, so a
// half-written statement is never observable.
func (s *Service) Commit(ctx context.Context, res *extract.Result, pdfPath string) (*Receipt, error) {
	card, created, err := s.resolveCard(ctx, res.CardInfo)
	if err != nil {
		return nil, err
	}

	st, err := s.buildStatement(card.ID, res, pdfPath)
	if err != nil {
		return nil, err
	}
	txns := s.buildTransactions(st.ID, res.Transactions)

	if err := s.store.CreateStatementWithTransactions(ctx, st, txns); err != nil {
		return nil, fmt.Errorf("commit statement: %w", err)
	}

	log.NewStructuredLogger(s.logger).LogStatementIngested(ctx, st.ID, card.ID, len(txns))

	return &Receipt{
		StatementID:      st.ID,
		CardID:           card.ID,
		CardCreated:      created,
		TransactionCount: len(txns),
	}, nil
}

// resolveCard reuses an existing card when the extracted last-four
// digits match one; otherwise it creates a new card, falling back to a
// placeholder name when the extraction has none.
func (s *Service) resolveCard(ctx context.Context, info extract.CardInfo) (core.Card, bool, error) {
	if info.LastFour != "" {
		existing, err := s.store.FindCardByLastFour(ctx, info.LastFour)
		if err != nil {
			return core.Card{}, false, fmt.Errorf("resolve card: %w", err)
		}
		if existing != nil {
			return *existing, false, nil
		}
	}

	name := info.CardName
	if name == "" {
		name = core.UnknownCardName
	}
	card := core.NewCard(name, info.Bank, info.LastFour)
	if err := card.Validate(); err != nil {
		// Garbage last-four digits should not sink the whole
		// ingestion; drop them and keep the card.
		card.LastFour = ""
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return core.Card{}, false, fmt.Errorf("create card: %w", err)
	}
	return card, true, nil
}

func (s *Service) buildStatement(cardID string, res *extract.Result, pdfPath string) (core.Statement, error) {
	st := core.NewStatement(cardID)
	st.PeriodStart = parseDate(res.StatementInfo.PeriodStart)
	st.PeriodEnd = parseDate(res.StatementInfo.PeriodEnd)
	st.DueDate = parseDate(res.StatementInfo.DueDate)
	st.TotalAmount = res.StatementInfo.TotalAmount
	st.MinPayment = res.StatementInfo.MinPayment
	st.PDFPath = pdfPath

	raw, err := extract.Encode(res)
	if err != nil {
		return core.Statement{}, err
	}
	st.RawJSON = raw
	return st, nil
}

// buildTransactions keeps the extraction's ordering. Line items with
// no parsable date get the ingestion instant so they still land inside
// the current analytics window.
func (s *Service) buildTransactions(statementID string, items []extract.LineItem) []core.Transaction {
	now := s.now()
	txns := make([]core.Transaction, 0, len(items))
	for _, item := range items {
		date := now
		if d := parseDate(item.Date); d != nil {
			date = *d
		}
		tx := core.NewTransaction(statementID, date, item.Description, item.Amount)
		tx.Merchant = item.Merchant
		tx.Category = item.Category
		if tx.Description == "" {
			tx.Description = item.Merchant
		}
		txns = append(txns, tx)
	}
	return txns
}

// parseDate returns nil for empty or unparsable values; optional
// statement dates simply stay absent.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
