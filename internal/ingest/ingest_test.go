package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finans/internal/core"
	"finans/internal/extract"
	"finans/internal/log"
)

type fakeStore struct {
	cards      []core.Card
	statements []core.Statement
	txns       []core.Transaction
	commits    int
}

func (f *fakeStore) FindCardByLastFour(_ context.Context, lastFour string) (*core.Card, error) {
	for _, c := range f.cards {
		if c.LastFour == lastFour {
			card := c
			return &card, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateCard(_ context.Context, c core.Card) error {
	f.cards = append(f.cards, c)
	return nil
}

func (f *fakeStore) CreateStatementWithTransactions(_ context.Context, st core.Statement, txns []core.Transaction) error {
	f.statements = append(f.statements, st)
	f.txns = append(f.txns, txns...)
	f.commits++
	return nil
}

type fakeExtractor struct {
	result *extract.Result
	err    error
}

func (f *fakeExtractor) ParseStatement(context.Context, []byte) (*extract.Result, error) {
	return f.result, f.err
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestService(store *fakeStore, ex extract.Extractor) *Service {
	svc := NewService(store, ex, quietLogger())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func sampleResult() *extract.Result {
	total := decimal.NewFromInt(1500)
	return &extract.Result{
		CardInfo: extract.CardInfo{
			Bank:     "Garanti",
			CardName: "Bonus",
			LastFour: "4242",
		},
		StatementInfo: extract.StatementInfo{
			PeriodStart: "2024-02-01",
			PeriodEnd:   "2024-02-29",
			TotalAmount: &total,
			DueDate:     "2024-03-10",
		},
		Transactions: []extract.LineItem{
			{Date: "2024-02-10", Description: "MIGROS", Merchant: "Migros", Amount: decimal.NewFromInt(1700), Category: "Market"},
			{Date: "2024-02-12", Description: "IADE - TRENDYOL", Amount: decimal.NewFromInt(-200), Category: "İade"},
		},
	}
}

func TestIngestDocument(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeExtractor{result: sampleResult()})

	receipt, err := svc.IngestDocument(context.Background(), []byte("%PDF"), "/docs/feb.pdf")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	if receipt.TransactionCount != 2 || !receipt.CardCreated {
		t.Errorf("receipt = %+v", receipt)
	}
	if len(store.cards) != 1 || store.cards[0].Name != "Bonus" || store.cards[0].LastFour != "4242" {
		t.Errorf("card = %+v", store.cards)
	}

	st := store.statements[0]
	if st.CardID != store.cards[0].ID {
		t.Errorf("statement card id = %q", st.CardID)
	}
	if st.PeriodStart == nil || !st.PeriodStart.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PeriodStart = %v", st.PeriodStart)
	}
	if st.DueDate == nil || !st.DueDate.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DueDate = %v", st.DueDate)
	}
	if st.PDFPath != "/docs/feb.pdf" {
		t.Errorf("PDFPath = %q", st.PDFPath)
	}
	if st.RawJSON == "" {
		t.Error("RawJSON not preserved")
	}

	// Extraction order survives ingestion.
	if store.txns[0].Description != "MIGROS" || store.txns[1].Description != "IADE - TRENDYOL" {
		t.Errorf("transaction order = %+v", store.txns)
	}
	if store.txns[0].Currency != core.DefaultCurrency {
		t.Errorf("currency = %q", store.txns[0].Currency)
	}
}

func TestIngest_ReusesCardByLastFour(t *testing.T) {
	existing := core.NewCard("Eski Kart", "Akbank", "4242")
	store := &fakeStore{cards: []core.Card{existing}}
	svc := newTestService(store, &fakeExtractor{result: sampleResult()})

	receipt, err := svc.IngestDocument(context.Background(), []byte("%PDF"), "")
	if err != nil {
		t.Fatal(err)
	}
	if receipt.CardCreated {
		t.Error("created a new card despite matching last four")
	}
	if receipt.CardID != existing.ID {
		t.Errorf("CardID = %q, want %q", receipt.CardID, existing.ID)
	}
	if len(store.cards) != 1 {
		t.Errorf("cards = %d, want 1", len(store.cards))
	}
}

func TestIngest_UnknownCardFallback(t *testing.T) {
	res := sampleResult()
	res.CardInfo = extract.CardInfo{}
	store := &fakeStore{}
	svc := newTestService(store, &fakeExtractor{result: res})

	if _, err := svc.IngestDocument(context.Background(), []byte("%PDF"), ""); err != nil {
		t.Fatal(err)
	}
	if store.cards[0].Name != core.UnknownCardName {
		t.Errorf("card name = %q, want %q", store.cards[0].Name, core.UnknownCardName)
	}
}

func TestIngest_BadTransactionDateUsesIngestionInstant(t *testing.T) {
	res := sampleResult()
	res.Transactions = []extract.LineItem{
		{Date: "not-a-date", Description: "SHELL", Amount: decimal.NewFromInt(900)},
		{Description: "MIGROS", Amount: decimal.NewFromInt(100)},
	}
	store := &fakeStore{}
	svc := newTestService(store, &fakeExtractor{result: res})

	if _, err := svc.IngestDocument(context.Background(), []byte("%PDF"), ""); err != nil {
		t.Fatal(err)
	}

	want := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	for _, tx := range store.txns {
		if !tx.Date.Equal(want) {
			t.Errorf("date = %v, want ingestion instant", tx.Date)
		}
	}
}

func TestIngest_ExtractionFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	extErr := &extract.ExtractionError{Reason: "unparsable model output"}
	svc := newTestService(store, &fakeExtractor{err: extErr})

	_, err := svc.IngestDocument(context.Background(), []byte("%PDF"), "")
	var got *extract.ExtractionError
	if !errors.As(err, &got) {
		t.Fatalf("error = %v, want ExtractionError", err)
	}
	if store.commits != 0 || len(store.cards) != 0 {
		t.Error("writes happened despite extraction failure")
	}
}

func TestIngestFile_MissingDocument(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeExtractor{result: sampleResult()})

	_, err := svc.IngestFile(context.Background(), "/nonexistent/statement.pdf")
	var docErr *DocumentReadError
	if !errors.As(err, &docErr) {
		t.Fatalf("error = %v, want DocumentReadError", err)
	}
}

func TestIngest_MissingPeriodStaysAbsent(t *testing.T) {
	res := sampleResult()
	res.StatementInfo = extract.StatementInfo{}
	store := &fakeStore{}
	svc := newTestService(store, &fakeExtractor{result: res})

	if _, err := svc.IngestDocument(context.Background(), []byte("%PDF"), ""); err != nil {
		t.Fatal(err)
	}
	st := store.statements[0]
	if st.PeriodStart != nil || st.PeriodEnd != nil || st.TotalAmount != nil || st.DueDate != nil {
		t.Errorf("optional fields should stay nil: %+v", st)
	}
}
