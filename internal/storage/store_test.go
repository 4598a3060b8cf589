package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finans/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "finans.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testCard(name, lastFour string) core.Card {
	c := core.NewCard(name, "Garanti", lastFour)
	return c
}

func testStatement(cardID string) core.Statement {
	return core.NewStatement(cardID)
}

func testTransaction(statementID, description, amount, category string, date time.Time) core.Transaction {
	tx := core.NewTransaction(statementID, date, description, decimal.RequireFromString(amount))
	tx.Category = category
	return tx
}

func TestCardCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	got, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard() error = %v", err)
	}
	if got.Name != "Bonus" || got.Bank != "Garanti" || got.LastFour != "4242" {
		t.Errorf("GetCard() = %+v", got)
	}

	got.Name = "Bonus Platinum"
	if err := store.UpdateCard(ctx, got); err != nil {
		t.Fatalf("UpdateCard() error = %v", err)
	}
	got, _ = store.GetCard(ctx, card.ID)
	if got.Name != "Bonus Platinum" {
		t.Errorf("after update Name = %q", got.Name)
	}

	// Updating a missing id is a silent no-op.
	ghost := testCard("Ghost", "")
	if err := store.UpdateCard(ctx, ghost); err != nil {
		t.Errorf("UpdateCard(missing) error = %v", err)
	}

	if _, err := store.GetCard(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCard(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFindCardByLastFour(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}

	found, err := store.FindCardByLastFour(ctx, "4242")
	if err != nil {
		t.Fatalf("FindCardByLastFour() error = %v", err)
	}
	if found == nil || found.ID != card.ID {
		t.Errorf("FindCardByLastFour() = %+v, want card %s", found, card.ID)
	}

	none, err := store.FindCardByLastFour(ctx, "9999")
	if err != nil {
		t.Fatalf("FindCardByLastFour() error = %v", err)
	}
	if none != nil {
		t.Errorf("FindCardByLastFour(9999) = %+v, want nil", none)
	}
}

func TestCreateStatement_MissingCard(t *testing.T) {
	store := newTestStore(t)

	st := testStatement("no-such-card")
	err := store.CreateStatement(context.Background(), st)

	var cerr *ConstraintError
	if !errors.As(err, &cerr) {
		t.Fatalf("CreateStatement() error = %v, want ConstraintError", err)
	}
	if cerr.Parent != "card" {
		t.Errorf("ConstraintError.Parent = %q, want card", cerr.Parent)
	}
}

func TestCreateStatementWithTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}

	st := testStatement(card.ID)
	total := decimal.NewFromInt(1500)
	st.TotalAmount = &total

	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	txns := []core.Transaction{
		testTransaction(st.ID, "MIGROS", "1700", "Market", date),
		testTransaction(st.ID, "IADE - TRENDYOL", "-200", "İade", date),
	}

	if err := store.CreateStatementWithTransactions(ctx, st, txns); err != nil {
		t.Fatalf("CreateStatementWithTransactions() error = %v", err)
	}

	count, err := store.TransactionCount(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("TransactionCount() = %d, want 2", count)
	}

	got, err := store.GetStatement(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalAmount == nil || !got.TotalAmount.Equal(total) {
		t.Errorf("TotalAmount = %v, want 1500", got.TotalAmount)
	}
	if got.PeriodStart != nil {
		t.Errorf("PeriodStart = %v, want nil", got.PeriodStart)
	}
}

func TestCreateTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	st := testStatement(card.ID)
	if err := store.CreateStatement(ctx, st); err != nil {
		t.Fatal(err)
	}

	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	txns := []core.Transaction{
		testTransaction(st.ID, "MIGROS", "1700", "Market", date),
		testTransaction(st.ID, "IADE - TRENDYOL", "-200", "İade", date),
	}
	if err := store.CreateTransactions(ctx, txns); err != nil {
		t.Fatalf("CreateTransactions() error = %v", err)
	}

	got, err := store.ListTransactions(ctx, TransactionFilter{StatementID: st.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("inserted = %d, want 2", len(got))
	}
}

func TestCreateTransactions_MissingStatement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	err := store.CreateTransactions(ctx, []core.Transaction{
		testTransaction("no-such-statement", "MIGROS", "350", "Market", date),
	})

	var cerr *ConstraintError
	if !errors.As(err, &cerr) {
		t.Fatalf("CreateTransactions() error = %v, want ConstraintError", err)
	}
	if cerr.Parent != "statement" || cerr.ParentID != "no-such-statement" {
		t.Errorf("ConstraintError = %+v", cerr)
	}
}

func TestCreateTransactions_PartialBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	st := testStatement(card.ID)
	if err := store.CreateStatement(ctx, st); err != nil {
		t.Fatal(err)
	}

	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	err := store.CreateTransactions(ctx, []core.Transaction{
		testTransaction(st.ID, "MIGROS", "350", "Market", date),
		testTransaction("no-such-statement", "SHELL", "900", "Ulaşım", date),
	})
	if err == nil {
		t.Fatal("CreateTransactions() error = nil, want constraint failure")
	}

	// Rows are inserted in order, so the valid first row survives.
	got, listErr := store.ListTransactions(ctx, TransactionFilter{StatementID: st.ID})
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(got) != 1 || got[0].Description != "MIGROS" {
		t.Errorf("persisted rows = %+v, want the first row only", got)
	}
}

func TestListTransactions_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	st := testStatement(card.ID)
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	txns := []core.Transaction{
		testTransaction(st.ID, "MIGROS ATASEHIR", "350", "Market", date),
		testTransaction(st.ID, "Netflix abonelik", "120", "Abonelik", date.AddDate(0, 0, 1)),
		testTransaction(st.ID, "SHELL BENZIN", "900", "Ulaşım", date.AddDate(0, 0, 2)),
	}
	if err := store.CreateStatementWithTransactions(ctx, st, txns); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		want   int
	}{
		{name: "all by statement", filter: TransactionFilter{StatementID: st.ID}, want: 3},
		{name: "by card", filter: TransactionFilter{CardID: card.ID}, want: 3},
		{name: "by category", filter: TransactionFilter{Category: "Market"}, want: 1},
		{name: "search description", filter: TransactionFilter{Search: "migros"}, want: 1},
		{name: "search no match", filter: TransactionFilter{Search: "starbucks"}, want: 0},
		{name: "unknown card", filter: TransactionFilter{CardID: "nope"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	// Newest first.
	all, err := store.ListTransactions(ctx, TransactionFilter{StatementID: st.ID})
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Description != "SHELL BENZIN" {
		t.Errorf("first transaction = %q, want newest", all[0].Description)
	}
}

func TestUpdateTransactionsCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	st := testStatement(card.ID)
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	txns := []core.Transaction{
		testTransaction(st.ID, "A", "10", "Market", date),
		testTransaction(st.ID, "B", "20", "Market", date),
		testTransaction(st.ID, "C", "30", "", date),
	}
	if err := store.CreateStatementWithTransactions(ctx, st, txns); err != nil {
		t.Fatal(err)
	}

	ids := []string{txns[0].ID, txns[1].ID, txns[2].ID}
	if err := store.UpdateTransactionsCategory(ctx, ids, "Eğlence"); err != nil {
		t.Fatalf("UpdateTransactionsCategory() error = %v", err)
	}

	moved, err := store.ListTransactions(ctx, TransactionFilter{Category: "Eğlence"})
	if err != nil {
		t.Fatal(err)
	}
	if len(moved) != 3 {
		t.Errorf("relabeled = %d, want 3", len(moved))
	}
	old, _ := store.ListTransactions(ctx, TransactionFilter{Category: "Market"})
	if len(old) != 0 {
		t.Errorf("still labeled Market = %d, want 0", len(old))
	}
}

func TestDeleteCard_Cascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	st := testStatement(card.ID)
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	txns := []core.Transaction{
		testTransaction(st.ID, "MIGROS", "350", "Market", date),
		testTransaction(st.ID, "SHELL", "900", "Ulaşım", date),
	}
	if err := store.CreateStatementWithTransactions(ctx, st, txns); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}

	if _, err := store.GetCard(ctx, card.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("card still present after cascade")
	}
	statements, err := store.ListStatements(ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(statements) != 0 {
		t.Errorf("statements left after cascade = %d", len(statements))
	}
	orphans, err := store.ListTransactions(ctx, TransactionFilter{StatementID: st.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Errorf("transactions left after cascade = %d", len(orphans))
	}
}

func TestAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	st := testStatement(card.ID)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	txns := []core.Transaction{
		testTransaction(st.ID, "MIGROS", "1700", "Market", feb),
		testTransaction(st.ID, "IADE", "-200", "İade", feb),
		testTransaction(st.ID, "SHELL", "0.10", "Ulaşım", mar),
		testTransaction(st.ID, "SHELL2", "0.20", "Ulaşım", mar),
	}
	if err := store.CreateStatementWithTransactions(ctx, st, txns); err != nil {
		t.Fatal(err)
	}

	febStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	febEnd := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)

	sum, err := store.SumAmount(ctx, febStart, febEnd)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("SumAmount(feb) = %s, want 1500", sum)
	}

	// Exact decimal addition, no float drift.
	marStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	marEnd := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	sum, err = store.SumAmount(ctx, marStart, marEnd)
	if err != nil {
		t.Fatal(err)
	}
	if sum.String() != "0.3" {
		t.Errorf("SumAmount(mar) = %s, want 0.3", sum)
	}

	sums, err := store.CategorySums(ctx, febStart, febEnd)
	if err != nil {
		t.Fatal(err)
	}
	if !sums["Market"].Equal(decimal.NewFromInt(1700)) || !sums["İade"].Equal(decimal.NewFromInt(-200)) {
		t.Errorf("CategorySums(feb) = %v", sums)
	}

	count, err := store.CountTransactions(ctx, febStart, febEnd)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("CountTransactions(feb) = %d, want 2", count)
	}

	recent, err := store.RecentTransactions(ctx, febStart, marEnd, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 4 || !recent[0].Date.After(recent[len(recent)-1].Date) {
		t.Errorf("RecentTransactions ordering off: %d rows", len(recent))
	}

	months, err := store.DistinctMonths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 {
		t.Fatalf("DistinctMonths() = %d, want 2", len(months))
	}
	if months[0].Month() != time.March || months[1].Month() != time.February {
		t.Errorf("DistinctMonths order = %v", months)
	}
}

func TestCategories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	all, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(core.DefaultCategories) {
		t.Fatalf("ListCategories() = %d, want %d built-ins", len(all), len(core.DefaultCategories))
	}

	custom := core.NewCategory("Evcil Hayvan", "pawprint.fill", "#8b5cf6")
	if err := store.CreateCategory(ctx, custom); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	all, _ = store.ListCategories(ctx)
	if len(all) != len(core.DefaultCategories)+1 {
		t.Fatalf("ListCategories() after create = %d", len(all))
	}
	last := all[len(all)-1]
	if !last.IsCustom || last.Name != "Evcil Hayvan" {
		t.Errorf("custom category = %+v", last)
	}

	if err := store.DeleteCategory(ctx, custom.ID); err != nil {
		t.Fatal(err)
	}
	all, _ = store.ListCategories(ctx)
	if len(all) != len(core.DefaultCategories) {
		t.Errorf("ListCategories() after delete = %d", len(all))
	}
}

func TestConcurrentReadDuringWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finans.db")

	writer, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { writer.Close() })
	reader, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { reader.Close() })

	ctx := context.Background()
	card := testCard("Bonus", "4242")
	if err := writer.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}

	// The API process reads while the worker process commits; the busy
	// timeout has to absorb the write lock instead of erroring out.
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	done := make(chan error, 1)
	go func() {
		for i := 0; i < 20; i++ {
			st := testStatement(card.ID)
			txns := []core.Transaction{
				testTransaction(st.ID, "MIGROS", "350", "Market", date),
				testTransaction(st.ID, "SHELL", "900", "Ulaşım", date),
			}
			if err := writer.CreateStatementWithTransactions(ctx, st, txns); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for i := 0; i < 20; i++ {
		if _, err := reader.ListTransactions(ctx, TransactionFilter{CardID: card.ID}); err != nil {
			t.Fatalf("ListTransactions() during writes error = %v", err)
		}
		if _, err := reader.SumAmount(ctx, date.AddDate(0, 0, -1), date.AddDate(0, 0, 1)); err != nil {
			t.Fatalf("SumAmount() during writes error = %v", err)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("writer error = %v", err)
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard("Bonus", "4242")
	if err := store.CreateCard(ctx, card); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	cards, err := store.ListCards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 0 {
		t.Errorf("cards after ClearAll = %d", len(cards))
	}
}
