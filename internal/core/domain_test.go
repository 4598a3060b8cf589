package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCard_Validate(t *testing.T) {
	tests := []struct {
		name    string
		card    Card
		wantErr error
	}{
		{
			name: "valid card",
			card: Card{ID: "c1", Name: "Bonus Card", LastFour: "1234"},
		},
		{
			name: "valid card without last four",
			card: Card{ID: "c1", Name: "Bonus Card"},
		},
		{
			name:    "empty name",
			card:    Card{ID: "c1", Name: "   "},
			wantErr: ErrEmptyName,
		},
		{
			name:    "last four too long",
			card:    Card{ID: "c1", Name: "Bonus", LastFour: "12345"},
			wantErr: ErrInvalidLastFour,
		},
		{
			name:    "last four not digits",
			card:    Card{ID: "c1", Name: "Bonus", LastFour: "12a4"},
			wantErr: ErrInvalidLastFour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		ID:          "t1",
		StatementID: "s1",
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "MIGROS",
		Amount:      decimal.NewFromInt(250),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "missing statement", mutate: func(tx *Transaction) { tx.StatementID = "" }, wantErr: ErrEmptyStatementID},
		{name: "zero date", mutate: func(tx *Transaction) { tx.Date = time.Time{} }, wantErr: ErrZeroDate},
		{name: "empty description", mutate: func(tx *Transaction) { tx.Description = " " }, wantErr: ErrEmptyDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransaction_CategoryOrOther(t *testing.T) {
	tx := Transaction{Category: "Market"}
	if got := tx.CategoryOrOther(); got != "Market" {
		t.Errorf("CategoryOrOther() = %q, want Market", got)
	}
	tx.Category = ""
	if got := tx.CategoryOrOther(); got != OtherCategory {
		t.Errorf("CategoryOrOther() = %q, want %q", got, OtherCategory)
	}
}

func TestNewCard_AssignsIdentity(t *testing.T) {
	a := NewCard("Bonus", "Garanti", "1234")
	b := NewCard("Bonus", "Garanti", "1234")
	if a.ID == "" || b.ID == "" {
		t.Fatal("NewCard() must assign an id")
	}
	if a.ID == b.ID {
		t.Errorf("NewCard() produced duplicate ids: %s", a.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Error("NewCard() must set CreatedAt")
	}
}

func TestDefaultCategories(t *testing.T) {
	if len(DefaultCategories) != 13 {
		t.Fatalf("len(DefaultCategories) = %d, want 13", len(DefaultCategories))
	}
	for _, c := range DefaultCategories {
		if c.IsCustom {
			t.Errorf("built-in category %q marked custom", c.Name)
		}
	}
	last := DefaultCategories[len(DefaultCategories)-1]
	if last.Name != OtherCategory {
		t.Errorf("last built-in = %q, want %q", last.Name, OtherCategory)
	}
}

func TestPercentageOf(t *testing.T) {
	tests := []struct {
		name  string
		part  string
		total string
		want  string
	}{
		{name: "simple share", part: "50", total: "200", want: "25"},
		{name: "zero total", part: "50", total: "0", want: "0"},
		{name: "negative total", part: "50", total: "-10", want: "0"},
		{name: "refund share", part: "-200", total: "1500", want: "-13.33333333333333"},
		{name: "over 100", part: "1700", total: "1500", want: "113.33333333333333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := decimal.RequireFromString(tt.part)
			total := decimal.RequireFromString(tt.total)
			want := decimal.RequireFromString(tt.want)
			if got := PercentageOf(part, total); !got.Equal(want) {
				t.Errorf("PercentageOf(%s, %s) = %s, want %s", tt.part, tt.total, got, tt.want)
			}
		})
	}
}
