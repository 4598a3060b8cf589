package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finans/internal/core"
	"finans/internal/export"
	"finans/internal/log"
	"finans/internal/storage"
)

type transactionJSON struct {
	ID          string          `json:"id"`
	StatementID string          `json:"statement_id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		StatementID: t.StatementID,
		Date:        t.Date.Format(dateLayout),
		Description: t.Description,
		Merchant:    t.Merchant,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Category:    t.Category,
		CreatedAt:   t.CreatedAt,
	}
}

func transactionFilterFromQuery(r *http.Request) storage.TransactionFilter {
	q := r.URL.Query()
	return storage.TransactionFilter{
		StatementID: q.Get("statement_id"),
		CardID:      q.Get("card_id"),
		Category:    q.Get("category"),
		Search:      q.Get("search"),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context(), transactionFilterFromQuery(r))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List transactions failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionJSON(t))
	}
	respondJSON(w, http.StatusOK, out)
}

type transactionCreateRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

// handleCreateTransactions appends line items to an existing statement,
// for entries the extraction missed or manual corrections.
func (s *Server) handleCreateTransactions(w http.ResponseWriter, r *http.Request) {
	statementID := r.PathValue("id")

	var reqs []transactionCreateRequest
	if err := decodeJSON(r, &reqs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "transactions cannot be empty")
		return
	}

	txns := make([]core.Transaction, 0, len(reqs))
	for _, req := range reqs {
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "date must be formatted as YYYY-MM-DD")
			return
		}
		t := core.NewTransaction(statementID, date.UTC(), req.Description, req.Amount)
		t.Merchant = req.Merchant
		t.Category = req.Category
		if err := t.Validate(); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		txns = append(txns, t)
	}

	if err := s.store.CreateTransactions(r.Context(), txns); err != nil {
		s.logger.ErrorContext(r.Context(), "Create transactions failed",
			log.FieldError, err, log.FieldStatementID, statementID, log.FieldCount, len(txns))
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()

	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionJSON(t))
	}
	respondJSON(w, http.StatusCreated, out)
}

type categoryUpdateRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if err := s.store.UpdateTransactionCategory(r.Context(), id, req.Category); err != nil {
		s.logger.ErrorContext(r.Context(), "Update category failed",
			log.FieldError, err, log.FieldTransactionID, id)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}

type bulkCategoryRequest struct {
	IDs      []string `json:"ids"`
	Category string   `json:"category"`
}

func (s *Server) handleBulkUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req bulkCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids cannot be empty")
		return
	}
	if err := s.store.UpdateTransactionsCategory(r.Context(), req.IDs, req.Category); err != nil {
		s.logger.ErrorContext(r.Context(), "Bulk category update failed",
			log.FieldError, err, log.FieldCount, len(req.IDs))
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Delete transaction failed",
			log.FieldError, err, log.FieldTransactionID, id)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids cannot be empty")
		return
	}
	if err := s.store.DeleteTransactions(r.Context(), req.IDs); err != nil {
		s.logger.ErrorContext(r.Context(), "Bulk delete failed",
			log.FieldError, err, log.FieldCount, len(req.IDs))
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txns, err := s.store.ListTransactions(r.Context(), transactionFilterFromQuery(r))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := export.WriteCSV(w, txns); err != nil {
		s.logger.ErrorContext(r.Context(), "Write CSV failed", log.FieldError, err)
	}
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Clear data failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}
