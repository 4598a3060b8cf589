package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finans/internal/core"
	"finans/internal/extract"
	"finans/internal/ingest"
	"finans/internal/log"
)

// maxUploadBytes caps statement PDF uploads.
const maxUploadBytes = 20 << 20

const dateLayout = "2006-01-02"

type statementJSON struct {
	ID               string           `json:"id"`
	CardID           string           `json:"card_id"`
	PeriodStart      string           `json:"period_start,omitempty"`
	PeriodEnd        string           `json:"period_end,omitempty"`
	TotalAmount      *decimal.Decimal `json:"total_amount,omitempty"`
	MinPayment       *decimal.Decimal `json:"min_payment,omitempty"`
	DueDate          string           `json:"due_date,omitempty"`
	PDFPath          string           `json:"pdf_path,omitempty"`
	TransactionCount int              `json:"transaction_count"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (s *Server) toStatementJSON(r *http.Request, st core.Statement) statementJSON {
	count, err := s.store.TransactionCount(r.Context(), st.ID)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Transaction count failed",
			log.FieldError, err, log.FieldStatementID, st.ID)
	}
	return statementJSON{
		ID:               st.ID,
		CardID:           st.CardID,
		PeriodStart:      formatDatePtr(st.PeriodStart),
		PeriodEnd:        formatDatePtr(st.PeriodEnd),
		TotalAmount:      st.TotalAmount,
		MinPayment:       st.MinPayment,
		DueDate:          formatDatePtr(st.DueDate),
		PDFPath:          st.PDFPath,
		TransactionCount: count,
		CreatedAt:        st.CreatedAt,
	}
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func (s *Server) handleListStatements(w http.ResponseWriter, r *http.Request) {
	statements, err := s.store.ListStatements(r.Context(), r.URL.Query().Get("card_id"))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List statements failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	out := make([]statementJSON, 0, len(statements))
	for _, st := range statements {
		out = append(out, s.toStatementJSON(r, st))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetStatement(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toStatementJSON(r, st))
}

func (s *Server) handleDeleteStatement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteStatement(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Delete statement failed", log.FieldError, err, log.FieldStatementID, id)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}

type uploadAccepted struct {
	UploadID string `json:"upload_id"`
	PDFPath  string `json:"pdf_path"`
	Status   string `json:"status"`
}

// handleUploadStatement stores the PDF under the documents directory
// and either queues it for the worker (202) or, with no broker
// configured, ingests it in-line (201).
func (s *Server) handleUploadStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable upload")
		return
	}
	if len(pdf) == 0 {
		respondError(w, http.StatusBadRequest, "empty upload")
		return
	}

	uploadID := uuid.NewString()
	pdfPath := filepath.Join(s.docsDir, uploadID+".pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		s.logger.ErrorContext(r.Context(), "Persist upload failed", log.FieldError, err, log.FieldPDFPath, pdfPath)
		respondError(w, http.StatusInternalServerError, "could not store document")
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishStatementUploaded(r.Context(), uploadID, pdfPath); err != nil {
			s.logger.ErrorContext(r.Context(), "Publish upload failed", log.FieldError, err, log.FieldPDFPath, pdfPath)
			respondError(w, http.StatusServiceUnavailable, "ingestion queue unavailable")
			return
		}
		respondJSON(w, http.StatusAccepted, uploadAccepted{
			UploadID: uploadID,
			PDFPath:  pdfPath,
			Status:   "queued",
		})
		return
	}

	if s.ingestor == nil {
		respondError(w, http.StatusServiceUnavailable, "ingestion not configured")
		return
	}
	receipt, err := s.ingestor.IngestDocument(r.Context(), pdf, pdfPath)
	if err != nil {
		s.respondIngestError(w, r, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusCreated, receipt)
}

func (s *Server) respondIngestError(w http.ResponseWriter, r *http.Request, err error) {
	var extractionErr *extract.ExtractionError
	var readErr *ingest.DocumentReadError
	switch {
	case errors.As(err, &extractionErr):
		s.logger.WarnContext(r.Context(), "Extraction failed", log.FieldError, err)
		respondError(w, http.StatusUnprocessableEntity, extractionErr.Error())
	case errors.As(err, &readErr):
		respondError(w, http.StatusBadRequest, readErr.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Ingestion failed", log.FieldError, err)
		respondStoreError(w, err)
	}
}
