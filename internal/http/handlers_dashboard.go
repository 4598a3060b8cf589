package http

import (
	"net/http"
	"strings"
	"time"

	"finans/internal/core"
	"finans/internal/log"
	"finans/internal/period"
)

const monthLayout = "2006-01"

// handleDashboard serves the spending snapshot for a logical period.
// Query params: filter (defaults to thisMonth) and date (required for
// specificMonth).
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filterParam := q.Get("filter")
	if filterParam == "" {
		filterParam = string(period.ThisMonth)
	}
	filter, err := period.ParseFilter(filterParam)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	ref := now
	if filter == period.SpecificMonth {
		ref, err = parseMonthParam(q.Get("date"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM or YYYY-MM-DD")
			return
		}
	}
	rng := period.Resolve(filter, now, ref)

	cacheKey := filterParam + "|" + rng.Start.Format(dateLayout) + "|" + rng.End.Format(dateLayout)
	if stats, ok := s.dashboardCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := s.engine.Dashboard(r.Context(), rng)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard failed", log.FieldError, err, log.FieldFilter, filterParam)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.dashboardCache.Set(cacheKey, stats)
	respondJSON(w, http.StatusOK, stats)
}

// handleComparison contrasts two months given as month1/month2 query
// params in YYYY-MM form.
func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month1, err1 := parseMonthParam(q.Get("month1"))
	month2, err2 := parseMonthParam(q.Get("month2"))
	if err1 != nil || err2 != nil {
		respondError(w, http.StatusBadRequest, "month1 and month2 must be YYYY-MM")
		return
	}

	cmp, err := s.engine.Compare(r.Context(), month1, month2)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Comparison failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.engine.MonthsAvailable(r.Context(), time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Months lookup failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]string, 0, len(months))
	for _, m := range months {
		out = append(out, m.Format(monthLayout))
	}
	respondJSON(w, http.StatusOK, out)
}

func parseMonthParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(monthLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, value)
}

type categoryJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	IsCustom bool   `json:"is_custom"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:       c.ID,
		Name:     c.Name,
		Icon:     c.Icon,
		Color:    c.Color,
		IsCustom: c.IsCustom,
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List categories failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryJSON(c))
	}
	respondJSON(w, http.StatusOK, out)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusUnprocessableEntity, "name cannot be empty")
		return
	}

	category := core.NewCategory(req.Name, req.Icon, req.Color)
	if err := s.store.CreateCategory(r.Context(), category); err != nil {
		s.logger.ErrorContext(r.Context(), "Create category failed", log.FieldError, err, log.FieldCategory, req.Name)
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryJSON(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Delete category failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
