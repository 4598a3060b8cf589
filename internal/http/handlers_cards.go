package http

import (
	"net/http"
	"time"

	"finans/internal/core"
	"finans/internal/log"
)

type cardJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bank      string    `json:"bank,omitempty"`
	LastFour  string    `json:"last_four,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCardJSON(c core.Card) cardJSON {
	return cardJSON{
		ID:        c.ID,
		Name:      c.Name,
		Bank:      c.Bank,
		LastFour:  c.LastFour,
		CreatedAt: c.CreatedAt,
	}
}

type cardRequest struct {
	Name     string `json:"name"`
	Bank     string `json:"bank"`
	LastFour string `json:"last_four"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCards(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List cards failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	out := make([]cardJSON, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardJSON(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	card := core.NewCard(req.Name, req.Bank, req.LastFour)
	if err := card.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.CreateCard(r.Context(), card); err != nil {
		s.logger.ErrorContext(r.Context(), "Create card failed", log.FieldError, err)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusCreated, toCardJSON(card))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.GetCard(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCardJSON(card))
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.store.GetCard(r.Context(), r.PathValue("id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	card.Name = req.Name
	card.Bank = req.Bank
	card.LastFour = req.LastFour
	if err := card.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdateCard(r.Context(), card); err != nil {
		s.logger.ErrorContext(r.Context(), "Update card failed", log.FieldError, err, log.FieldCardID, card.ID)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusOK, toCardJSON(card))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteCard(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Delete card failed", log.FieldError, err, log.FieldCardID, id)
		respondStoreError(w, err)
		return
	}
	s.invalidateDerived()
	respondJSON(w, http.StatusNoContent, nil)
}
