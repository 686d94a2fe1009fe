package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/ledger"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "trustcade"})
}

func (s *Server) handlePrizes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prizes": s.engine.GetPrizes()})
}

type spinRequest struct {
	ParticipantID string `json:"participantId"`
}

func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	var req spinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	res, err := s.engine.Spin(r.Context(), req.ParticipantID, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Eligibility(r.PathValue("id"), s.now()))
}

func (s *Server) handleParticipantWins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"wins": s.engine.ParticipantWins(r.PathValue("id"))})
}

func (s *Server) handleParticipantSpins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"spins": s.engine.ParticipantSpins(r.PathValue("id"))})
}

type registerRequest struct {
	DisplayName string `json:"displayName"`
}

func (s *Server) handleRegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	p, err := s.engine.RegisterParticipant(r.Context(), r.PathValue("id"), req.DisplayName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type claimRequest struct {
	ParticipantID string `json:"participantId"`
	ledger.ClaimDetails
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "participantId required", "VALIDATION")
		return
	}
	win, err := s.engine.Claim(r.Context(), r.PathValue("id"), req.ParticipantID, req.ClaimDetails, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

func (s *Server) handleRecentWinners(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer", "INVALID_LIMIT")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"winners": s.engine.RecentWinners(limit)})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer", "INVALID_LIMIT")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": s.engine.Leaderboard(limit)})
}

type shipRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (s *Server) handleShip(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
			return
		}
	}
	win, err := s.engine.Ship(r.Context(), r.PathValue("id"), req.TrackingNumber, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	win, err := s.engine.Deliver(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prizes": s.engine.Catalog()})
}

type catalogRequest struct {
	Prizes []catalog.Prize `json:"prizes"`
}

func (s *Server) handlePutCatalog(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	if err := s.engine.ReplaceCatalog(r.Context(), req.Prizes); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prizes": s.engine.Catalog()})
}

func (s *Server) handlePatchPrize(w http.ResponseWriter, r *http.Request) {
	var patch catalog.PrizePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	p, err := s.engine.UpdatePrize(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer", "INVALID_LIMIT")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.engine.AuditLog(limit)})
}
