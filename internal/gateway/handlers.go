package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gambitworks/chessvault/internal/domain"
)

type createMatchRequest struct {
	Challenger string        `json:"challenger"`
	Opponent   string        `json:"opponent"`
	Style      string        `json:"style"`
	BetAssetID uint32        `json:"bet_asset_id"`
	BetAmount  domain.Amount `json:"bet_amount"`
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type moveRequest struct {
	Caller string `json:"caller"`
	Move   string `json:"move"`
}

func (g *Gateway) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	if strings.TrimSpace(req.Challenger) == "" || strings.TrimSpace(req.Opponent) == "" {
		errorResponse(w, http.StatusBadRequest, "challenger and opponent are required")
		return
	}
	style, err := domain.ParseStyle(req.Style)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	m, err := g.eng.CreateMatch(r.Context(),
		domain.AccountID(req.Challenger), domain.AccountID(req.Opponent),
		style, domain.AssetID(req.BetAssetID), req.BetAmount)
	if err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"match": m})
}

func (g *Gateway) abortMatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromBody(w, r)
	if !ok {
		return
	}
	if err := g.eng.AbortMatch(r.Context(), caller, matchID(r)); err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"aborted": true})
}

func (g *Gateway) joinMatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromBody(w, r)
	if !ok {
		return
	}
	id := matchID(r)
	if err := g.eng.JoinMatch(r.Context(), caller, id); err != nil {
		mapEngineError(w, err)
		return
	}
	m, err := g.eng.GetMatch(r.Context(), id)
	if err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": m})
}

func (g *Gateway) makeMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	if strings.TrimSpace(req.Caller) == "" {
		errorResponse(w, http.StatusBadRequest, "caller is required")
		return
	}
	id := matchID(r)
	if err := g.eng.MakeMove(r.Context(), domain.AccountID(req.Caller), id, req.Move); err != nil {
		mapEngineError(w, err)
		return
	}
	// a terminal move deletes the match; report what remains
	m, err := g.eng.GetMatch(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, jsonResponse{"settled": true})
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": m})
}

func (g *Gateway) clearAbandoned(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromBody(w, r)
	if !ok {
		return
	}
	if err := g.eng.ClearAbandonedMatch(r.Context(), caller, matchID(r)); err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"cleared": true})
}

func (g *Gateway) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := g.eng.GetMatch(r.Context(), matchID(r))
	if err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": m})
}

func (g *Gateway) matchByNonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := strconv.ParseUint(chi.URLParam(r, "nonce"), 10, 64)
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	id, err := g.eng.MatchIDFromNonce(r.Context(), nonce)
	if err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match_id": id})
}

func (g *Gateway) incentivePreview(w http.ResponseWriter, r *http.Request) {
	incentive, remainder, err := g.eng.IncentivePreview(r.Context(), matchID(r))
	if err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"incentive": incentive, "remainder": remainder})
}

func (g *Gateway) playerMatches(w http.ResponseWriter, r *http.Request) {
	ids, err := g.eng.PlayerMatches(r.Context(), domain.AccountID(chi.URLParam(r, "account")))
	if err != nil {
		mapEngineError(w, err)
		return
	}
	if ids == nil {
		ids = []domain.MatchID{}
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": ids})
}

func (g *Gateway) playerRating(w http.ResponseWriter, r *http.Request) {
	rating, err := g.eng.Rating(r.Context(), domain.AccountID(chi.URLParam(r, "account")))
	if err != nil {
		mapEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"rating": rating})
}

func matchID(r *http.Request) domain.MatchID {
	return domain.MatchID(chi.URLParam(r, "id"))
}

func callerFromBody(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	var req callerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return "", false
	}
	if strings.TrimSpace(req.Caller) == "" {
		errorResponse(w, http.StatusBadRequest, "caller is required")
		return "", false
	}
	return domain.AccountID(req.Caller), true
}
