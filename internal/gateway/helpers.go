package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gambitworks/chessvault/internal/boardcodec"
	"github.com/gambitworks/chessvault/internal/engine"
	"github.com/gambitworks/chessvault/internal/ledger"
	"github.com/gambitworks/chessvault/internal/obslog"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		obslog.L().Error("response_marshal_failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonResponse{"error": message})
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error())
}

// mapEngineError translates engine and ledger sentinels into HTTP statuses:
// unknown ids are 404, authorization failures 403, state conflicts 409, and
// rejected inputs 422.
func mapEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNonExistentMatch):
		errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNotMatchChallenger),
		errors.Is(err, engine.ErrNotMatchOpponent),
		errors.Is(err, engine.ErrNotYourTurn):
		errorResponse(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrNotAwaitingOpponent),
		errors.Is(err, engine.ErrStillAwaitingOpponent),
		errors.Is(err, engine.ErrMatchAlreadyFinished),
		errors.Is(err, engine.ErrMatchNotOnGoing),
		errors.Is(err, engine.ErrMoveNotExpired):
		errorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidOpponent),
		errors.Is(err, engine.ErrIllegalMove),
		errors.Is(err, boardcodec.ErrInvalidMoveEncoding),
		errors.Is(err, boardcodec.ErrInvalidBoardEncoding),
		errors.Is(err, ledger.ErrBetDoesNotExist),
		errors.Is(err, ledger.ErrBetTooLow),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrUnknownAsset):
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		obslog.L().Error("request_failed", zap.Error(err))
		errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}
