package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"geoquery/internal/errs"
)

// errorBody：对外错误结构，kind 取错误分类，便于前端区分“没找到”与“没听懂”
type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf：错误分类 → HTTP 状态码
func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindQueryParse, errs.KindValidation, errs.KindArgumentCountMismatch,
		errs.KindTooManyConstraints, errs.KindUnsupportedTime, errs.KindKnownCategoryUnsupported:
		return http.StatusBadRequest
	case errs.KindNoGeocodeResult, errs.KindNoCategoryMatch, errs.KindNoRouteFound, errs.KindEmptyResult:
		return http.StatusNotFound
	case errs.KindTooFarFromCentroid:
		return http.StatusUnprocessableEntity
	case errs.KindStatementTimeout:
		return http.StatusGatewayTimeout
	case errs.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	msg := err.Error()
	var e *errs.Error
	if kind == errs.KindInternal && !errors.As(err, &e) {
		msg = "internal error"
	}
	writeJSON(w, statusOf(kind), errorBody{Error: msg, Kind: string(kind), RequestID: w.Header().Get("X-Request-Id")})
}
