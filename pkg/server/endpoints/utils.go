package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/zulily/modeldb/pkg/errs"
	"github.com/zulily/modeldb/pkg/query"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps a service error onto an HTTP status and an
// {"error": ...} body.
func respondWithError(w http.ResponseWriter, err error) {
	respondWithJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindInvalidArgument:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAlreadyExists:
		return http.StatusConflict
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// splitIDs parses a comma-separated id list query parameter.
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// valueTypeParam maps the value_type query parameter onto a clause
// value type, defaulting to STRING.
func valueTypeParam(raw string) query.ValueType {
	switch strings.ToUpper(raw) {
	case string(query.ValueTypeNumber):
		return query.ValueTypeNumber
	case string(query.ValueTypeBlob):
		return query.ValueTypeBlob
	default:
		return query.ValueTypeString
	}
}

// clauseValue converts a raw query-string value into the dynamic type
// the clause compiler expects for the given value type.
func clauseValue(raw string, vt query.ValueType) (interface{}, error) {
	if vt != query.ValueTypeNumber {
		return raw, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errs.InvalidArgument("value %q is not numeric", raw)
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}
