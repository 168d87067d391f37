package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"ckdserve/internal/features"
	"ckdserve/internal/predict"
	"ckdserve/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

const internalErrorMessage = "internal server error"

// errorResponse maps a service error to the payload sent to the client.
// Anything not recognized as a client error becomes an opaque 500; the
// caller logs the full error.
func errorResponse(err error) (types.ErrorResponse, string) {
	var (
		ve *features.ValidationError
		fe *features.FieldError
		he HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return types.ErrorResponse{Error: "invalid input", Code: http.StatusUnprocessableEntity, Detail: fieldDetails(ve.Fields)}, "validation"
	case errors.As(err, &fe):
		return types.ErrorResponse{Error: "invalid input", Code: http.StatusUnprocessableEntity, Detail: fieldDetails([]*features.FieldError{fe})}, "validation"
	case errors.Is(err, features.ErrNoFeaturesProvided):
		return types.ErrorResponse{Error: features.ErrNoFeaturesProvided.Error(), Code: http.StatusBadRequest}, "no_features"
	case predict.IsUnknownFixture(err):
		return types.ErrorResponse{Error: "Test case not found", Code: http.StatusNotFound}, "unknown_fixture"
	case errors.As(err, &he) && he.StatusCode() < http.StatusInternalServerError:
		return types.ErrorResponse{Error: he.Error(), Code: he.StatusCode()}, "service"
	default:
		return types.ErrorResponse{Error: internalErrorMessage, Code: http.StatusInternalServerError}, ""
	}
}

func fieldDetails(fields []*features.FieldError) []types.FieldErrorDetail {
	out := make([]types.FieldErrorDetail, 0, len(fields))
	for _, f := range fields {
		d := types.FieldErrorDetail{Field: f.Field, Kind: string(f.Kind), Message: f.Error()}
		if f.Kind == features.OutOfRange {
			// JSON has no NaN or Inf; the message still names the value
			if v := f.Value; !math.IsNaN(v) && !math.IsInf(v, 0) {
				d.Value = &v
			}
			d.Bound = f.Bound
		}
		out = append(out, d)
	}
	return out
}

// writeJSON writes v with the given status. The body is encoded before the
// header goes out, so an unencodable value becomes a 500 instead of an empty
// response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger().Error().Err(err).Int("status", status).Msg("encode response")
		status = http.StatusInternalServerError
		b, _ = json.Marshal(types.ErrorResponse{Error: internalErrorMessage, Code: status})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		logger().Debug().Err(err).Msg("write response")
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}
