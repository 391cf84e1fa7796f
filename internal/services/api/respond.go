package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "github.com/louisbranch/ontogenic.space/internal/platform/errors"
	errcatalog "github.com/louisbranch/ontogenic.space/internal/platform/errors/i18n"
)

// errorEnvelope is the uniform error response body.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// writeJSON writes a JSON response with the provided status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError renders err as the uniform error envelope. Domain errors
// map to their HTTP status with a message localized for the request
// locale; anything else becomes a 500 and the cause stays server-side.
func writeError(w http.ResponseWriter, locale string, err error) {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		message := errcatalog.GetCatalog(locale).Format(string(domainErr.Code), domainErr.Metadata)
		writeJSON(w, domainErr.Code.HTTPStatus(), errorEnvelope{Error: errorBody{
			Code:     string(domainErr.Code),
			Message:  message,
			Metadata: domainErr.Metadata,
		}})
		return
	}

	log.Printf("internal error: %v", err)
	message := errcatalog.GetCatalog(locale).Format(string(apperrors.CodeUnknown), nil)
	writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: errorBody{
		Code:    string(apperrors.CodeUnknown),
		Message: message,
	}})
}

// decodeJSON decodes the request body into target. Malformed bodies
// surface as an invalid-request domain error.
func decodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeInvalidRequest, "decode request body",
			map[string]string{"Reason": err.Error()}, err)
	}
	return nil
}
