package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/errors"
	"github.com/matzehuels/vase/pkg/job"
)

var errReadOnly = errors.New(errors.ErrCodeUnsupported, "server is read-only")

// errorBody is the JSON body of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.IsFormatError(err):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, cache.ErrNotFound), stderrors.Is(err, job.ErrUnknownJob):
		return http.StatusNotFound
	case stderrors.Is(err, job.ErrQueueFull):
		return http.StatusServiceUnavailable
	case stderrors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidStructureID, errors.ErrCodeInvalidChain, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
		Subject: errors.GetSubject(err),
	}
	switch {
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		body = errorBody{Code: string(errors.ErrCodeInternal), Message: "internal error"}
	case status == http.StatusNotFound && body.Code == "":
		body.Code = string(errors.ErrCodeNotFound)
		body.Message = "not found"
	case body.Code == "":
		body.Code = http.StatusText(status)
		body.Message = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
