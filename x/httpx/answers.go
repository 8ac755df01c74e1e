package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const StatusOK = "OK"

type ErrorAnswBody struct {
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
	Details    string `json:"details"`
}

// ErrorAnsw is written as {"error": {...}}.
type ErrorAnsw struct {
	Body ErrorAnswBody `json:"error"`
}

func (e ErrorAnsw) Error() string {
	return fmt.Sprintf("error %s: %s", e.Body.Code, e.Body.Details)
}

func (e *ErrorAnsw) WriteJSON(w http.ResponseWriter) error {
	return writeJSON(w, e.Body.StatusCode, e)
}

// ResultAnsw is written as {"result": ...}.
type ResultAnsw struct {
	Body interface{} `json:"result"`
}

func (answ *ResultAnsw) WriteJSON(w http.ResponseWriter) error {
	return writeJSON(w, http.StatusOK, answ)
}

// CheckResult is the body of a passed health check.
type CheckResult struct {
	Status string `json:"status"`
	Checks int    `json:"checks"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) error {
	res, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal answer")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(res); err != nil {
		return errors.Wrap(err, "write data to connection")
	}

	return nil
}

// WriteErrAnswer answers with 503, the name of the failed check is the code.
func WriteErrAnswer(ctx context.Context, w http.ResponseWriter, err error, check string) {
	answ := NewErrorAnsw(http.StatusServiceUnavailable, check, err)
	if errWriteJSON := answ.WriteJSON(w); errWriteJSON != nil {
		zerolog.Ctx(ctx).Err(errWriteJSON).Msg("write json")
	}
}

func NewErrorAnsw(statusCode int, code string, err error) ErrorAnsw {
	return ErrorAnsw{
		Body: ErrorAnswBody{
			Code:       strings.ToUpper(strings.ReplaceAll(code, " ", "_")),
			StatusCode: statusCode,
			Details:    err.Error(),
		},
	}
}
