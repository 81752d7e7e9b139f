package pagesapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	ErrNoBaseURL       = errors.New("pagesapi: base url missing")
	ErrNoCredentials   = errors.New("pagesapi: api token or email and api key required")
	ErrNoAccountID     = errors.New("pagesapi: account id missing")
	ErrNoProjectName   = errors.New("pagesapi: project name missing")
	ErrAccountNotFound = errors.New("pagesapi: no account matches email")
	ErrEmptyToken      = errors.New("pagesapi: empty upload token")
)

const (
	// CodeProjectNotFound is returned by the provider for an unknown pages project.
	CodeProjectNotFound = 8000007
)

// Message is one entry of the errors or messages list in a response envelope.
type Message struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is a provider-side failure: the HTTP status plus the first
// error the response envelope carried.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("api error: %d %s (status %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("api error: %s (status %d)", e.Message, e.Status)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound || e.Code == CodeProjectNotFound
}

// IsNotFound reports whether err carries a not-found APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

// handleAPIError turns a transport error, an error status or an envelope
// with errors into a single error naming the operation.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env, ok := resp.ErrorResult().(*errorEnvelope); ok && len(env.Errors) > 0 {
			apiErr.Code = env.Errors[0].Code
			apiErr.Message = env.Errors[0].Message
		} else if body := strings.TrimSpace(resp.String()); body != "" && len(body) < 512 {
			apiErr.Message = body
		}
		return fmt.Errorf("%s %w", operation, apiErr)
	}

	return nil
}

// checkEnvelope catches a 2xx response whose envelope still reports failure.
func checkEnvelope(resp *req.Response, success bool, errs []Message, operation string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s %w", operation, &APIError{Status: resp.StatusCode, Code: errs[0].Code, Message: errs[0].Message})
	}
	if !success {
		return fmt.Errorf("%s %w", operation, &APIError{Status: resp.StatusCode, Message: "request was not successful"})
	}
	return nil
}
