package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"gocode-grader/internal/provider"
	"gocode-grader/internal/proxy"
)

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = writeError(c, he.Code, msg, "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	var transportErr *provider.TransportError
	switch {
	case errors.Is(err, provider.ErrUnsupportedOperation):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "unsupported_operation"}
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "unsupported_provider"}
	case errors.Is(err, provider.ErrMissingAPIKey):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "missing_api_key"}
	case errors.Is(err, provider.ErrConfiguration):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error"}
	case errors.Is(err, proxy.ErrTargetNotAllowed):
		return requestError{Status: http.StatusForbidden, Message: err.Error(), Type: "permission_error"}
	case errors.Is(err, provider.ErrMalformedResponse):
		return requestError{Status: http.StatusBadGateway, Message: err.Error(), Type: "upstream_error", Code: "malformed_response"}
	case errors.As(err, &transportErr):
		return requestError{Status: http.StatusBadGateway, Message: transportErr.Message, Type: "upstream_error"}
	}

	return requestError{
		Status:  http.StatusBadGateway,
		Message: "upstream provider error",
		Type:    "upstream_error",
	}
}
