package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gocode-grader/internal/models"
	"gocode-grader/internal/provider"
	"gocode-grader/internal/proxy"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type gradeRequest struct {
	Provider             string `json:"provider" validate:"required"`
	APIKey               string `json:"api_key"`
	ChallengeDescription string `json:"challenge_description" validate:"required"`
	SectionTitle         string `json:"section_title" validate:"required"`
	Code                 string `json:"code" validate:"required"`
	Version              string `json:"version"`
	CustomModel          string `json:"custom_model"`
	CustomEndpoint       string `json:"custom_endpoint" validate:"omitempty,url"`
	CustomHeaders        string `json:"custom_headers"`
}

func (r gradeRequest) toModel() models.GradeRequest {
	return models.GradeRequest{
		Provider:             r.Provider,
		APIKey:               r.APIKey,
		ChallengeDescription: r.ChallengeDescription,
		SectionTitle:         r.SectionTitle,
		Code:                 r.Code,
		Version:              r.Version,
		CustomModel:          r.CustomModel,
		CustomEndpoint:       r.CustomEndpoint,
		CustomHeaders:        r.CustomHeaders,
	}
}

type connectionRequest struct {
	Provider       string `json:"provider" validate:"required"`
	APIKey         string `json:"api_key"`
	Version        string `json:"version"`
	CustomModel    string `json:"custom_model"`
	CustomEndpoint string `json:"custom_endpoint" validate:"omitempty,url"`
	CustomHeaders  string `json:"custom_headers"`
}

type validateKeyRequest struct {
	Provider string `json:"provider" validate:"required"`
	APIKey   string `json:"api_key"`
}

type providerView struct {
	Key          string `json:"key"`
	Endpoint     string `json:"endpoint,omitempty"`
	DefaultModel string `json:"default_model,omitempty"`
	Family       string `json:"family"`
}

func (s *Server) handleProviders(c echo.Context) error {
	descriptors := s.grader.Registry().Descriptors()
	out := make([]providerView, 0, len(descriptors)+1)
	for _, d := range descriptors {
		out = append(out, providerView{
			Key:          d.Key,
			Endpoint:     d.Endpoint,
			DefaultModel: d.DefaultModel,
			Family:       string(d.Family),
		})
	}
	out = append(out, providerView{Key: provider.CustomKey, Family: string(models.FamilyCustom)})
	return c.JSON(http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleGrade(c echo.Context) error {
	var req gradeRequest
	if err := decodeRequestBody(c, &req, maxBodyBytes); err != nil {
		return err
	}

	feedback, err := s.grader.SubmitCodeForGrading(c.Request().Context(), req.toModel())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"feedback": feedback})
}

func (s *Server) handleTestConnection(c echo.Context) error {
	var req connectionRequest
	if err := decodeRequestBody(c, &req, maxBodyBytes); err != nil {
		return err
	}

	ok, err := s.grader.TestAPIConnection(c.Request().Context(), models.ConnectionRequest{
		Provider:       req.Provider,
		APIKey:         req.APIKey,
		Version:        req.Version,
		CustomModel:    req.CustomModel,
		CustomEndpoint: req.CustomEndpoint,
		CustomHeaders:  req.CustomHeaders,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": ok})
}

func (s *Server) handleValidateKey(c echo.Context) error {
	var req validateKeyRequest
	if err := decodeRequestBody(c, &req, maxBodyBytes); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": s.grader.ValidateAPIKey(req.Provider, req.APIKey)})
}

func (s *Server) handleGradeStream(c echo.Context) error {
	var req gradeRequest
	if err := decodeRequestBody(c, &req, maxBodyBytes); err != nil {
		return err
	}

	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		s.logger.Error().Msg("http writer does not support flushing")
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
			Type:    "server_error",
		}
	}

	clearWriteDeadline(c)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		header := c.Response().Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		c.Response().WriteHeader(http.StatusOK)
	}

	feedback, err := s.grader.StreamGrading(c.Request().Context(), req.toModel(), func(text string) error {
		start()
		if err := writeSSEEvent(c.Response(), "chunk", map[string]string{"text": text}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			return toHTTPError(err)
		}
		s.logger.Warn().Err(err).Msg("grading stream aborted")
		_ = writeSSEEvent(c.Response(), "error", map[string]string{"message": err.Error()})
		flusher.Flush()
		return nil
	}

	start()
	if err := writeSSEEvent(c.Response(), "done", map[string]string{"feedback": feedback}); err != nil {
		s.logger.Error().Err(err).Msg("failed to write SSE event")
		return err
	}
	flusher.Flush()
	return nil
}

func (s *Server) handleProxy(c echo.Context) error {
	var env models.ProxyEnvelope
	if err := decodeRequestBody(c, &env, s.proxyMaxBodyBytes); err != nil {
		return err
	}

	resp, err := s.forwarder.Forward(c.Request().Context(), env)
	if err != nil {
		return toHTTPError(err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}

	clearWriteDeadline(c)
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(resp.StatusCode)
	if _, err := proxy.Relay(c.Response(), resp.Body); err != nil {
		s.logger.Warn().Err(err).Msg("proxied response interrupted")
	}
	return nil
}

// clearWriteDeadline lets a streamed reply outlive the server's write timeout.
// Writers without deadline support are left as they are.
func clearWriteDeadline(c echo.Context) {
	_ = http.NewResponseController(c.Response().Writer).SetWriteDeadline(time.Time{})
}

func decodeRequestBody[T any](c echo.Context, target *T, limit int64) error {
	req := c.Request()
	defer req.Body.Close()

	if limit <= 0 {
		limit = maxBodyBytes
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return requestError{
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				Type:    "invalid_request_error",
			}
		case errors.Is(err, io.EOF):
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}

	if err := c.Validate(target); err != nil {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid request: %v", err),
			Type:    "invalid_request_error",
		}
	}
	return nil
}

func writeSSEEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write SSE event name: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	return nil
}
