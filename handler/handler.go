// Package handler exposes the assistant API as an API Gateway Lambda. Events
// are replayed through the same router the HTTP server uses.
package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"immobilier-assistant/internal/api"
	"immobilier-assistant/internal/httpapi"
	"immobilier-assistant/internal/usecase"
)

type Handler struct {
	router http.Handler
	logger *slog.Logger
}

func NewHandler(chat httpapi.ChatService, calc httpapi.CalculatorService, logger *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	if calc == nil {
		return nil, errors.New("handler: calculator service must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		router: httpapi.NewRouter(httpapi.Options{Chat: chat, Calculator: calc, Logger: logger}),
		logger: logger,
	}, nil
}

// Handle serves one API Gateway proxy event. Routing and usecase failures are
// reported in the response; the returned error is always nil.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := newRequest(ctx, event)
	if err != nil {
		h.logger.Warn("rejecting malformed event", "path", event.Path, "err", err)
		w := newResponseWriter()
		w.Header().Set(httpapi.CorrelationHeader, correlationID(event))
		api.RespondJSON(w, http.StatusBadRequest, api.ErrorResponse{
			Error:  string(usecase.ErrorInvalidInput),
			Reason: "invalid_event",
		})
		return w.response(), nil
	}

	w := newResponseWriter()
	h.router.ServeHTTP(w, req)
	return w.response(), nil
}

func newRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: query(event).Encode()}

	method := event.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	// Header.Set canonicalizes keys, so lookups downstream are case-insensitive.
	for k, vs := range event.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if ip := event.RequestContext.Identity.SourceIP; ip != "" {
		req.RemoteAddr = ip
	}
	return req, nil
}

func query(event events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range event.QueryStringParameters {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	return q
}

func correlationID(event events.APIGatewayProxyRequest) string {
	for k, v := range event.Headers {
		if strings.EqualFold(k, httpapi.CorrelationHeader) && v != "" {
			return v
		}
	}
	return event.RequestContext.RequestID
}

// responseWriter buffers a routed response until it is converted into the
// proxy response.
type responseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) response() events.APIGatewayProxyResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	single := make(map[string]string, len(w.header))
	multi := make(map[string][]string, len(w.header))
	for k, vs := range w.header {
		if len(vs) == 0 {
			continue
		}
		single[k] = vs[0]
		multi[k] = append([]string(nil), vs...)
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           single,
		MultiValueHeaders: multi,
		Body:              w.body.String(),
	}
}
