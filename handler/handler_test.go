package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"immobilier-assistant/internal/api"
	"immobilier-assistant/internal/calculator"
	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/session"
	"immobilier-assistant/internal/usecase"
)

type stubChat struct {
	view usecase.SessionView
	send usecase.SendOutput
	err  error

	gotID       string
	gotText     string
	gotLanguage string
}

func (s *stubChat) CreateSession(_ context.Context, language string) (usecase.SessionView, error) {
	s.gotLanguage = language
	return s.view, s.err
}

func (s *stubChat) GetSession(_ context.Context, id string) (usecase.SessionView, error) {
	s.gotID = id
	return s.view, s.err
}

func (s *stubChat) EndSession(_ context.Context, id string) error {
	s.gotID = id
	return s.err
}

func (s *stubChat) SendMessage(_ context.Context, id, text string) (usecase.SendOutput, error) {
	s.gotID, s.gotText = id, text
	return s.send, s.err
}

func (s *stubChat) SetDraft(_ context.Context, id, text string) (usecase.SessionView, error) {
	s.gotID, s.gotText = id, text
	return s.view, s.err
}

func (s *stubChat) SetLanguage(_ context.Context, id, language string) (usecase.SessionView, error) {
	s.gotID, s.gotLanguage = id, language
	return s.view, s.err
}

func (s *stubChat) SetVisibility(_ context.Context, id string, _ bool) (usecase.SessionView, error) {
	s.gotID = id
	return s.view, s.err
}

func (s *stubChat) QuickReply(_ context.Context, id, label string) (usecase.ActionOutput, error) {
	s.gotID, s.gotText = id, label
	return usecase.ActionOutput{Session: s.view}, s.err
}

func (s *stubChat) QuickAction(_ context.Context, id, section string) (usecase.ActionOutput, error) {
	s.gotID, s.gotText = id, section
	return usecase.ActionOutput{
		Action:  session.Action{Kind: session.ActionNavigate, Path: "/" + section},
		Session: s.view,
	}, s.err
}

func (s *stubChat) Catalog(language string) (usecase.Catalog, error) {
	s.gotLanguage = language
	return usecase.Catalog{Language: domain.Language(language)}, s.err
}

type stubCalc struct{}

func (stubCalc) Mortgage(calculator.MortgageInput) (usecase.CalculationResult, error) {
	return usecase.CalculationResult{Value: 1001.25, Display: "1001.25"}, nil
}

func (stubCalc) ROI(calculator.ROIInput) (usecase.CalculationResult, error) {
	return usecase.CalculationResult{}, &usecase.Error{Code: usecase.ErrorInsufficientInput, Reason: "roi_guard"}
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, chat *stubChat) *Handler {
	t.Helper()
	h, err := NewHandler(chat, stubCalc{}, nil)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependencies(t *testing.T) {
	_, err := NewHandler(nil, stubCalc{}, nil)
	require.Error(t, err)

	_, err = NewHandler(&stubChat{}, nil, nil)
	require.Error(t, err)
}

func TestHandle_SendMessage(t *testing.T) {
	chat := &stubChat{send: usecase.SendOutput{
		Reply:   domain.Message{ID: "2", Role: domain.RoleModel, Text: "hello"},
		Session: usecase.SessionView{ID: "s-1", Language: domain.LanguageEnglish, Direction: "ltr"},
	}}
	h := newTestHandler(t, chat)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/sessions/s-1/messages", `{"text":"What do you do?"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "s-1", chat.gotID)
	require.Equal(t, "What do you do?", chat.gotText)

	out := parseBody[api.SendResponse](t, resp.Body)
	require.Equal(t, "hello", out.Reply.Text)
	require.Equal(t, "s-1", out.Session.ID)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_CreateSession(t *testing.T) {
	chat := &stubChat{view: usecase.SessionView{ID: "s-9", Language: domain.LanguageArabic, Direction: "rtl"}}
	h := newTestHandler(t, chat)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/sessions", `{"language":"ar"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "ar", chat.gotLanguage)
	require.Equal(t, "rtl", parseBody[api.SessionResponse](t, resp.Body).Direction)
}

func TestHandle_QueryStringAndBase64Body(t *testing.T) {
	chat := &stubChat{}
	h := newTestHandler(t, chat)

	event := makeEvent(http.MethodGet, "/quick-replies", "")
	event.QueryStringParameters = map[string]string{"language": "fr"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "fr", chat.gotLanguage)

	event = makeEvent(http.MethodPut, "/sessions/s-2/draft", base64.StdEncoding.EncodeToString([]byte(`{"text":"bonjour"}`)))
	event.IsBase64Encoded = true
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "bonjour", chat.gotText)
}

func TestHandle_MalformedBase64(t *testing.T) {
	h := newTestHandler(t, &stubChat{})

	event := makeEvent(http.MethodPost, "/sessions", "%%%")
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_event", parseBody[api.ErrorResponse](t, resp.Body).Reason)
}

func TestHandle_InvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/sessions/s-1/messages", `not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[api.ErrorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_message"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "not found", err: &usecase.Error{Code: usecase.ErrorNotFound, Reason: "session_not_found"}, status: http.StatusNotFound, code: string(usecase.ErrorNotFound)},
		{name: "busy", err: &usecase.Error{Code: usecase.ErrorSessionBusy, Reason: "reply_pending"}, status: http.StatusConflict, code: string(usecase.ErrorSessionBusy)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "session_store_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubChat{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/sessions/s-1/messages", `{"text":"hi"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[api.ErrorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_Calculators(t *testing.T) {
	h := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/calculators/mortgage", `{"principal":200000,"annualRatePercent":3.5,"termYears":25}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1001.25", parseBody[api.CalculationResponse](t, resp.Body).Display)

	resp, err = h.Handle(context.Background(), makeEvent(http.MethodPost, "/calculators/roi", `{"price":0}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandle_UnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubChat{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/ask", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Health and metrics belong to the long-running server only.
	resp, err = h.Handle(context.Background(), makeEvent(http.MethodGet, "/healthz", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, &stubChat{})

	event := makeEvent(http.MethodGet, "/sessions/s-1", "")
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
	require.Equal(t, []string{"corr-123"}, resp.MultiValueHeaders["X-Correlation-Id"])
}
