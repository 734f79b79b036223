// Package api holds the JSON shapes shared by the HTTP server and the Lambda
// handler, and the mapping from usecase errors to HTTP statuses.
package api

import (
	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/routes"
	"immobilier-assistant/internal/session"
	"immobilier-assistant/internal/usecase"
)

type CreateSessionRequest struct {
	Language string `json:"language"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type DraftRequest struct {
	Text string `json:"text"`
}

type LanguageRequest struct {
	Language string `json:"language"`
}

type VisibilityRequest struct {
	Open *bool `json:"open"`
}

type QuickReplyRequest struct {
	Label string `json:"label"`
}

type SessionResponse struct {
	ID          string           `json:"id"`
	Language    domain.Language  `json:"language"`
	Direction   string           `json:"direction"`
	Placeholder string           `json:"placeholder"`
	Messages    []domain.Message `json:"messages"`
	Draft       string           `json:"draft"`
	IsLoading   bool             `json:"isLoading"`
	IsOpen      bool             `json:"isOpen"`
}

type SendResponse struct {
	Reply   domain.Message  `json:"reply"`
	Session SessionResponse `json:"session"`
}

type ActionResponse struct {
	Action  session.Action  `json:"action"`
	Session SessionResponse `json:"session"`
}

type QuickReplyItem struct {
	Section routes.Section `json:"section"`
	Label   string         `json:"label"`
	Path    string         `json:"path"`
}

type CatalogResponse struct {
	Language     domain.Language  `json:"language"`
	Direction    string           `json:"direction"`
	Title        string           `json:"title"`
	Placeholder  string           `json:"placeholder"`
	Header       string           `json:"header"`
	QuickReplies []QuickReplyItem `json:"quickReplies"`
	QuickActions []QuickReplyItem `json:"quickActions"`
}

type CalculationResponse struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewSessionResponse(v usecase.SessionView) SessionResponse {
	return SessionResponse{
		ID:          v.ID,
		Language:    v.Language,
		Direction:   v.Direction,
		Placeholder: v.Placeholder,
		Messages:    v.Messages,
		Draft:       v.Draft,
		IsLoading:   v.Loading,
		IsOpen:      v.Open,
	}
}

func NewSendResponse(out usecase.SendOutput) SendResponse {
	return SendResponse{Reply: out.Reply, Session: NewSessionResponse(out.Session)}
}

func NewActionResponse(out usecase.ActionOutput) ActionResponse {
	return ActionResponse{Action: out.Action, Session: NewSessionResponse(out.Session)}
}

func NewCatalogResponse(c usecase.Catalog) CatalogResponse {
	return CatalogResponse{
		Language:     c.Language,
		Direction:    c.Direction,
		Title:        c.Title,
		Placeholder:  c.Placeholder,
		Header:       c.Header,
		QuickReplies: items(c.QuickReplies),
		QuickActions: items(c.QuickActions),
	}
}

func items(in []usecase.QuickReplyItem) []QuickReplyItem {
	out := make([]QuickReplyItem, len(in))
	for i, it := range in {
		out[i] = QuickReplyItem(it)
	}
	return out
}

func NewCalculationResponse(r usecase.CalculationResult) CalculationResponse {
	return CalculationResponse{Value: r.Value, Display: r.Display}
}
