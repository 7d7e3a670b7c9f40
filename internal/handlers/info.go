package handlers

import (
	"context"
	"time"
)

// InfoHandler serves basic service information.
type InfoHandler struct {
	name    string
	version string
	now     func() time.Time
}

// NewInfoHandler creates a new info handler.
func NewInfoHandler(name, version string) *InfoHandler {
	return &InfoHandler{
		name:    name,
		version: version,
		now:     time.Now,
	}
}

// InfoResponse is the response for the service info endpoint.
type InfoResponse struct {
	Body struct {
		Name       string    `doc:"Service name"        example:"Storefront API"       json:"name"`
		Version    string    `doc:"Service version"     example:"1.0.0"                json:"version"`
		ServerTime time.Time `doc:"Current server time" example:"2026-01-01T00:00:00Z" json:"serverTime"`
	}
}

// Get returns the service name, version and server time.
func (h *InfoHandler) Get(_ context.Context, _ *struct{}) (*InfoResponse, error) {
	resp := &InfoResponse{}
	resp.Body.Name = h.name
	resp.Body.Version = h.version
	resp.Body.ServerTime = h.now().UTC()

	return resp, nil
}
