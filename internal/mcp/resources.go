// resources.go implements MCP resource handlers for read-only launcher state.
//
// Resources let a client load context without performing an action: the
// details of a plugin, or the view that is open right now.
//
// Design: resource URIs follow vela://plugins/{id} and vela://views/current.
// Both return JSON, the same shapes vela_plugins and vela_navigate produce.

package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jpl-au/vela/internal/manager"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	pluginURIPrefix = "vela://plugins/"
	currentViewURI  = "vela://views/current"
)

var (
	// ErrInvalidURI indicates a malformed resource URI.
	ErrInvalidURI = errors.New("invalid URI")
	// ErrEmptyID indicates a missing plugin id in a resource URI.
	ErrEmptyID = errors.New("empty plugin id")
)

// registerResources adds URI-based access to plugin and view state.
func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pluginURIPrefix+"{id}",
			"Plugin",
			mcp.WithTemplateDescription("Details and lifecycle state of a plugin"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.readPlugin,
	)

	s.AddResource(
		mcp.NewResource(
			currentViewURI,
			"Current view",
			mcp.WithResourceDescription("The open plugin view and its state"),
			mcp.WithMIMEType("application/json"),
		),
		h.readCurrentView,
	)
}

// readPlugin handles vela://plugins/{id} resource requests.
func (h *handlers) readPlugin(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := parsePluginURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	info, ok := h.app.Manager.Info(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", manager.ErrUnknownPlugin, id)
	}
	return jsonContents(req.Params.URI, info)
}

// readCurrentView handles vela://views/current resource requests.
func (h *handlers) readCurrentView(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var v *manager.ViewState
	if vs, ok := h.app.Manager.CurrentView(); ok {
		v = &vs
	}
	return jsonContents(req.Params.URI, ViewResult{
		Depth: h.app.Manager.Stack().Depth(),
		View:  v,
		Query: h.app.Query.Query(),
	})
}

// parsePluginURI extracts the plugin id from vela://plugins/{id}.
func parsePluginURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, pluginURIPrefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	id := strings.TrimSuffix(strings.TrimPrefix(uri, pluginURIPrefix), "/")
	if id == "" {
		return "", ErrEmptyID
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	return id, nil
}
