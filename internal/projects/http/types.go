package http

import (
	"github.com/mkpublisher/showcase/internal/projects/service"
	"github.com/mkpublisher/showcase/internal/remote"
)

// Catalog is the read side used by the list endpoint.
type Catalog interface {
	Filter(query string) []remote.Project
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc     *service.Service
	catalog Catalog
}

func New(svc *service.Service, catalog Catalog) *Handler {
	return &Handler{svc: svc, catalog: catalog}
}
