package api

import "github.com/cardid/cardid-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Identify *service.IdentifyService
	Catalog  *service.CatalogService
}
