package endpoints

import (
	"github.com/zulily/modeldb/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterProjectsEndpoints(srv)
	RegisterDatasetsEndpoints(srv)
	RegisterStatusEndpoints(srv)
}
