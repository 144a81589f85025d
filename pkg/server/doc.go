// Package server provides the HTTP server for the catalog API.
//
// The server wires the catalog services, token authentication, and the
// gorilla/mux router. Endpoints live in the endpoints subpackage and
// request authentication in the middleware subpackage.
package server
