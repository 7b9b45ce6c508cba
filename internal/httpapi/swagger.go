//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// apiDoc serves the OpenAPI document for the swagger UI. Regenerate with
// `swag init -g cmd/trvd/main.go` after changing handler annotations.
type apiDoc struct{}

func (apiDoc) ReadDoc() string { return openapiJSON }

func init() {
	swag.Register(swag.Name, apiDoc{})
}

// MountSwagger serves the swagger UI at /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}

const openapiJSON = `{
  "swagger": "2.0",
  "info": {
    "title": "trvd API",
    "description": "Single-slot translate-reason-verify pipeline daemon",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/execute": {
      "post": {
        "summary": "Run one pipeline execution",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "responses": {
          "200": {"description": "pipeline result"},
          "400": {"description": "validation error"},
          "429": {"description": "slot busy"},
          "503": {"description": "engine unavailable"}
        }
      }
    },
    "/status": {
      "get": {
        "summary": "Slot, role and pipeline statistics",
        "produces": ["application/json"],
        "responses": {"200": {"description": "status"}}
      }
    },
    "/roles": {
      "get": {
        "summary": "Configured role artifacts",
        "produces": ["application/json"],
        "responses": {"200": {"description": "roles"}}
      }
    },
    "/unload": {
      "post": {
        "summary": "Evict the resident model",
        "produces": ["application/json"],
        "responses": {"200": {"description": "unloaded"}}
      }
    }
  }
}`
