// Package docs is generated by swaggo/swag from the annotations in
// cmd/santabot and internal/handler.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/events": {
            "get": {
                "tags": ["events"],
                "summary": "List events of a creator",
                "parameters": [
                    {"type": "integer", "description": "creator user id", "name": "creator", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/events/{id}": {
            "get": {
                "tags": ["events"],
                "summary": "Get event",
                "parameters": [
                    {"type": "string", "description": "event id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/events/{id}/participants": {
            "get": {
                "tags": ["events"],
                "summary": "List participants of an event",
                "parameters": [
                    {"type": "string", "description": "event id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "comma separated statuses", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/scheduler/run": {
            "post": {
                "description": "Runs the sweeps for a day (default today). A claimed day is re-run only with force, which defaults to true here.",
                "tags": ["scheduler"],
                "summary": "Run the daily sweeps",
                "parameters": [
                    {"type": "string", "description": "YYYY-MM-DD", "name": "day", "in": "query"},
                    {"type": "boolean", "description": "re-run an already claimed day", "name": "force", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handler.apiResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"},
                "meta": {"type": "object", "additionalProperties": true}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Anime Santa Admin API",
	Description:      "Read-only views of events and participants, plus a manual trigger for the daily sweeps.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
