// Package apidocs holds the swagger document of the control API.
// Regenerate with: swag init -g cmd/modelctl/docs.go -o internal/httpapi/apidocs
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "ok", "schema": {"type": "string"}}}
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List configured models",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "description": "Sessions whose process has exited are reported once and then removed.",
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Instance and session status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/sessions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Start a model server session",
                "parameters": [{
                    "description": "Session request",
                    "name": "body",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/types.StartSessionRequest"}
                }],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.StartSessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/sessions/stop-all": {
            "post": {
                "tags": ["sessions"],
                "summary": "Stop every session and shut the controller down",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/sessions/{id}": {
            "delete": {
                "tags": ["sessions"],
                "summary": "Stop one session",
                "parameters": [{"type": "string", "description": "Session id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 404},
                "error": {"type": "string", "example": "session not found: m1_8080_123"}
            }
        },
        "types.ModelDescriptor": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "qwen3-embedding"},
                "name": {"type": "string", "example": "Qwen3 Embedding 0.6B"},
                "path": {"type": "string"},
                "gpu_layers": {"type": "integer", "example": 32},
                "threads": {"type": "integer", "example": 4},
                "embedding": {"type": "boolean", "example": true}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelDescriptor"}}
            }
        },
        "types.StartSessionRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "qwen3-embedding"},
                "port": {"type": "integer", "example": 8080}
            }
        },
        "types.StartSessionResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string", "example": "qwen3-embedding_8080_41233"}
            }
        },
        "types.SessionStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "model_id": {"type": "string"},
                "model_name": {"type": "string"},
                "address": {"type": "string"},
                "port": {"type": "integer"},
                "url": {"type": "string"},
                "started_at": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "process_alive": {"type": "boolean"},
                "remote_listening": {"type": "boolean"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "instance_id": {"type": "string"},
                "instance_state": {"type": "string", "example": "running"},
                "public_address": {"type": "string"},
                "provider_error": {"type": "string"},
                "remote_ports": {"type": "array", "items": {"type": "integer"}},
                "remote_ports_error": {"type": "string"},
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/types.SessionStatus"}},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelctl control API",
	Description:      "Local control API of a running modelctl controller.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
