// Package docs registers the OpenAPI description served by gin-swagger.
//
// Regenerate with: swag init -g cmd/dedupd/main.go -o docs
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
        "/content": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Content"],
                "summary": "List recorded content (paginated)",
                "operationId": "listContent",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListContentResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Content"],
                "summary": "Record published content",
                "operationId": "rememberContent",
                "parameters": [
                    {"type": "string", "description": "Caller identity", "name": "X-Client-ID", "in": "header"},
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Published content", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "Idempotent replay", "schema": {"$ref": "#/definitions/domain.ContentRecord"}},
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/domain.ContentRecord"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Content"],
                "summary": "Purge old records",
                "operationId": "purgeContent",
                "parameters": [
                    {"minimum": 0, "type": "integer", "description": "Age cutoff in days (defaults to configured retention)", "name": "older_than_days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PurgeResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/content/check": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Content"],
                "summary": "Check for duplicate content",
                "operationId": "checkContent",
                "parameters": [
                    {"type": "string", "description": "Caller identity", "name": "X-Client-ID", "in": "header"},
                    {"description": "Candidate content", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CheckResult"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/content/insert-if-new": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Content"],
                "summary": "Record content unless it is a duplicate",
                "operationId": "insertContentIfNew",
                "parameters": [
                    {"type": "string", "description": "Caller identity", "name": "X-Client-ID", "in": "header"},
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Candidate content and provenance", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "Idempotent replay", "schema": {"$ref": "#/definitions/domain.ContentRecord"}},
                    "201": {"description": "Recorded", "schema": {"$ref": "#/definitions/domain.ContentRecord"}},
                    "409": {"description": "Duplicate within window", "schema": {"$ref": "#/definitions/domain.CheckResult"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/content/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Content"],
                "summary": "Store statistics",
                "operationId": "contentStats",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ContentStats"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.CheckResult": {
            "type": "object",
            "properties": {
                "duplicate": {"type": "boolean"},
                "explanation": {"type": "string"},
                "match": {"$ref": "#/definitions/domain.ContentRecord"},
                "within_days": {"type": "integer"}
            }
        },
        "domain.ContentRecord": {
            "type": "object",
            "properties": {
                "created_at": {"type": "integer"},
                "id": {"type": "integer"},
                "img_hash": {"type": "string"},
                "note": {"type": "string"},
                "platform": {"type": "string"},
                "source_url": {"type": "string"},
                "text_hash": {"type": "string"},
                "text_len": {"type": "integer"},
                "vid_hash": {"type": "string"}
            }
        },
        "domain.ContentStats": {
            "type": "object",
            "properties": {
                "by_platform": {"type": "object", "additionalProperties": {"type": "integer", "format": "int64"}},
                "newest_at": {"type": "string"},
                "oldest_at": {"type": "string"},
                "total": {"type": "integer"}
            }
        },
        "handlers.CheckRequest": {
            "type": "object",
            "properties": {
                "image": {"type": "string", "format": "base64"},
                "text": {"type": "string", "example": "Launch day!"},
                "video": {"type": "string", "format": "base64"},
                "within_days": {"type": "integer", "example": 15}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.ListContentResponse": {
            "type": "object",
            "properties": {
                "pagination": {"$ref": "#/definitions/handlers.Pagination"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/domain.ContentRecord"}}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handlers.PurgeResponse": {
            "type": "object",
            "properties": {
                "deleted": {"type": "integer", "example": 12},
                "older_than_days": {"type": "integer", "example": 30}
            }
        },
        "handlers.RecordRequest": {
            "type": "object",
            "properties": {
                "image": {"type": "string", "format": "base64"},
                "note": {"type": "string", "maxLength": 1024},
                "platform": {"type": "string", "maxLength": 64, "example": "twitter"},
                "source_url": {"type": "string", "maxLength": 2048},
                "text": {"type": "string", "example": "Launch day!"},
                "video": {"type": "string", "format": "base64"},
                "within_days": {"type": "integer", "example": 15}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Content Dedup API",
	Description:      "Windowed duplicate detection for published text, images, and video.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
