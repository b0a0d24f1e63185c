package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Grievance API",
        "description": "Grievance classification, submission and lifecycle tracking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Taxonomy", "description": "Categories, sub-categories and their field schemas"},
        {"name": "Grievances", "description": "Submission, visibility and status lifecycle"}
    ],
    "paths": {
        "/taxonomy": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "List categories, sub-categories and field schemas",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/taxonomy/{category}/{subCategory}": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "Get the field schema for a sub-category",
                "parameters": [
                    {"name": "category", "in": "path", "required": true, "type": "string"},
                    {"name": "subCategory", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown category or sub-category", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances": {
            "get": {
                "tags": ["Grievances"],
                "summary": "List visible grievances, newest first",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["all", "submitted", "in_progress", "resolved", "closed"]},
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grievances"],
                "summary": "File a grievance",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitGrievanceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Identifier could not be assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/stats": {
            "get": {
                "tags": ["Grievances"],
                "summary": "Grievance counts per status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Reviewer role required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/export": {
            "get": {
                "tags": ["Grievances"],
                "summary": "Export grievances as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Reviewer role required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/{id}": {
            "get": {
                "tags": ["Grievances"],
                "summary": "Get grievance detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/{id}/history": {
            "get": {
                "tags": ["Grievances"],
                "summary": "List grievance status history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/{id}/transitions": {
            "get": {
                "tags": ["Grievances"],
                "summary": "List statuses the caller may move a grievance to",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grievances/{id}/transition": {
            "post": {
                "tags": ["Grievances"],
                "summary": "Change grievance status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionGrievanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing resolution comments", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Reviewer role required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid or stale transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitGrievanceRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "enum": ["academic", "facility", "examination", "placement", "other"]},
                "subCategory": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            },
            "required": ["category", "subCategory", "title", "description"]
        },
        "TransitionGrievanceRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["submitted", "in_progress", "resolved", "closed"]},
                "resolutionComments": {"type": "string"},
                "expectedStatus": {"type": "string"}
            },
            "required": ["status"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "field": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
