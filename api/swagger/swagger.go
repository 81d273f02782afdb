package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Simulator API",
        "description": "Seeds a synthetic institution and advances it one simulated week at a time.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Health", "description": "Probes and metrics"},
        {"name": "Authentication", "description": "Operator tokens"},
        {"name": "Simulation", "description": "Seed, tick and read the simulated world"},
        {"name": "Exports", "description": "Rendered risk reports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness and dependency probe",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Health"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Exposition format"}}
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Exchange operator credentials for an admin token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Login disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/simulation/seed": {
            "post": {
                "tags": ["Simulation"],
                "summary": "Regenerate the synthetic institution",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SeedRequest"}}
                ],
                "responses": {
                    "201": {"description": "Seed summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid year range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not an admin", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/simulation/advance-week": {
            "post": {
                "tags": ["Simulation"],
                "summary": "Advance the simulated clock by seven days",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Tick result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Another tick is running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Not seeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/simulation/state": {
            "get": {
                "tags": ["Simulation"],
                "summary": "Current simulated date and active period",
                "responses": {
                    "200": {"description": "State", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Clock not started", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/simulation/periods": {
            "get": {
                "tags": ["Simulation"],
                "summary": "List academic periods by start date",
                "responses": {
                    "200": {"description": "Periods", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Not seeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/simulation/periods/{code}/risks": {
            "get": {
                "tags": ["Simulation"],
                "summary": "Student risk rows of a period",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Risks with bucket counts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown period", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/simulation/periods/{code}/risks/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Render and store the risk report of a period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "201": {"description": "Signed download URL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a stored report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string", "minLength": 8}
            }
        },
        "SeedRequest": {
            "type": "object",
            "required": ["year_start", "year_end"],
            "properties": {
                "year_start": {"type": "integer", "example": 2019},
                "year_end": {"type": "integer", "example": 2024}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
