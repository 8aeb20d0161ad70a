// Package apidocs registers the OpenAPI document served under /swagger.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/api/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/RegisterInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ProblemDetail"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ProblemDetail"}}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/LoginInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ProblemDetail"}}
                }
            }
        },
        "/api/auth/validate": {
            "post": {
                "tags": ["auth"],
                "summary": "Validate a token",
                "produces": ["application/json"],
                "parameters": [{"in": "query", "name": "token", "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResult"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ProblemDetail"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Log out", "responses": {"204": {"description": "No Content"}}}
        },
        "/api/me": {
            "get": {
                "tags": ["auth"],
                "summary": "Current principal",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/users": {
            "get": {
                "tags": ["users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "per_page", "type": "integer", "maximum": 100}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/users/{id}": {
            "get": {
                "tags": ["users"],
                "summary": "Get a user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/users/{id}/password": {
            "patch": {
                "tags": ["users"],
                "summary": "Replace a user's password",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/users/{id}/profile": {
            "patch": {
                "tags": ["users"],
                "summary": "Update a user's email and names",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/users/{id}/status": {
            "patch": {
                "tags": ["users"],
                "summary": "Activate or deactivate a user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/users/{id}/roles/{roleID}": {
            "post": {
                "tags": ["users"],
                "summary": "Grant a role",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            },
            "delete": {
                "tags": ["users"],
                "summary": "Revoke a role",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/roles": {
            "get": {"tags": ["roles"], "summary": "List roles", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["roles"], "summary": "Create a role", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/api/roles/{id}": {
            "get": {"tags": ["roles"], "summary": "Get a role", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/roles/{id}/permissions/{permissionID}": {
            "post": {"tags": ["roles"], "summary": "Grant a permission to a role", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["roles"], "summary": "Revoke a permission from a role", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/api/permissions": {
            "get": {"tags": ["roles"], "summary": "List permissions", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/permissions/{id}": {
            "get": {"tags": ["roles"], "summary": "Get a permission", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/init/status": {
            "get": {"tags": ["init"], "summary": "System initialisation status", "responses": {"200": {"description": "OK"}}}
        },
        "/api/init/bootstrap": {
            "post": {"tags": ["init"], "summary": "Enqueue the RBAC bootstrap job", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Accepted"}}}
        }
    },
    "definitions": {
        "RegisterInput": {
            "type": "object",
            "required": ["username", "password", "email"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string", "maxLength": 72},
                "email": {"type": "string", "format": "email"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "role_ids": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "LoginInput": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "role_ids": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "AuthResult": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/Profile"}}
        },
        "ProblemDetail": {
            "type": "object",
            "properties": {"type": {"type": "string"}, "title": {"type": "string"}, "status": {"type": "integer"}, "detail": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Odyssey Auth API",
	Description:      "Token issuance, request authentication and role-based authorization.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
