// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "description": "Authenticate with email and password and return a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Login user",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "description": "Create an active SALES_REP account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register new user",
                "parameters": [
                    {"description": "Registration data", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.RegisterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Revoke the bearer token used for this request",
                "tags": ["Auth"],
                "summary": "Logout user",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get the profile of the authenticated user",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/leads": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Filter, search, sort and paginate leads",
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "List leads",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "Zero-based page", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size (1-1000)", "name": "size", "in": "query"},
                    {"type": "string", "description": "Lead status", "name": "status", "in": "query"},
                    {"type": "string", "description": "Lead source", "name": "source", "in": "query"},
                    {"type": "string", "description": "Case-insensitive text in company, contact or email", "name": "search", "in": "query"},
                    {"type": "string", "description": "Created at or after", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "Created at or before", "name": "endDate", "in": "query"},
                    {"type": "string", "description": "key[,asc|desc]", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pagination.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Status defaults to NEW and source to OTHER",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Create lead",
                "parameters": [
                    {"description": "Lead", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LeadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.LeadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/leads/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Search leads by company, contact or email",
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Search leads",
                "parameters": [
                    {"type": "string", "description": "Search term", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "default": 0, "description": "Zero-based page", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pagination.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/leads/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Counts by status and source, total and created in the last 30 days",
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Lead statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatsResponse"}}
                }
            }
        },
        "/leads/count": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Lead count by status",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}}
                }
            }
        },
        "/leads/status/{status}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "List leads by status",
                "parameters": [
                    {"type": "string", "description": "Lead status", "name": "status", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pagination.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/leads/source/{source}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "List leads by source",
                "parameters": [
                    {"type": "string", "description": "Lead source", "name": "source", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pagination.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/leads/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Get lead by ID",
                "parameters": [
                    {"type": "integer", "description": "Lead ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LeadResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Update lead",
                "parameters": [
                    {"type": "integer", "description": "Lead ID", "name": "id", "in": "path", "required": true},
                    {"description": "Lead", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LeadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LeadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Leads"],
                "summary": "Partially update lead",
                "parameters": [
                    {"type": "integer", "description": "Lead ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LeadPatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LeadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "ADMIN only",
                "tags": ["Leads"],
                "summary": "Delete lead",
                "parameters": [
                    {"type": "integer", "description": "Lead ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.LeadPatchRequest": {
            "type": "object",
            "properties": {
                "companyName": {"type": "string"},
                "contactName": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handlers.LeadRequest": {
            "type": "object",
            "properties": {
                "companyName": {"type": "string"},
                "contactName": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handlers.LeadResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "companyName": {"type": "string"},
                "contactName": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "status": {"type": "string"},
                "source": {"type": "string"},
                "ownerId": {"type": "integer"},
                "owner": {"$ref": "#/definitions/handlers.OwnerResponse"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handlers.OwnerResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "accessToken": {"type": "string"},
                "tokenType": {"type": "string"},
                "expiresAt": {"type": "string"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirmPassword": {"type": "string"}
            }
        },
        "handlers.RegisterResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "userId": {"type": "integer"},
                "email": {"type": "string"}
            }
        },
        "handlers.StatsResponse": {
            "type": "object",
            "properties": {
                "byStatus": {"type": "object", "additionalProperties": {"type": "integer"}},
                "bySource": {"type": "object", "additionalProperties": {"type": "integer"}},
                "totalLeads": {"type": "integer"},
                "recentLeads": {"type": "integer"},
                "generatedAt": {"type": "string"}
            }
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "role": {"type": "string"},
                "active": {"type": "boolean"},
                "createdAt": {"type": "string"}
            }
        },
        "pagination.Pageable": {
            "type": "object",
            "properties": {
                "pageNumber": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "sort": {"type": "string"}
            }
        },
        "pagination.Response": {
            "type": "object",
            "properties": {
                "content": {"type": "array", "items": {"$ref": "#/definitions/handlers.LeadResponse"}},
                "totalElements": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "numberOfElements": {"type": "integer"},
                "first": {"type": "boolean"},
                "last": {"type": "boolean"},
                "empty": {"type": "boolean"},
                "pageable": {"$ref": "#/definitions/pagination.Pageable"},
                "searchTerm": {"type": "string"}
            }
        },
        "response.ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Salesforge API",
	Description:      "Lead tracking API with bearer-token authentication and role-based access control",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
