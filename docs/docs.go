// Package docs registers the OpenAPI description served under /docs/*.
// Regenerate with: swag init -g cmd/solvix-api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Solvix Support",
            "email": "support@solvix.fr"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {"post": {"tags": ["Auth"], "summary": "Create an account", "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Obtain an access token", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}}},
        "/auth/logout": {"post": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Revoke the current token", "responses": {"200": {"description": "OK"}}}},
        "/auth/password-reset": {"post": {"tags": ["Auth"], "summary": "Request a password reset email", "responses": {"200": {"description": "OK"}}}},
        "/auth/password-reset/confirm": {"post": {"tags": ["Auth"], "summary": "Set a new password", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid or expired token"}}}},
        "/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/profile": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Company profile", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Replace the company profile", "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}}
        },
        "/clients": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Clients"], "summary": "List clients", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Clients"], "summary": "Create a client", "responses": {"201": {"description": "Created"}}}
        },
        "/clients/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Clients"], "summary": "Get a client", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Clients"], "summary": "Replace a client", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Clients"], "summary": "Delete a client", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/quotes": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "List quotes", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Create a quote", "responses": {"201": {"description": "Created"}, "403": {"description": "Quota reached or premium template"}}}
        },
        "/quotes/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Get a quote with its lines", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Replace a quote and its lines", "responses": {"200": {"description": "OK"}, "409": {"description": "Quote accepted"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Delete a quote", "responses": {"200": {"description": "OK"}}}
        },
        "/quotes/{id}/status": {"patch": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Change the status of a quote", "responses": {"200": {"description": "OK"}, "409": {"description": "Transition not allowed"}}}},
        "/quotes/{id}/pdf": {"get": {"security": [{"BearerAuth": []}], "produces": ["application/pdf"], "tags": ["Quotes"], "summary": "Download a quote as PDF", "responses": {"200": {"description": "PDF document"}}}},
        "/quotes/{id}/share": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Publish a quote", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Quotes"], "summary": "Revoke the public link of a quote", "responses": {"200": {"description": "OK"}}}
        },
        "/quota": {"get": {"security": [{"BearerAuth": []}], "tags": ["Quota"], "summary": "Monthly quote allowance", "responses": {"200": {"description": "OK"}}}},
        "/activation/activate": {"post": {"security": [{"BearerAuth": []}], "tags": ["Activation"], "summary": "Activate a premium code", "responses": {"200": {"description": "OK"}, "400": {"description": "Code rejected"}, "409": {"description": "Already premium"}, "422": {"description": "Malformed code"}, "429": {"description": "Blocked"}}}},
        "/notifications/preferences": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Notifications"], "summary": "Email preferences", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Notifications"], "summary": "Replace email preferences", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/codes": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "List activation codes", "responses": {"200": {"description": "OK"}, "403": {"description": "Not an administrator"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Generate a batch of activation codes", "responses": {"201": {"description": "Created"}, "403": {"description": "Not an administrator"}}}
        },
        "/admin/codes/stats": {"get": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Count activation codes per status", "responses": {"200": {"description": "OK"}}}},
        "/admin/codes/{code}/sell": {"post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Mark a code as sold", "responses": {"200": {"description": "OK"}, "409": {"description": "Not available"}}}},
        "/admin/codes/{code}/revoke": {"post": {"security": [{"BearerAuth": []}], "tags": ["Admin"], "summary": "Revoke a code", "responses": {"200": {"description": "OK"}, "409": {"description": "Already revoked"}}}},
        "/public/quotes/{token}": {"get": {"tags": ["Public"], "summary": "View a shared quote", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/public/quotes/{token}/pdf": {"get": {"produces": ["application/pdf"], "tags": ["Public"], "summary": "Download a shared quote as PDF", "responses": {"200": {"description": "PDF document"}}}},
        "/public/quotes/{token}/accept": {"post": {"tags": ["Public"], "summary": "Accept a shared quote", "responses": {"200": {"description": "OK"}, "409": {"description": "Transition not allowed"}, "410": {"description": "Validity date passed"}}}}
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
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Solvix Devis API",
	Description:      "Quotes, clients and premium activation for Solvix",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
