// Package docs registers the generated OpenAPI specification with swag.
// Code generated by swag init; edits belong in the handler annotations.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Authenticate and obtain a JWT",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/v1/shipments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["shipments"],
                "summary": "List mirrored shipments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shipments"],
                "summary": "Create a shipment on the ledger",
                "responses": {
                    "201": {"description": "Created"},
                    "402": {"description": "Payment Required"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/v1/shipments/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["shipments"],
                "summary": "Fetch a shipment by id",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/v1/shipments/{id}/assign": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shipments"],
                "summary": "Assign a driver and vehicle",
                "responses": {
                    "200": {"description": "OK"},
                    "422": {"description": "Unprocessable Entity"}
                }
            }
        },
        "/v1/shipments/{id}/status": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shipments"],
                "summary": "Advance the shipment status",
                "responses": {
                    "200": {"description": "OK"},
                    "422": {"description": "Unprocessable Entity"}
                }
            }
        },
        "/v1/shipments/{id}/checkpoints": {
            "get": {
                "produces": ["application/json"],
                "tags": ["checkpoints"],
                "summary": "List checkpoints for a shipment",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["checkpoints"],
                "summary": "Record a checkpoint",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/v1/admin/withdraw": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Withdraw collected fees",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "FreightChain Tracking API",
	Description:      "Ledger-backed shipment tracking with a reconciled read mirror.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
