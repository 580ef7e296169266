// Package docs registers the OpenAPI description served by Swagger UI.
//
// The template follows the layout swag init emits; keep the paths in step
// with the godoc annotations in internal/http/handlers.
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
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Status"],
                "summary": "Service banner",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/webhook": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["Webhooks"],
                "summary": "WhatsApp webhook verification",
                "parameters": [
                    {"type": "string", "description": "subscribe", "name": "hub.mode", "in": "query", "required": true},
                    {"type": "string", "description": "Shared verify token", "name": "hub.verify_token", "in": "query", "required": true},
                    {"type": "string", "description": "Challenge to echo", "name": "hub.challenge", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "challenge", "schema": {"type": "string"}},
                    "403": {"description": "Verification failed", "schema": {"type": "string"}}
                }
            },
            "post": {
                "description": "Processes the first message of the first change. Always answers 200 so the provider does not retry.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Receive WhatsApp messages",
                "parameters": [
                    {"description": "Cloud API notification", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.WhatsAppWebhookRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}}
                }
            }
        },
        "/telegram/webhook": {
            "post": {
                "description": "Processes message updates. Other update kinds are acknowledged and skipped.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Receive Telegram updates",
                "parameters": [
                    {"type": "string", "description": "Webhook secret, required when configured", "name": "X-Telegram-Bot-Api-Secret-Token", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/demo/chats": {
            "get": {
                "description": "Oldest first. Supports a weak ETag via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["Demo"],
                "summary": "Recent messages across all contacts",
                "parameters": [
                    {"maximum": 200, "minimum": 1, "type": "integer", "default": 50, "description": "Number of messages", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Return 304 if the ETag matches", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.DemoMessage"}}, "headers": {"ETag": {"type": "string", "description": "Weak ETag of the feed"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/demo/reset": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Demo"],
                "summary": "Clear the message log",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.StatusResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "received"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "list_failed"},
                "message": {"type": "string", "example": "could not load messages"}
            }
        },
        "handlers.DemoMessage": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "42"},
                "direction": {"type": "string", "example": "inbound"},
                "from": {"type": "string", "example": "2348012345678"},
                "body": {"type": "string", "example": "Hi"},
                "timestamp": {"type": "integer", "example": 1718000000000},
                "platform": {"type": "string", "example": "whatsapp"}
            }
        },
        "handlers.WhatsAppWebhookRequest": {
            "type": "object",
            "properties": {
                "object": {"type": "string", "example": "whatsapp_business_account"},
                "entry": {"type": "array", "items": {"type": "object"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "vendorbot API",
	Description:      "WhatsApp and Telegram webhooks for a virtual food vendor, plus the demo dashboard API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
