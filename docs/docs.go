// Package docs registers the doctech OpenAPI document with swag so the HTTP
// transport can serve it at /swagger/doc.json.
package docs

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
        "/decide_and_respond": {
            "post": {
                "description": "Accepts a multipart upload (field \"audio\"), raw audio bytes, or a JSON text request.\nReturns the plan to echo to /execute_plan and, when speech was produced, the URL of the clip.\nNo search is performed.",
                "consumes": ["multipart/form-data", "application/json", "audio/ogg", "audio/webm"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Classify a voice command and speak a confirmation",
                "parameters": [
                    {"type": "integer", "description": "Page currently displayed (1-based)", "name": "current_page", "in": "query"},
                    {"type": "integer", "description": "Pages in the open document", "name": "page_count", "in": "query"},
                    {"type": "string", "enum": ["none", "text", "audio", "text+audio"], "description": "none, text, audio or text+audio", "name": "response_mode", "in": "query"},
                    {"type": "file", "description": "Recorded speech", "name": "audio", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.decideResponse"}},
                    "400": {"description": "Malformed request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "422": {"description": "Speech or intent could not be understood", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/execute_plan": {
            "post": {
                "description": "Resolves the target page or document. The \"plan\" object from the decide response is accepted as-is.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Execute a plan returned by /decide_and_respond",
                "parameters": [
                    {"description": "Plan to execute", "name": "plan", "in": "body", "required": true, "schema": {"$ref": "#/definitions/message.Plan"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.Resolution"}},
                    "400": {"description": "Malformed plan", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Nothing in the index matched", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "502": {"description": "Search service unavailable", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/query": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Classify and execute a typed command in one call",
                "parameters": [
                    {"description": "Utterance and viewer state", "name": "query", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.queryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/message.Answer"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/audio_response/{id}": {
            "get": {
                "produces": ["audio/mpeg", "audio/wav"],
                "tags": ["pipeline"],
                "summary": "Fetch a spoken confirmation",
                "parameters": [
                    {"type": "string", "description": "Audio id from the decide response", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Unknown or expired clip", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.decideResponse": {
            "type": "object",
            "properties": {
                "audio_url": {"type": "string"},
                "plan": {"$ref": "#/definitions/message.Decision"}
            }
        },
        "http.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/message.Failure"}
            }
        },
        "http.queryRequest": {
            "type": "object",
            "properties": {
                "context": {"$ref": "#/definitions/message.NavigationContext"},
                "text": {"type": "string"}
            }
        },
        "message.Action": {
            "type": "string",
            "enum": ["scroll_up", "scroll_down", "next_page", "previous_page", "snap_page", "find_fig", "find_doc", "non_determ"]
        },
        "message.Answer": {
            "type": "object",
            "properties": {
                "decision": {"$ref": "#/definitions/message.Decision"},
                "resolution": {"$ref": "#/definitions/message.Resolution"}
            }
        },
        "message.Decision": {
            "type": "object",
            "properties": {
                "action": {"$ref": "#/definitions/message.Action"},
                "audio_id": {"type": "string"},
                "confirmation": {"type": "string"},
                "context": {"$ref": "#/definitions/message.NavigationContext"},
                "id": {"type": "string"},
                "language": {"type": "string"},
                "parameters": {"$ref": "#/definitions/message.Parameters"},
                "utterance": {"type": "string"}
            }
        },
        "message.Failure": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["transcription", "classification", "extraction", "no_match", "search_unavailable", "synthesis", "invalid_request", "invalid_plan", "internal"]},
                "message": {"type": "string"}
            }
        },
        "message.NavigationContext": {
            "type": "object",
            "properties": {
                "current_page": {"type": "integer"},
                "page_count": {"type": "integer"}
            }
        },
        "message.Parameters": {
            "type": "object",
            "properties": {
                "document_description": {"type": "string"},
                "figure_description": {"type": "string"},
                "page": {"type": "integer"}
            }
        },
        "message.Plan": {
            "type": "object",
            "properties": {
                "action": {"$ref": "#/definitions/message.Action"},
                "context": {"$ref": "#/definitions/message.NavigationContext"},
                "parameters": {"$ref": "#/definitions/message.Parameters"},
                "utterance": {"type": "string"}
            }
        },
        "message.Resolution": {
            "type": "object",
            "properties": {
                "action": {"$ref": "#/definitions/message.Action"},
                "context": {"$ref": "#/definitions/message.NavigationContext"},
                "document": {"type": "string"},
                "document_name": {"type": "string"},
                "page": {"type": "integer"},
                "utterance": {"type": "string"}
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
	Title:            "doctech API",
	Description:      "Voice command router for a document viewer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
