// Package docs is generated by swag init from the httpserver annotations.
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
        "/v1/submissions": {
            "get": {
                "summary": "List submissions",
                "parameters": [
                    {"type": "string", "name": "list_id", "in": "query"},
                    {"type": "string", "name": "submitted_by", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "summary": "Create a submission",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/submissions/{submission_id}": {
            "get": {
                "summary": "Get a submission",
                "parameters": [{"type": "string", "name": "submission_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "summary": "Patch a submission",
                "parameters": [{"type": "string", "name": "submission_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}
            },
            "delete": {
                "summary": "Delete a submission",
                "parameters": [{"type": "string", "name": "submission_id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}}
            }
        },
        "/v1/submissions/{submission_id}/queue-position": {
            "get": {
                "summary": "Queue position of a pending submission",
                "parameters": [{"type": "string", "name": "submission_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/submissions/{submission_id}/history": {
            "get": {
                "summary": "Audit history, newest first",
                "parameters": [{"type": "string", "name": "submission_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/v1/submissions/{submission_id}/unclaim": {
            "post": {"summary": "Return a claimed submission to the queue", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/submissions/{submission_id}/deny": {
            "post": {"summary": "Deny a submission", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/submissions/{submission_id}/under-consideration": {
            "post": {"summary": "Mark a submission under consideration", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/submissions/{submission_id}/accept": {
            "post": {"summary": "Accept a submission into a record", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/lists/{list_id}/queue/claim": {
            "post": {
                "summary": "Claim the highest priority pending submission",
                "parameters": [{"type": "string", "name": "list_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Queue empty"}}
            }
        },
        "/v1/lists/{list_id}/queue/stats": {
            "get": {
                "summary": "Queue counts by status",
                "parameters": [{"type": "string", "name": "list_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ranklist review API",
	Description:      "Submission review pipeline for community ranked lists.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
