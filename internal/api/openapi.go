package api

import (
	"encoding/json"
	"net/http"
)

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>Spark Prompt API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/openapi.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
            });
        };
    </script>
</body>
</html>`

// handleOpenAPI serves the OpenAPI documentation interface
func (s *APIServer) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(docsPage))
}

// handleOpenAPISpec serves the OpenAPI JSON specification
func (s *APIServer) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(getOpenAPISpec())
}

type object = map[string]interface{}

func ref(name string) object {
	return object{"$ref": "#/components/schemas/" + name}
}

func jsonBody(schema object) object {
	return object{
		"content": object{"application/json": object{"schema": schema}},
	}
}

func okResponse(description string, data object) object {
	return object{
		"200": object{
			"description": description,
			"content": object{"application/json": object{"schema": object{
				"allOf": []object{
					ref("APIResponse"),
					{"properties": object{"data": data}},
				},
			}}},
		},
		"default": object{"description": "Error", "content": object{"application/json": object{"schema": ref("ErrorResponse")}}},
	}
}

func queryParam(name, description string) object {
	return object{"name": name, "in": "query", "description": description, "schema": object{"type": "string"}}
}

var idParam = object{"name": "id", "in": "path", "required": true, "schema": object{"type": "string"}}

var keyParam = object{"name": "key", "in": "path", "required": true, "schema": object{"type": "string"}}

// sessionOperation documents the POST endpoints that take a session body
func sessionOperation(summary, body string) object {
	return object{
		"summary":     summary,
		"parameters":  []object{idParam, queryParam("locale", "cn or en")},
		"requestBody": jsonBody(ref(body)),
		"responses":   okResponse(summary, ref("SessionResponse")),
	}
}

// getOpenAPISpec returns the OpenAPI 3.0 specification
func getOpenAPISpec() object {
	return object{
		"openapi": "3.0.3",
		"info": object{
			"title":       "Spark Prompt API",
			"description": "Templates with {{key}} placeholders resolved against localized variable banks",
			"version":     "1.0.0",
		},
		"servers": []object{{"url": "/api/v1"}},
		"paths": object{
			"/templates": object{
				"get": object{
					"summary":    "List or search templates",
					"parameters": []object{queryParam("q", "fuzzy query"), queryParam("locale", "cn or en"), queryParam("limit", "maximum results")},
					"responses":  okResponse("Templates", object{"type": "array", "items": ref("Template")}),
				},
				"post": object{
					"summary":     "Create a template",
					"requestBody": jsonBody(ref("Template")),
					"responses":   okResponse("Created template", ref("Template")),
				},
			},
			"/templates/{id}": object{
				"get":    object{"summary": "Get a template", "parameters": []object{idParam}, "responses": okResponse("Template", ref("Template"))},
				"put":    object{"summary": "Replace a template", "parameters": []object{idParam}, "requestBody": jsonBody(ref("Template")), "responses": okResponse("Template", ref("Template"))},
				"delete": object{"summary": "Delete a template", "parameters": []object{idParam}, "responses": okResponse("Deleted", object{})},
			},
			"/templates/{id}/render":   object{"post": sessionOperation("Render the block tree", "SessionRequest")},
			"/templates/{id}/prompt":   object{"post": sessionOperation("Resolve the prompt", "SessionRequest")},
			"/templates/{id}/insert":   object{"post": sessionOperation("Insert a placeholder token", "InsertRequest")},
			"/templates/{id}/generate": object{"post": sessionOperation("Generate images", "GenerateRequest")},
			"/templates/{id}/selections": object{
				"get": object{"summary": "List saved selections", "parameters": []object{idParam}, "responses": okResponse("Selections", object{"type": "array"})},
			},
			"/templates/{id}/cover": object{
				"put": object{
					"summary":     "Copy an image into the library as the template cover",
					"parameters":  []object{idParam},
					"requestBody": jsonBody(object{"type": "object", "properties": object{"src": object{"type": "string", "description": "URL, data URI or local path"}}}),
					"responses":   okResponse("Template", ref("Template")),
				},
			},
			"/banks": object{
				"get": object{
					"summary":    "List banks",
					"parameters": []object{queryParam("category", "category id or all"), queryParam("locale", "cn or en")},
					"responses":  okResponse("Banks", object{"type": "array", "items": ref("BankMatch")}),
				},
			},
			"/banks/search": object{
				"get": object{
					"summary":    "Fuzzy search banks by key and label",
					"parameters": []object{queryParam("q", "fuzzy query"), queryParam("category", "category id or all"), queryParam("locale", "cn or en")},
					"responses":  okResponse("Banks", object{"type": "array", "items": ref("BankMatch")}),
				},
			},
			"/banks/{key}": object{
				"put":    object{"summary": "Create or replace a bank", "parameters": []object{keyParam}, "requestBody": jsonBody(ref("BankItem")), "responses": okResponse("Bank", ref("BankItem"))},
				"delete": object{"summary": "Delete a bank", "parameters": []object{keyParam}, "responses": okResponse("Deleted", object{})},
			},
			"/categories": object{
				"get": object{"summary": "List categories", "parameters": []object{queryParam("locale", "cn or en")}, "responses": okResponse("Categories", object{"type": "array"})},
			},
			"/categories/{id}": object{
				"put":    object{"summary": "Create or replace a category", "parameters": []object{idParam}, "requestBody": jsonBody(ref("Category")), "responses": okResponse("Category", ref("Category"))},
				"delete": object{"summary": "Delete a category", "parameters": []object{idParam}, "responses": okResponse("Deleted", object{})},
			},
			"/assets": object{
				"get": object{
					"summary":    "Fetch a cached image asset",
					"parameters": []object{queryParam("src", "URL, data URI or local path")},
					"responses":  object{"200": object{"description": "Asset bytes"}},
				},
			},
			"/history": object{
				"get": object{"summary": "List generation history", "parameters": []object{queryParam("template", "template id")}, "responses": okResponse("History", object{"type": "array"})},
			},
			"/history/{id}": object{
				"delete": object{"summary": "Delete a history record", "parameters": []object{idParam}, "responses": okResponse("Deleted", object{})},
			},
			"/health": object{
				"get": object{"summary": "Health check", "responses": okResponse("Health", object{"type": "object"})},
			},
		},
		"components": object{
			"schemas": object{
				"APIResponse": object{
					"type": "object",
					"properties": object{
						"success":   object{"type": "boolean"},
						"data":      object{},
						"message":   object{"type": "string"},
						"timestamp": object{"type": "string", "format": "date-time"},
					},
				},
				"ErrorResponse": object{
					"type": "object",
					"properties": object{
						"error": object{
							"type": "object",
							"properties": object{
								"code":      object{"type": "string"},
								"message":   object{"type": "string"},
								"details":   object{"type": "string"},
								"timestamp": object{"type": "string", "format": "date-time"},
							},
						},
					},
				},
				"LocalizedText": object{
					"type":                 "object",
					"additionalProperties": object{"type": "string"},
					"example":              object{"cn": "风景", "en": "Landscape"},
				},
				"Template": object{
					"type": "object",
					"properties": object{
						"id":       object{"type": "string"},
						"name":     ref("LocalizedText"),
						"content":  ref("LocalizedText"),
						"imageUrl": object{"type": "string"},
						"author":   object{"type": "string"},
						"tags":     object{"type": "array", "items": object{"type": "string"}},
					},
				},
				"SessionRequest": object{
					"type": "object",
					"properties": object{
						"locale":     object{"type": "string", "enum": []string{"cn", "en"}},
						"content":    object{"type": "string", "description": "unsaved content replacing the stored content"},
						"selections": object{"type": "object", "additionalProperties": object{"type": "string"}, "description": "identity (key_ordinal) to value"},
					},
				},
				"InsertRequest": object{
					"allOf": []object{ref("SessionRequest"), {"properties": object{
						"cursor": object{"type": "integer", "description": "rune index"},
						"key":    object{"type": "string"},
					}}},
				},
				"GenerateRequest": object{
					"allOf": []object{ref("SessionRequest"), {"properties": object{
						"model":  object{"type": "string"},
						"size":   object{"type": "string"},
						"images": object{"type": "array", "items": object{"type": "string"}},
					}}},
				},
				"SessionResponse": object{
					"type": "object",
					"properties": object{
						"templateId": object{"type": "string"},
						"locale":     object{"type": "string"},
						"content":    object{"type": "string"},
						"blocks":     object{"type": "array"},
						"variables":  object{"type": "array"},
						"prompt":     object{"type": "string"},
						"selections": object{"type": "object", "additionalProperties": object{"type": "string"}},
					},
				},
				"BankItem": object{
					"type": "object",
					"properties": object{
						"label":    ref("LocalizedText"),
						"category": object{"type": "string"},
						"options":  object{"type": "array", "items": ref("LocalizedText")},
					},
				},
				"Category": object{
					"type": "object",
					"properties": object{
						"id":    object{"type": "string"},
						"label": ref("LocalizedText"),
						"color": object{"type": "string"},
					},
				},
				"BankMatch": object{
					"type": "object",
					"properties": object{
						"key":      object{"type": "string"},
						"label":    object{"type": "string"},
						"category": object{"type": "object"},
						"options":  object{"type": "array", "items": object{"type": "string"}},
					},
				},
			},
		},
	}
}
