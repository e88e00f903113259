package openapi

import "maps"

// NewComponents creates Components with the page request schema and the shared
// error responses.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 25},
					"search":    {Type: "string", Description: "Case-insensitive search text"},
					"sort":      {Type: "string", Description: "Comma-separated sort fields, prefix - for descending", Example: "-BilledAmount"},
				},
			},
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":   errorResponse("Invalid request"),
			"Unauthorized": errorResponse("Authentication required"),
			"NotFound":     errorResponse("Resource not found"),
			"Conflict":     errorResponse("Duplicate resource"),
		},
	}
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

func errorResponse(description string) *Response {
	return ResponseJSON(description, "Error")
}
