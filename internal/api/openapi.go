package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/pkg/openapi"
)

var (
	money    = &openapi.Schema{Type: "string", Format: "decimal", Example: "1639.00"}
	date     = &openapi.Schema{Type: "string", Format: "date-time"}
	uuidType = &openapi.Schema{Type: "string", Format: "uuid"}
	integer  = &openapi.Schema{Type: "integer"}
	text     = &openapi.Schema{Type: "string"}
	nullable = &openapi.Schema{Type: "string", Description: "null when absent"}
)

var claimStatus = &openapi.Schema{
	Type: "string",
	Enum: []any{"pending", "paid", "denied", "under_review"},
}

func counts() *openapi.Schema {
	return object(map[string]*openapi.Schema{
		"created": integer,
		"updated": integer,
		"skipped": integer,
		"failed":  integer,
	})
}

func object(props map[string]*openapi.Schema, required ...string) *openapi.Schema {
	return &openapi.Schema{Type: "object", Properties: props, Required: required}
}

func page(item string) *openapi.Schema {
	return object(map[string]*openapi.Schema{
		"data":        openapi.ArrayOf(item),
		"total":       integer,
		"page":        integer,
		"page_size":   integer,
		"total_pages": integer,
	})
}

func schemas() map[string]*openapi.Schema {
	claim := map[string]*openapi.Schema{
		"id":             integer,
		"patient_name":   text,
		"billed_amount":  money,
		"paid_amount":    money,
		"status":         claimStatus,
		"insurer_name":   text,
		"discharge_date": date,
		"flag_count":     integer,
		"note_count":     integer,
	}

	record := map[string]*openapi.Schema{"details": openapi.ArrayOf("Detail")}
	for k, v := range claim {
		record[k] = v
	}

	return map[string]*openapi.Schema{
		"Claim":       object(claim, "id", "patient_name", "billed_amount", "paid_amount", "status", "insurer_name", "discharge_date"),
		"ClaimRecord": object(record, "id", "details"),
		"ClaimPage":   page("Claim"),
		"Detail": object(map[string]*openapi.Schema{
			"id":            integer,
			"claim_id":      integer,
			"cpt_code":      {Type: "string", Description: "Comma-separated CPT codes", Example: "99204,82947"},
			"denial_reason": nullable,
		}),
		"FilterOptions": object(map[string]*openapi.Schema{
			"statuses": {Type: "array", Items: claimStatus},
			"insurers": {Type: "array", Items: text},
		}),
		"ClaimSearch": object(map[string]*openapi.Schema{
			"page":         integer,
			"page_size":    integer,
			"search":       text,
			"sort":         text,
			"status":       claimStatus,
			"insurer":      text,
			"patient_name": text,
			"min_billed":   money,
			"max_billed":   money,
		}),
		"Annotation": object(map[string]*openapi.Schema{
			"id":         uuidType,
			"claim_id":   integer,
			"kind":       {Type: "string", Enum: []any{"flag", "note"}},
			"category":   nullable,
			"note":       text,
			"author_id":  uuidType,
			"author":     text,
			"created_at": date,
		}),
		"AnnotationCounts": object(map[string]*openapi.Schema{"flags": integer, "notes": integer}),
		"AnnotationList": object(map[string]*openapi.Schema{
			"annotations": openapi.ArrayOf("Annotation"),
			"counts":      openapi.SchemaRef("AnnotationCounts"),
		}),
		"AnnotationResult": object(map[string]*openapi.Schema{
			"success":    {Type: "boolean"},
			"annotation": openapi.SchemaRef("Annotation"),
			"counts":     openapi.SchemaRef("AnnotationCounts"),
		}),
		"FlagRequest": object(map[string]*openapi.Schema{
			"reason": {Type: "string", Default: "Flagged for review"},
			"note":   text,
		}),
		"NoteRequest": object(map[string]*openapi.Schema{"content": text}, "content"),
		"ImportRun": object(map[string]*openapi.Schema{
			"id":              uuidType,
			"files":           {Type: "array", Items: text},
			"format":          text,
			"mode":            {Type: "string", Enum: []any{"append", "overwrite", "clear"}},
			"update_existing": {Type: "boolean"},
			"archive_keys":    {Type: "array", Items: text},
			"claims":          counts(),
			"details":         counts(),
			"started_at":      date,
			"completed_at":    date,
		}),
		"ImportRunPage": page("ImportRun"),
		"Overview": {
			Type:        "object",
			Description: "Dashboard aggregates: totals, financials, status and insurer breakdowns, monthly counts, and recent activity.",
		},
		"User": object(map[string]*openapi.Schema{
			"id":         uuidType,
			"username":   text,
			"email":      text,
			"first_name": text,
			"last_name":  text,
			"created_at": date,
		}),
		"BlobMeta": object(map[string]*openapi.Schema{
			"key":            text,
			"content_type":   text,
			"content_length": integer,
			"last_modified":  date,
		}),
		"BlobList": object(map[string]*openapi.Schema{
			"blobs":       openapi.ArrayOf("BlobMeta"),
			"next_marker": text,
		}),
	}
}

func claimID() *openapi.Parameter {
	return openapi.IntPathParam("id", "Claim identifier")
}

func pageParams() []*openapi.Parameter {
	return []*openapi.Parameter{
		openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
		openapi.QueryParam("page_size", "integer", "Results per page", false),
		openapi.QueryParam("search", "string", "Matches claim id, patient, or insurer", false),
		openapi.QueryParam("sort", "string", "Comma-separated sort fields, prefix - for descending", false),
	}
}

var unauthorized = map[int]*openapi.Response{http.StatusUnauthorized: openapi.ResponseRef("Unauthorized")}

func responses(ok int, r *openapi.Response, extra ...int) map[int]*openapi.Response {
	out := map[int]*openapi.Response{ok: r}
	for k, v := range unauthorized {
		out[k] = v
	}
	for _, code := range extra {
		switch code {
		case http.StatusBadRequest:
			out[code] = openapi.ResponseRef("BadRequest")
		case http.StatusNotFound:
			out[code] = openapi.ResponseRef("NotFound")
		case http.StatusConflict:
			out[code] = openapi.ResponseRef("Conflict")
		case http.StatusServiceUnavailable:
			out[code] = &openapi.Response{Description: "Archive storage is not enabled"}
		}
	}
	return out
}

// Spec describes every JSON endpoint. Paths are relative to the API base path.
func Spec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(schemas())

	filters := append(pageParams(),
		openapi.QueryParam("status", "string", "pending, paid, denied, or under_review", false),
		openapi.QueryParam("insurer", "string", "Insurer name contains, ignoring case", false),
		openapi.QueryParam("patient_name", "string", "Patient name contains", false),
		openapi.QueryParam("min_billed", "number", "Minimum billed amount, inclusive", false),
		openapi.QueryParam("max_billed", "number", "Maximum billed amount, inclusive", false),
	)

	spec.AddOperation(http.MethodGet, "/me", &openapi.Operation{
		Summary:   "Signed-in user",
		Tags:      []string{"Session"},
		Responses: responses(http.StatusOK, openapi.ResponseJSON("Current user", "User")),
	})

	spec.AddOperation(http.MethodGet, "/claims", &openapi.Operation{
		Summary:    "List claims",
		Tags:       []string{"Claims"},
		Parameters: filters,
		Responses:  responses(http.StatusOK, openapi.ResponseJSON("Page of claims", "ClaimPage")),
	})
	spec.AddOperation(http.MethodPost, "/claims/search", &openapi.Operation{
		Summary:     "Search claims",
		Tags:        []string{"Claims"},
		RequestBody: openapi.RequestBodyJSON("ClaimSearch", true),
		Responses:   responses(http.StatusOK, openapi.ResponseJSON("Page of claims", "ClaimPage"), http.StatusBadRequest),
	})
	spec.AddOperation(http.MethodGet, "/claims/filters", &openapi.Operation{
		Summary:   "Filter options",
		Tags:      []string{"Claims"},
		Responses: responses(http.StatusOK, openapi.ResponseJSON("Statuses and insurers", "FilterOptions")),
	})
	spec.AddOperation(http.MethodGet, "/claims/{id}", &openapi.Operation{
		Summary:    "Claim with line items",
		Tags:       []string{"Claims"},
		Parameters: []*openapi.Parameter{claimID()},
		Responses:  responses(http.StatusOK, openapi.ResponseJSON("Claim record", "ClaimRecord"), http.StatusBadRequest, http.StatusNotFound),
	})

	spec.AddOperation(http.MethodGet, "/claims/{id}/annotations", &openapi.Operation{
		Summary:    "Flags and notes on a claim",
		Tags:       []string{"Annotations"},
		Parameters: []*openapi.Parameter{claimID()},
		Responses:  responses(http.StatusOK, openapi.ResponseJSON("Annotations, newest first", "AnnotationList"), http.StatusBadRequest),
	})
	spec.AddOperation(http.MethodPost, "/claims/{id}/flags", &openapi.Operation{
		Summary:     "Flag a claim for review",
		Tags:        []string{"Annotations"},
		Parameters:  []*openapi.Parameter{claimID()},
		RequestBody: openapi.RequestBodyJSON("FlagRequest", false),
		Responses:   responses(http.StatusCreated, openapi.ResponseJSON("Flag created", "AnnotationResult"), http.StatusBadRequest, http.StatusNotFound, http.StatusConflict),
	})
	spec.AddOperation(http.MethodPost, "/claims/{id}/notes", &openapi.Operation{
		Summary:     "Add a note to a claim",
		Tags:        []string{"Annotations"},
		Parameters:  []*openapi.Parameter{claimID()},
		RequestBody: openapi.RequestBodyJSON("NoteRequest", true),
		Responses:   responses(http.StatusCreated, openapi.ResponseJSON("Note created", "AnnotationResult"), http.StatusBadRequest, http.StatusNotFound),
	})

	spec.AddOperation(http.MethodGet, "/imports", &openapi.Operation{
		Summary:    "Import run history",
		Tags:       []string{"Imports"},
		Parameters: pageParams()[:2],
		Responses:  responses(http.StatusOK, openapi.ResponseJSON("Page of runs, newest first", "ImportRunPage")),
	})
	spec.AddOperation(http.MethodGet, "/imports/archive", &openapi.Operation{
		Summary: "List archived import files",
		Tags:    []string{"Imports"},
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("prefix", "string", "Key prefix under the archive, e.g. 2024/03/09", false),
			openapi.QueryParam("marker", "string", "Continuation marker", false),
			openapi.QueryParam("max_results", "integer", "Page size", false),
		},
		Responses: responses(http.StatusOK, openapi.ResponseJSON("Archived files", "BlobList"), http.StatusBadRequest, http.StatusServiceUnavailable),
	})
	spec.AddOperation(http.MethodGet, "/imports/archive/{key}", &openapi.Operation{
		Summary:    "Archived file metadata",
		Tags:       []string{"Imports"},
		Parameters: []*openapi.Parameter{archiveKey()},
		Responses:  responses(http.StatusOK, openapi.ResponseJSON("File metadata", "BlobMeta"), http.StatusNotFound, http.StatusServiceUnavailable),
	})
	spec.AddOperation(http.MethodGet, "/imports/archive/download/{key}", &openapi.Operation{
		Summary:    "Download an archived file",
		Tags:       []string{"Imports"},
		Parameters: []*openapi.Parameter{archiveKey()},
		Responses:  responses(http.StatusOK, &openapi.Response{Description: "Original file content"}, http.StatusNotFound, http.StatusServiceUnavailable),
	})

	spec.AddOperation(http.MethodGet, "/dashboard", &openapi.Operation{
		Summary:   "Dashboard aggregates",
		Tags:      []string{"Dashboard"},
		Responses: responses(http.StatusOK, openapi.ResponseJSON("Overview", "Overview")),
	})

	return spec
}

func archiveKey() *openapi.Parameter {
	return &openapi.Parameter{
		Name:        "key",
		In:          "path",
		Required:    true,
		Description: "Archive key, relative to the archive prefix",
		Schema:      text,
	}
}

func specJSON(cfg *config.Config) ([]byte, error) {
	data, err := openapi.MarshalJSON(Spec(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	return data, nil
}
