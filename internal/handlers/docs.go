package handlers

import (
	"encoding/json"
	"net/http"
)

var targetParameters = []map[string]interface{}{
	{
		"name":        "jurisdiction",
		"in":          "query",
		"description": "Override the configured target jurisdiction (exact, case-sensitive)",
		"required":    false,
		"schema":      map[string]string{"type": "string"},
	},
	{
		"name":        "group",
		"in":          "query",
		"description": "Override the configured target group (exact, case-sensitive)",
		"required":    false,
		"schema":      map[string]string{"type": "string"},
	},
}

var summarySchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"count":  map[string]string{"type": "integer"},
		"mean":   map[string]interface{}{"type": "number", "nullable": true},
		"median": map[string]interface{}{"type": "number", "nullable": true},
		"std":    map[string]interface{}{"type": "number", "nullable": true, "description": "Sample standard deviation; null below two records"},
		"q1":     map[string]interface{}{"type": "number", "nullable": true},
		"q3":     map[string]interface{}{"type": "number", "nullable": true},
		"iqr":    map[string]interface{}{"type": "number", "nullable": true},
		"min":    map[string]interface{}{"type": "number", "nullable": true},
		"max":    map[string]interface{}{"type": "number", "nullable": true},
		"skew":   map[string]interface{}{"type": "string", "enum": []string{"right", "left", "symmetric", "undefined"}},
	},
}

var targetSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"target_jurisdiction": map[string]string{"type": "string"},
		"target_group":        map[string]string{"type": "string"},
	},
}

var summaryResponseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"run_id":       map[string]string{"type": "string", "format": "uuid"},
		"target":       targetSchema,
		"generated_at": map[string]string{"type": "string", "format": "date-time"},
		"summary":      summarySchema,
		"diagnostics": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"normalization": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"total":               map[string]string{"type": "integer"},
						"missing_year":        map[string]string{"type": "integer"},
						"missing_month":       map[string]string{"type": "integer"},
						"missing_death_count": map[string]string{"type": "integer"},
					},
				},
				"cohort": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"input":            map[string]string{"type": "integer"},
						"target_mismatch":  map[string]string{"type": "integer"},
						"missing_required": map[string]string{"type": "integer"},
						"kept":             map[string]string{"type": "integer"},
					},
				},
			},
		},
	},
}

func jsonResponse(description string, schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": schema,
			},
		},
	}
}

var errorResponseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"error":   map[string]string{"type": "string"},
		"message": map[string]string{"type": "string"},
		"code":    map[string]string{"type": "integer"},
	},
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Mortality Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	unavailable := jsonResponse("No report has been produced yet", errorResponseSchema)
	badTarget := jsonResponse("Blank jurisdiction or group override", errorResponseSchema)

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Mortality Platform API",
			"description": "COVID-19 mortality cohort statistics: summary, monthly trend and subgroup comparison",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Mortality Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/mortality/summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get cohort summary statistics",
					"description": "Center and spread of the death counts in the cohort. Statistics are null when the cohort is empty.",
					"parameters":  targetParameters,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", summaryResponseSchema),
						"400": badTarget,
						"503": unavailable,
					},
				},
			},
			"/api/mortality/trend": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get monthly trend",
					"description": "Total deaths per calendar month in chronological order. Records without a month are left out.",
					"parameters":  targetParameters,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"run_id": map[string]string{"type": "string"},
								"target": targetSchema,
								"points": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"index":        map[string]string{"type": "integer"},
											"year":         map[string]string{"type": "integer"},
											"month":        map[string]string{"type": "integer"},
											"period":       map[string]string{"type": "string", "example": "2020-04"},
											"total_deaths": map[string]string{"type": "number"},
										},
									},
								},
							},
						}),
						"400": badTarget,
						"503": unavailable,
					},
				},
			},
			"/api/mortality/subgroups": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get per-subgroup statistics",
					"description": "One summary per subgroup of the cohort, in first-appearance order",
					"parameters":  targetParameters,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"run_id": map[string]string{"type": "string"},
								"target": targetSchema,
								"subgroups": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"subgroup": map[string]string{"type": "string"},
											"summary":  summarySchema,
										},
									},
								},
							},
						}),
						"400": badTarget,
						"503": unavailable,
					},
				},
			},
			"/api/mortality/cohort": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get cohort records",
					"description": "The normalized records the statistics are computed over, paginated",
					"parameters": append([]map[string]interface{}{
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default: 1)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Records per page (default: 100)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 100},
						},
					}, targetParameters...),
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"data": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"jurisdiction": map[string]string{"type": "string"},
											"group":        map[string]string{"type": "string"},
											"subgroup":     map[string]string{"type": "string"},
											"year":         map[string]string{"type": "integer"},
											"month":        map[string]interface{}{"type": "integer", "nullable": true},
											"death_count":  map[string]string{"type": "number"},
										},
									},
								},
								"total":       map[string]string{"type": "integer"},
								"page":        map[string]string{"type": "integer"},
								"limit":       map[string]string{"type": "integer"},
								"total_pages": map[string]string{"type": "integer"},
							},
						}),
						"400": badTarget,
						"503": unavailable,
					},
				},
			},
			"/api/mortality/refresh": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Re-run the pipeline",
					"description": "Reload the configured source and replace the latest report",
					"responses": map[string]interface{}{
						"200": jsonResponse("Pipeline completed", summaryResponseSchema),
						"422": jsonResponse("Source is missing required columns", errorResponseSchema),
						"500": jsonResponse("Source could not be read", errorResponseSchema),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Healthy once a report is available",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"status": map[string]string{"type": "string"},
							},
						}),
						"503": jsonResponse("No report yet", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"status": map[string]string{"type": "string"},
								"reason": map[string]string{"type": "string"},
							},
						}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
