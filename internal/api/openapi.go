package api

// openAPIDocument describes /estimate and /artifacts for client generators.
func openAPIDocument(serverURL string, counties []string) map[string]any {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": "number"}
	nullableStr := map[string]any{"type": "string", "nullable": true}
	errBody := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{
					"type":       "object",
					"properties": map[string]any{"error": str},
				},
			},
		},
	}

	doc := map[string]any{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":       "Tejas Estimator API",
			"version":     "1.0.0",
			"description": "Retrieve parcel estimate details based on address and county.",
		},
		"paths": map[string]any{
			"/estimate": map[string]any{
				"get": map[string]any{
					"operationId": "get_survey_estimate",
					"summary":     "Get survey estimate",
					"parameters": []any{
						map[string]any{
							"name": "address", "in": "query", "required": false, "schema": str,
							"description": "The full address to search. Required unless quickrefid is set.",
						},
						map[string]any{
							"name": "quickrefid", "in": "query", "required": false, "schema": str,
							"description": "The county's quick reference identifier for an exact lookup.",
						},
						map[string]any{
							"name": "county", "in": "query", "required": false,
							"schema":      map[string]any{"type": "string", "enum": counties},
							"description": "The county to search in.",
						},
						map[string]any{
							"name": "artifact", "in": "query", "required": false,
							"schema":      map[string]any{"type": "string", "enum": []string{"kml", "shapefile", "none"}},
							"description": "Vector file to generate for the parcel.",
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Successful response",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"jurisdiction":      str,
											"owner":             str,
											"address":           str,
											"legal_description": str,
											"subdivision":       nullableStr,
											"block":             nullableStr,
											"lot_reserve":       nullableStr,
											"deed":              str,
											"called_acreage":    str,
											"market_value":      str,
											"quickrefid":        str,
											"parcel_id":         str,
											"parcel_size_acres": num,
											"perimeter_ft":      num,
											"maps_link":         str,
											"match_tier":        str,
											"artifact_url":      str,
										},
									},
								},
							},
						},
						"400": errBody,
						"404": errBody,
						"502": errBody,
					},
				},
			},
			"/artifacts/{token}": map[string]any{
				"get": map[string]any{
					"operationId": "get_artifact",
					"summary":     "Download a generated vector file",
					"parameters": []any{
						map[string]any{"name": "token", "in": "path", "required": true, "schema": str},
					},
					"responses": map[string]any{
						"200": map[string]any{"description": "KML document or zipped shapefile"},
						"404": errBody,
					},
				},
			},
		},
	}
	if serverURL != "" {
		doc["servers"] = []any{map[string]any{"url": serverURL}}
	}
	return doc
}
