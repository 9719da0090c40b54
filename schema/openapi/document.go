package openapi

import (
	"fmt"
	"strings"
)

const resourceIDParam = "resource_id"

// document assembles the create, save and publish operations around the
// draft body schema.
func document(cfg Config, body map[string]any) (map[string]any, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	collection := "/" + cfg.Resource
	item := collection + "/{" + resourceIDParam + "}"

	paths := map[string]any{
		collection: map[string]any{
			"post": operation("createDraft", "Create a draft on its first save", nil,
				requestBody(cfg.ContentType, body),
				responses("201", "Draft created", "422", "Draft rejected")),
		},
		item: map[string]any{
			"put": operation("saveDraft", "Replace the stored draft", []any{resourceIDParameter()},
				requestBody(cfg.ContentType, body),
				responses("200", "Draft saved", "404", "Unknown draft", "422", "Draft rejected")),
		},
	}
	if len(cfg.Statuses) > 0 {
		paths[item+"/status"] = map[string]any{
			"post": operation("publishDraft", "Change the lifecycle status of a draft", []any{resourceIDParameter()},
				requestBody(cfg.ContentType, statusSchema(cfg.Statuses)),
				responses("200", "Status changed", "404", "Unknown draft", "422", "Publish requirements not met")),
		}
	}

	info := map[string]any{
		"title":   cfg.Title,
		"version": cfg.Version,
	}
	if cfg.Description != "" {
		info["description"] = cfg.Description
	}
	return map[string]any{
		"openapi": cfg.OpenAPIVersion,
		"info":    info,
		"paths":   paths,
	}, nil
}

func operation(id, summary string, params []any, body, responses map[string]any) map[string]any {
	op := map[string]any{
		"operationId": id,
		"summary":     summary,
		"requestBody": body,
		"responses":   responses,
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return op
}

func requestBody(contentType string, schema map[string]any) map[string]any {
	return map[string]any{
		"required": true,
		"content": map[string]any{
			contentType: map[string]any{"schema": schema},
		},
	}
}

// responses pairs status codes with descriptions: code, description, ...
func responses(pairs ...string) map[string]any {
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = map[string]any{"description": pairs[i+1]}
	}
	return out
}

func resourceIDParameter() map[string]any {
	return map[string]any{
		"name":     resourceIDParam,
		"in":       "path",
		"required": true,
		"schema":   map[string]any{"type": "string"},
	}
}

func statusSchema(statuses []string) map[string]any {
	enum := make([]any, len(statuses))
	for i, status := range statuses {
		enum[i] = status
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"status"},
		"properties": map[string]any{
			"status": map[string]any{"type": "string", "enum": enum},
		},
	}
}

func validateConfig(cfg Config) error {
	switch {
	case strings.TrimSpace(cfg.OpenAPIVersion) == "":
		return fmt.Errorf("openapi: version is required")
	case strings.TrimSpace(cfg.Title) == "":
		return fmt.Errorf("openapi: info.title is required")
	case strings.TrimSpace(cfg.Version) == "":
		return fmt.Errorf("openapi: info.version is required")
	case strings.Trim(cfg.Resource, "/ ") == "":
		return fmt.Errorf("openapi: resource is required")
	case strings.Contains(cfg.Resource, "/"):
		return fmt.Errorf("openapi: resource %q must be a single path segment", cfg.Resource)
	}
	return nil
}
