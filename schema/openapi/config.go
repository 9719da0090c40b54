package openapi

import "strings"

// Config describes the draft persistence API advertised by Document.
type Config struct {
	OpenAPIVersion string
	Title          string
	Version        string
	Description    string
	// Resource is the collection segment, as in /{Resource}/{resource_id}.
	Resource    string
	ContentType string
	// Statuses lists the values accepted by the publish operation. An empty
	// list leaves the operation out.
	Statuses []string
}

// DefaultConfig returns the settings Document starts from.
func DefaultConfig() Config {
	return Config{
		OpenAPIVersion: "3.0.3",
		Title:          "Draft Sync",
		Version:        "1.0.0",
		Resource:       "drafts",
		ContentType:    "application/json",
		Statuses:       []string{"draft", "published", "archived"},
	}
}

// Option adjusts a Config. Empty values keep the default.
type Option func(*Config)

// WithOpenAPIVersion overrides the OpenAPI version string.
func WithOpenAPIVersion(version string) Option {
	return func(cfg *Config) {
		setIfNotBlank(&cfg.OpenAPIVersion, version)
	}
}

// WithInfo sets the document title and version.
func WithInfo(title, version string) Option {
	return func(cfg *Config) {
		setIfNotBlank(&cfg.Title, title)
		setIfNotBlank(&cfg.Version, version)
	}
}

// WithDescription sets info.description.
func WithDescription(description string) Option {
	return func(cfg *Config) {
		cfg.Description = strings.TrimSpace(description)
	}
}

// WithResource renames the collection segment, e.g. "courses".
func WithResource(resource string) Option {
	return func(cfg *Config) {
		setIfNotBlank(&cfg.Resource, strings.Trim(resource, "/ "))
	}
}

// WithContentType sets the media type of request bodies.
func WithContentType(contentType string) Option {
	return func(cfg *Config) {
		setIfNotBlank(&cfg.ContentType, contentType)
	}
}

// WithStatuses replaces the publish status enum. Passing none drops the
// publish operation.
func WithStatuses(statuses ...string) Option {
	return func(cfg *Config) {
		cfg.Statuses = append([]string(nil), statuses...)
	}
}

func setIfNotBlank(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
