// Package openapi describes the draft document sent on every save as an
// OpenAPI request body.
package openapi

// Document describes the draft persistence API: create on first save, save
// by resource id and publish by status. body is the draft sent on saves.
func Document(body any, opts ...Option) (map[string]any, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	schema, err := Schema(body)
	if err != nil {
		return nil, err
	}
	return document(cfg, schema)
}
