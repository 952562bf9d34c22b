package api

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed swagger.yaml
var swaggerYAML []byte

var (
	swaggerJSONOnce sync.Once
	swaggerJSON     []byte
	swaggerJSONErr  error
)

// SwaggerSpec returns the embedded OpenAPI document as YAML.
func SwaggerSpec() []byte {
	return swaggerYAML
}

// SwaggerSpecJSON converts the embedded document to JSON once and caches the result.
func SwaggerSpecJSON() ([]byte, error) {
	swaggerJSONOnce.Do(func() {
		var spec map[string]interface{}
		if swaggerJSONErr = yaml.Unmarshal(swaggerYAML, &spec); swaggerJSONErr != nil {
			return
		}
		swaggerJSON, swaggerJSONErr = json.Marshal(spec)
	})
	return swaggerJSON, swaggerJSONErr
}

// SwaggerHandler serves the OpenAPI document, as JSON when the client asks for it.
func SwaggerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept"), "application/json") {
			body, err := SwaggerSpecJSON()
			if err != nil {
				Error(w, http.StatusInternalServerError, "failed to render API document")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
			return
		}

		w.Header().Set("Content-Type", "application/yaml")
		w.Write(swaggerYAML)
	}
}
