package app

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pkg/errors"
)

const OpenAPIEndpoint = "/openapi.json"

func errorSchema() *openapi3.Schema {
	body := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("statusCode", openapi3.NewIntegerSchema()).
		WithProperty("details", openapi3.NewStringSchema())
	return openapi3.NewObjectSchema().WithProperty("error", body)
}

func resultSchema(result *openapi3.Schema) *openapi3.Schema {
	return openapi3.NewObjectSchema().WithProperty("result", result)
}

func checkOperation(summary string) *openapi3.Operation {
	check := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("checks", openapi3.NewIntegerSchema())

	return &openapi3.Operation{
		Summary: summary,
		Responses: openapi3.Responses{
			"200": &openapi3.ResponseRef{Value: openapi3.NewResponse().
				WithDescription("all checks passed").
				WithJSONSchema(resultSchema(check))},
			"503": &openapi3.ResponseRef{Value: openapi3.NewResponse().
				WithDescription("first failed check").
				WithJSONSchema(errorSchema())},
		},
	}
}

// OpenAPI describes the stats endpoints served by the manager.
func (m *Manager) OpenAPI() *openapi3.T {
	status := openapi3.NewObjectSchema().WithAnyAdditionalProperties()

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       m.meta.Name,
			Description: m.meta.Description,
			Version:     m.meta.Version,
		},
		Paths: openapi3.Paths{
			AliveEndpoint: &openapi3.PathItem{Get: checkOperation("liveness checks")},
			ReadyEndpoint: &openapi3.PathItem{Get: checkOperation("readiness checks")},
			StatusEndpoint: &openapi3.PathItem{Get: &openapi3.Operation{
				Summary: "state of every enity keyed by full name",
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Value: openapi3.NewResponse().
						WithDescription("enity reports").
						WithJSONSchema(resultSchema(status))},
				},
			}},
			MetricsEndpoint: &openapi3.PathItem{Get: &openapi3.Operation{
				Summary: "prometheus metrics",
				Responses: openapi3.Responses{
					"200": &openapi3.ResponseRef{Value: openapi3.NewResponse().
						WithDescription("text exposition format").
						WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"}))},
				},
			}},
		},
	}
}

func (m *Manager) openAPIHandler(ctx context.Context) (http.Handler, error) {
	doc := m.OpenAPI()
	if err := doc.Validate(ctx); err != nil {
		return nil, errors.Wrap(err, "validate openapi document")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal openapi document")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(data); err != nil {
			m.logger.Zerolog().Err(err).Msg("write openapi document")
		}
	}), nil
}
