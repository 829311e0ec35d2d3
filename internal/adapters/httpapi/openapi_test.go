package httpapi

import (
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"invoicedesk/docs/schema/openapi"
)

var ginParam = regexp.MustCompile(`:([A-Za-z]+)`)

func TestEveryRouteIsDocumented(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(openapi.APISpec, &doc); err != nil {
		t.Fatalf("parse openapi: %v", err)
	}
	engine, ok := newHarness(t).handler.(*gin.Engine)
	if !ok {
		t.Fatalf("handler is not a gin engine")
	}
	for _, route := range engine.Routes() {
		path := ginParam.ReplaceAllString(route.Path, "{$1}")
		ops, ok := doc.Paths[path]
		if !ok {
			t.Fatalf("route %s %s missing from openapi paths", route.Method, path)
		}
		if _, ok := ops[strings.ToLower(route.Method)]; !ok {
			t.Fatalf("route %s %s missing its operation", route.Method, path)
		}
	}
}

func TestServesOpenAPIDocument(t *testing.T) {
	rec := newHarness(t).do(http.MethodGet, "/api/v1/openapi.yaml", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.HasPrefix(rec.Body.String(), "openapi: 3.0.3") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
