// Package openapi embeds the OpenAPI description of the local HTTP API.
package openapi

import _ "embed"

// APISpec is the OpenAPI 3 document for the routes served by invoicedesk.
//
//go:embed invoicedesk-api.yaml
var APISpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), APISpec...)
}
