// Package openapi seeds form schemas from OpenAPI 3 documents. A
// request-body object schema maps onto the builder's field palette so
// an API operation can bootstrap a form instead of starting blank.
package openapi
