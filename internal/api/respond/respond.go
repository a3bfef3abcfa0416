// Package respond holds the JSON envelope and binary responders shared by
// all handlers.
package respond

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Success wraps a successful result.
type Success struct {
	Result interface{} `json:"result"`
}

// Error carries an error message to the client.
type Error struct {
	Message string `json:"message"`
}

// OK writes a 200 response with result in the success envelope.
func OK(c *ginext.Context, result interface{}) {
	c.JSON(http.StatusOK, Success{Result: result})
}

// Created writes a 201 response with result in the success envelope.
func Created(c *ginext.Context, result interface{}) {
	c.JSON(http.StatusCreated, Success{Result: result})
}

// Fail writes an error response with the given status.
func Fail(c *ginext.Context, status int, err error) {
	c.JSON(status, Error{Message: err.Error()})
}

// Image writes raw image bytes with the given content type and cache
// directive.
func Image(c *ginext.Context, status int, contentType, cacheControl string, data []byte) {
	c.Header("Cache-Control", cacheControl)
	c.Data(status, contentType, data)
}
