package respond

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Status is the minimal acknowledgement body the LINE platform expects.
type Status struct {
	Status string `json:"status"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Success sends the 200 OK acknowledgement for an accepted delivery.
func Success(c *ginext.Context) {
	JSON(c, http.StatusOK, Status{Status: "success"})
}

// Fail sends an error JSON response with the specified HTTP status code.
// The error message is wrapped in an Error struct.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Error{Message: err.Error()})
}
