package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/cryptodash/internal/api"
)

// ErrMissingParameter is returned for requests lacking a required query parameter.
var ErrMissingParameter = errors.New("missing parameter")

// upstreamErrorBody is the 500 body for a failed upstream call. Status is 0
// when the upstream could not be reached.
type upstreamErrorBody struct {
	Error      string `json:"error"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Body       string `json:"body"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// upstreamFailure replies 500 with whatever the upstream said.
func upstreamFailure(c *gin.Context, msg string, err error) {
	body := upstreamErrorBody{Error: msg}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		body.Status = apiErr.StatusCode
		body.StatusText = http.StatusText(apiErr.StatusCode)
		body.Body = string(apiErr.Body)
	}

	c.Error(err)
	c.JSON(http.StatusInternalServerError, body)
}
