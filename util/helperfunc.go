package util

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint replies with.
type APIResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Msg     string      `json:"msg"`
	Data    interface{} `json:"data"`
}

type APIErrorParams struct {
	Msg string
	Err error
}

type APISuccessParams struct {
	Msg  string
	Data interface{}
}

func respondError(c *gin.Context, status int, params APIErrorParams) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   params.Err.Error(),
		Msg:     params.Msg,
		Data:    map[string]interface{}{},
	})
}

// CallErrorNotFound replies 404 for a missing resource.
func CallErrorNotFound(c *gin.Context, params APIErrorParams) {
	respondError(c, http.StatusNotFound, params)
}

// CallUserError replies 400 for a request the client got wrong.
func CallUserError(c *gin.Context, params APIErrorParams) {
	respondError(c, http.StatusBadRequest, params)
}

// CallServerError replies 500 for a failure on our side.
func CallServerError(c *gin.Context, params APIErrorParams) {
	respondError(c, http.StatusInternalServerError, params)
}

// CallUserNotAuthorized replies 401 for missing or rejected credentials.
func CallUserNotAuthorized(c *gin.Context, params APIErrorParams) {
	respondError(c, http.StatusUnauthorized, params)
}

// CallSuccessOK replies 200 with the given message and payload.
func CallSuccessOK(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Msg:     params.Msg,
		Data:    params.Data,
	})
}

// NormalizeName trims a name and collapses internal whitespace runs to
// single spaces so duplicate checks compare like with like.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
