package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/my-life-db/apierrors"
)

// -----------------------------------------------------------------------------
// Success Response Types
// -----------------------------------------------------------------------------

// DataResponse wraps a single resource or object response.
// Use for: GET /resource/:id, PATCH /resource/:id.
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// ListResponse wraps a collection of resources with offset pagination.
type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

// RespondData sends a successful response with a single data object.
func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondList sends a successful response with a list of items plus the
// filtered (pre-pagination) total count.
func RespondList[T any](c *gin.Context, data []T, total int64) {
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, ListResponse[T]{Data: data, Total: total})
}

// RespondNoContent sends a 204 No Content response.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Error Response
// -----------------------------------------------------------------------------

// errorBody is the flat JSON error envelope shared by every failing
// response, whatever produced it.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// RespondError normalizes err to a *apierrors.CodedError via errors.As and
// writes the flat envelope with the matching HTTP status. Anything that
// doesn't carry a CodedError falls back to HISTORY_READ_FAILED/500 — the API
// boundary is where core errors get normalized, not where they're born.
func RespondError(c *gin.Context, err error) {
	var coded *apierrors.CodedError
	if !errors.As(err, &coded) {
		coded = apierrors.HistoryReadFailed(err)
	}

	c.JSON(coded.Status, errorBody{
		Code:    coded.Code,
		Message: coded.Message,
		Status:  coded.Status,
	})
}

// RespondBadRequest sends a 400 for a malformed request that never reached
// the core (missing/invalid path or query parameters).
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
	})
}
