// Package response defines the JSON envelope used for error replies and
// for endpoints that have no fixed wire shape of their own.
package response

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/validator"
)

// HeaderRequestID carries the request id set by the request-id middleware.
const HeaderRequestID = "X-Request-ID"

// Response is the unified API envelope.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`

	httpCode int
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{Code: 0, Message: "success", Data: data, httpCode: http.StatusOK}
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{Code: e.Code, Message: e.MessageEN, httpCode: e.HTTPStatus()}
}

// HTTPStatus returns the HTTP status code for this response.
func (r *Response) HTTPStatus() int {
	if r.httpCode != 0 {
		return r.httpCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func send(c *gin.Context, r *Response) {
	r.RequestID = c.Writer.Header().Get(HeaderRequestID)
	r.Timestamp = time.Now().UnixMilli()
	c.JSON(r.HTTPStatus(), r)
}

// OK writes a success envelope.
func OK(c *gin.Context, data interface{}) {
	send(c, Success(data))
}

// Fail writes an error envelope for e.
func Fail(c *gin.Context, e *errors.Errno) {
	send(c, Err(e))
}

// FailWithError writes err as an error envelope. Validation errors become
// ErrInvalidBody with per-field details, any other non-Errno error becomes
// ErrInternal.
func FailWithError(c *gin.Context, err error) {
	var verr *validator.ValidationErrors
	if stderrors.As(err, &verr) {
		r := Err(errors.ErrInvalidBody.WithMessage(verr.First()))
		r.Data = verr.ToMap()
		send(c, r)
		return
	}
	send(c, Err(errors.FromError(err)))
}

// AbortWithError writes the error envelope and aborts the handler chain.
func AbortWithError(c *gin.Context, err error) {
	FailWithError(c, err)
	c.Abort()
}
