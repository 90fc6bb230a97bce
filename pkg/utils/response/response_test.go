package response

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/voicedesk/pkg/utils/errors"
	"github.com/kart-io/voicedesk/pkg/utils/json"
	"github.com/kart-io/voicedesk/pkg/utils/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Writer.Header().Set(HeaderRequestID, "req-1")
	fn(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestFailUsesErrnoStatus(t *testing.T) {
	w := record(func(c *gin.Context) { Fail(c, errors.ErrTenantNotFound) })

	assert.Equal(t, http.StatusNotFound, w.Code)
	r := decode(t, w)
	assert.Equal(t, errors.ErrTenantNotFound.Code, r.Code)
	assert.Equal(t, "req-1", r.RequestID)
	assert.NotZero(t, r.Timestamp)
}

func TestFailWithErrorUnwrapsErrno(t *testing.T) {
	w := record(func(c *gin.Context) {
		FailWithError(c, fmt.Errorf("reset: %w", errors.ErrInvalidResetMode))
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidResetMode.Code, decode(t, w).Code)

	w = record(func(c *gin.Context) { FailWithError(c, stderrors.New("boom")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFailWithValidationErrors(t *testing.T) {
	verr := &validator.ValidationErrors{Errors: []validator.FieldError{{Field: "tenantId", Tag: "required", Message: "tenantId is a required field"}}}
	w := record(func(c *gin.Context) { FailWithError(c, verr) })

	assert.Equal(t, http.StatusBadRequest, w.Code)
	r := decode(t, w)
	assert.Equal(t, errors.ErrInvalidBody.Code, r.Code)
	assert.Equal(t, "tenantId is a required field", r.Message)
}

func TestOK(t *testing.T) {
	w := record(func(c *gin.Context) { OK(c, gin.H{"status": "ok"}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode(t, w).Code)
}
