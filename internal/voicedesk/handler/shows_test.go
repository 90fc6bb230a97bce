package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/kart-io/voicedesk/pkg/utils/errors"
)

func TestShowsListDegradesToEmpty(t *testing.T) {
	env := newTestEnv(t)

	// 测试用 Redis 没有 RediSearch 模块
	w, body := env.do(t, http.MethodGet, "/api/shows?q=hamilton", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["items"])
}

func TestShowsSave(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/shows", map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "hamilton", "title": "Hamilton", "theatre": "Richard Rodgers", "price": 199, "date": 1767225600000},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), body["saved"])
	assert.Equal(t, "Hamilton", env.mr.HGet("show:hamilton", "title"))

	w, body = env.do(t, http.MethodPost, "/api/shows", map[string]interface{}{
		"items": []map[string]interface{}{{"id": "no-title"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errs.ErrInvalidBody.Code, errCode(body))

	w, _ = env.do(t, http.MethodPost, "/api/shows", map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
