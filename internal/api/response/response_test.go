package response_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
)

// tracedRequest runs a request through the RequestID middleware so the
// context carries a request ID, the way every real handler sees it.
func tracedRequest(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)

	var traced *http.Request
	middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traced = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	return traced, httptest.NewRecorder()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	return problem
}

func TestJSON(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodGet, "/v1/metadata/enums")

	response.JSON(rec, req, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestJSON_NoRequestID(t *testing.T) {
	// No middleware, so the context has no request ID and no header is set.
	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/enums", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
}

func TestJSON_NilDataHasEmptyBody(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodGet, "/v1/ops/health")

	response.JSON(rec, req, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestNoContent(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodPost, "/v1/admin/feature-flags/invalidate")

	response.NoContent(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Zero(t, rec.Body.Len())
}

func TestBadRequest(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodPost, "/v1/routes:recommend")

	response.BadRequest(rec, req, "validation failed", []models.FieldError{
		{Field: "origin.lat", Message: "must be between -90 and 90"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.Equal(t, "/v1/routes:recommend", problem.Instance)
	assert.NotEmpty(t, problem.TraceID)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "origin.lat", problem.Errors[0].Field)
}

func TestNotFound(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodPost, "/v1/routes:recommend")

	response.NotFound(rec, req, "no walkable route between origin and destination")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
	assert.Equal(t, http.StatusNotFound, problem.Status)
}

func TestInternalError(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodGet, "/v1/admin/feature-flags/")

	response.InternalError(rec, req, "something went wrong")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeInternal, problem.Type)
}

func TestBadGateway(t *testing.T) {
	req, rec := tracedRequest(t, http.MethodPost, "/v1/routes:recommend")

	response.BadGateway(rec, req, "routing provider unavailable")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, models.ProblemTypeBadGateway, problem.Type)
	assert.Equal(t, "routing provider unavailable", problem.Detail)
}

func TestClientRequestIDFlowsThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	req.Header.Set("X-Request-Id", "req_client_supplied_0001")

	var traced *http.Request
	middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traced = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	response.JSON(rec, traced, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, "req_client_supplied_0001", rec.Header().Get("X-Request-Id"))
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))
}
