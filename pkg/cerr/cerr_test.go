package cerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/pkg/storage"
)

func TestWrapStorageErrors(t *testing.T) {
	missing := fmt.Errorf("tasks/T1.yaml: %w", storage.ErrNotFound)
	escaped := fmt.Errorf("../x: %w", storage.ErrInvalidPath)
	disk := errors.New("disk full")

	assert.Equal(t, NotFound, CodeOf(WrapStorageReadError("task", missing)))
	assert.Equal(t, NotFound, CodeOf(WrapStorageDeleteError("task", missing)))
	assert.Equal(t, Internal, CodeOf(WrapStorageWriteError("task", missing)))
	assert.Equal(t, InvalidArgument, CodeOf(WrapStorageReadError("attachment", escaped)))
	assert.Equal(t, InvalidArgument, CodeOf(WrapStorageWriteError("attachment", escaped)))

	err := WrapStorageWriteError("task", disk)
	assert.Equal(t, Internal, CodeOf(err))
	assert.ErrorIs(t, err, disk)
	assert.Equal(t, "task not found", errorMsg(t, WrapStorageReadError("task", missing)))
}

func errorMsg(t *testing.T, err error) string {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e))
	return e.Msg
}

func TestCodeFromHTTPStatus(t *testing.T) {
	assert.Equal(t, OK, CodeFromHTTPStatus(http.StatusCreated))
	assert.Equal(t, InvalidArgument, CodeFromHTTPStatus(http.StatusBadRequest))
	assert.Equal(t, Unauthenticated, CodeFromHTTPStatus(http.StatusUnauthorized))
	assert.Equal(t, NotFound, CodeFromHTTPStatus(http.StatusNotFound))
	assert.Equal(t, Unavailable, CodeFromHTTPStatus(http.StatusBadGateway))
	assert.Equal(t, Internal, CodeFromHTTPStatus(http.StatusInternalServerError))
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPCode())
}

func TestConvertErrorMiddleware(t *testing.T) {
	h := NewConvertErrorChiMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetJSONError(r.Context(), WrapStorageReadError("task", storage.ErrNotFound))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body["code"])
	assert.Equal(t, "task not found", body["message"])
}

func TestConvertErrorMiddleware_Violations(t *testing.T) {
	h := NewConvertErrorChiMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetJSONError(r.Context(), NewError(InvalidArgument, "template is invalid", nil).
			AddViolation("template.NEW_PROJECT", "المتغير {foo} غير معروف"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/templates/NEW_PROJECT", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Code    string           `json:"code"`
		Details []map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_argument", body.Code)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "template.NEW_PROJECT", body.Details[0]["ruleId"])
	assert.Equal(t, "المتغير {foo} غير معروف", body.Details[0]["message"])
}
