package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaError(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		err := NewMissingColumnError("ledger", "timestamp_at")
		assert.Contains(t, err.Error(), `table "ledger"`)
		assert.Contains(t, err.Error(), `"timestamp_at"`)
		assert.Nil(t, err.Unwrap())
	})

	t.Run("malformed value keeps cause", func(t *testing.T) {
		cause := fmt.Errorf("bad digit")
		err := NewMalformedValueError("rates", "average_price_per_usd", 4, "abc", cause)
		assert.Contains(t, err.Error(), "row 4")
		assert.Contains(t, err.Error(), "abc")
		assert.True(t, stderrors.Is(err, cause))
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("load: %w", NewMissingColumnError("accounts", "user_id"))
		var schemaErr *SchemaError
		require.True(t, stderrors.As(wrapped, &schemaErr))
		assert.Equal(t, "accounts", schemaErr.Table)
	})
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("write facts", cause).WithContext("path", "/tmp/x.csv")

	assert.Equal(t, "[STORAGE] write facts: disk full", err.Error())
	assert.Equal(t, "/tmp/x.csv", err.Context["path"])
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "[NOT_FOUND] user u9 not found", NewNotFoundError("user u9").Error())
}

func TestErrorHandler_HandleError(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"api validation", ErrValidation("month", "bad month"), http.StatusBadRequest, TypeValidation},
		{"schema", NewMissingColumnError("trades", "id"), http.StatusUnprocessableEntity, TypeSchema},
		{"not ready", ErrFactsNotReady, http.StatusServiceUnavailable, TypeDataNotReady},
		{"app not found", NewNotFoundError("user"), http.StatusNotFound, TypeNotFound},
		{"app validation", NewAppValidationError("window is empty"), http.StatusBadRequest, TypeValidation},
		{"export", NewExportError("failed to save workbook", fmt.Errorf("disk full")), http.StatusInternalServerError, TypeInternal},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/views/pairs", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/views/pairs", body["instance"])
		})
	}
}
