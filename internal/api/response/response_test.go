package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/scenegen/internal/api/response"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	response.JSON(w, map[string]string{"status": "completed"})

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "completed", data["status"])
}

func TestAccepted(t *testing.T) {
	w := httptest.NewRecorder()
	response.Accepted(w, map[string]string{"run_id": "r1"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "r1", data["run_id"])
}

func TestCollection(t *testing.T) {
	w := httptest.NewRecorder()
	rows := []map[string]string{{"outcome": "processed"}, {"outcome": "skipped"}}

	response.Collection(w, rows, response.PaginationMeta{Page: 1, Limit: 2, Total: 5, HasNext: true})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["data"].([]any), 2)

	m := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), m["page"])
	assert.Equal(t, float64(2), m["limit"])
	assert.Equal(t, float64(5), m["total"])
	assert.Equal(t, true, m["has_next"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusServiceUnavailable, response.CodeDegraded, "One or more services degraded",
		map[string]string{"database": "degraded"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	errObj := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
	assert.Equal(t, "One or more services degraded", errObj["message"])
	assert.NotNil(t, errObj["details"])
}

func TestInternal_OmitsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.Internal(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errObj := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
	_, hasDetails := errObj["details"]
	assert.False(t, hasDetails)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                string
		total, page, limit  int
		wantStart, wantEnd  int
		wantPage, wantLimit int
		wantNext            bool
	}{
		{"first page", 7, 1, 3, 0, 3, 1, 3, true},
		{"last partial page", 7, 3, 3, 6, 7, 3, 3, false},
		{"past the end", 7, 9, 3, 7, 7, 9, 3, false},
		{"page below one", 7, 0, 3, 0, 3, 1, 3, true},
		{"limit above max", 7, 1, 900, 0, 5, 1, 5, true},
		{"empty", 0, 1, 3, 0, 0, 1, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, meta := response.Paginate(tt.total, tt.page, tt.limit, 5)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantPage, meta.Page)
			assert.Equal(t, tt.wantLimit, meta.Limit)
			assert.Equal(t, tt.total, meta.Total)
			assert.Equal(t, tt.wantNext, meta.HasNext)
		})
	}
}
