package webutil

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler AppHandler) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	MakeHandler(handler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]string
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body["error"]
}

func TestMakeHandlerErrorResponses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"bad request", ErrBadRequest("title: this field is required"), http.StatusBadRequest, "title: this field is required"},
		{"bad request default", ErrBadRequest(""), http.StatusBadRequest, msgBadRequest},
		{"not found", ErrNotFound("Book not found"), http.StatusNotFound, "Book not found"},
		{"not found wrap", ErrNotFoundWrap("", sql.ErrNoRows), http.StatusNotFound, msgNotFound},
		{"bare no rows", fmt.Errorf("book x: %w", sql.ErrNoRows), http.StatusNotFound, msgNotFound},
		{"internal wrap", ErrInternalServerWrap("outline could not be parsed", errors.New("bad json")), http.StatusInternalServerError, msgInternalServer},
		{"unhandled", errors.New("openai: 503"), http.StatusInternalServerError, msgInternalServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg := serve(t, func(http.ResponseWriter, *http.Request) error { return tc.err })
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestHTTPErrorKeepsCause(t *testing.T) {
	err := ErrNotFoundWrap("Book not found", fmt.Errorf("book x: %w", sql.ErrNoRows))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, "Book not found", err.Error())

	internal := ErrInternalServerWrap("outline could not be parsed", errors.New("bad json"))
	assert.Equal(t, msgInternalServer, internal.Error())
	assert.ErrorContains(t, errors.Unwrap(internal), "outline could not be parsed: bad json")
}

func TestMakeHandlerLeavesWrittenResponse(t *testing.T) {
	code, msg := serve(t, func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return errors.New("late failure")
	})
	assert.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, msg)
}
