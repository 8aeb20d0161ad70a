package httpx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-auth/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-auth/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		status     int
		wantDetail bool
	}{
		{err: shared.ErrUnauthorized, status: http.StatusUnauthorized},
		{err: fmt.Errorf("parse: %w", shared.ErrInvalidToken), status: http.StatusUnauthorized},
		{err: shared.ErrForbidden, status: http.StatusForbidden},
		{err: fmt.Errorf("username taken: %w", shared.ErrConflict), status: http.StatusConflict, wantDetail: true},
		{err: fmt.Errorf("email: %w", shared.ErrBadRequest), status: http.StatusBadRequest, wantDetail: true},
		{err: shared.ErrNotFound, status: http.StatusNotFound, wantDetail: true},
		{err: errors.New("connection reset"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		httpx.RespondError(rec, tc.err)

		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		var body httpx.ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, tc.status, body.Status)
		require.Equal(t, "about:blank", body.Type)
		if tc.wantDetail {
			require.NotEmpty(t, body.Detail)
		} else {
			require.Empty(t, body.Detail)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Token string `json:"token"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"abc"}`))
	require.NoError(t, httpx.DecodeJSON(req, &target))
	require.Equal(t, "abc", target.Token)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.ErrorIs(t, httpx.DecodeJSON(req, &target), io.EOF)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"a"}{"token":"b"}`))
	require.Error(t, httpx.DecodeJSON(req, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":`+strings.Repeat(" ", httpx.MaxBodyBytes)+`"x"}`))
	require.Error(t, httpx.DecodeJSON(req, &target))
}
