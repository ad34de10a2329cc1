/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

type errorRespData struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RequireJSONInRecorder asserts that the recorded response has the status code and a JSON body,
// and decodes the body into dst.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, dst interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, resp.Code, "unexpected status code, body: %s", resp.Body.String())
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// RequireErrorInRecorder asserts that the recorded response contains
// the {"error": {"code": ..., "message": ...}} envelope with the given code.
func RequireErrorInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var data errorRespData
	RequireJSONInRecorder(t, resp, wantHTTPCode, &data)
	require.NotNil(t, data.Error, "error envelope is missing")
	require.Equal(t, wantErrCode, data.Error.Code)
	require.NotEmpty(t, data.Error.Message)
}
