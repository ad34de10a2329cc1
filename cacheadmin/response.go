/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cacheadmin

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/acronis/go-cachekit/log"
)

const contentTypeAppJSON = "application/json"

// Error codes of the admin API.
const (
	ErrCodeBadRequest     = "badRequest"
	ErrCodeNotFound       = "notFound"
	ErrCodeInternalError  = "internalError"
	ErrCodeUnknownSetting = "unknownSetting"
	ErrCodeInvalidSetting = "invalidSetting"
)

// Error is an error returned by the admin API.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponseData is a body of unsuccessful responses.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

func respondJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(respData); err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", contentTypeAppJSON)
	rw.WriteHeader(statusCode)
	if _, err := rw.Write(buf.Bytes()); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func respondError(rw http.ResponseWriter, statusCode int, code, message string, logger log.FieldLogger) {
	logger.Warn("error in response", log.String("error_code", code), log.String("error_message", message))
	respondJSON(rw, statusCode, ErrorResponseData{&Error{Code: code, Message: message}}, logger)
}
