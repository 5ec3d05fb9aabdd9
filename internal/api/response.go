//
//
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Envelope messages.
const (
	MessageSuccess        = "success"
	MessageMissingID      = "设备ID不能为空"
	MessageUnknownID      = "设备不存在"
	MessageInvalidLimit   = "查询条数必须为正整数"
	MessageHistoryOff     = "历史数据记录未启用"
	MessageUnavailable    = "服务暂不可用"
	MessageRouteNotFound  = "接口不存在"
	MessageMethodNotAllow = "请求方法不支持"
	MessageInternal       = "服务器内部错误"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Response represents the unified envelope format.
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// SuccessResponse creates a success response.
func SuccessResponse(data interface{}, now time.Time) *Response {
	return &Response{
		Code:      http.StatusOK,
		Message:   MessageSuccess,
		Data:      data,
		Timestamp: formatTimestamp(now),
	}
}

// ErrorResponse creates an error response. The envelope code mirrors the
// HTTP status.
func ErrorResponse(status int, message string, now time.Time) *Response {
	return &Response{
		Code:      status,
		Message:   message,
		Timestamp: formatTimestamp(now),
	}
}

// WriteSuccess writes a success response to the HTTP response writer.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	writeResponse(w, http.StatusOK, SuccessResponse(data, time.Now()))
}

// WriteError writes an error response to the HTTP response writer.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeResponse(w, status, ErrorResponse(status, message, time.Now()))
}

// WriteAPIError maps err to a status and envelope message and writes it.
func WriteAPIError(w http.ResponseWriter, err error) {
	status, message := ToAPIError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("api: %v", err)
	}
	WriteError(w, status, message)
}

// writeResponse writes a JSON response to the HTTP response writer.
func writeResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		// Fallback to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Internal server error: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
