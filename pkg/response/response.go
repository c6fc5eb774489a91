// Package response defines the JSON envelope every API endpoint returns.
// status_code mirrors the HTTP status so clients reading the body alone can
// branch on it.
package response

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope shared by success and error replies.
type Response struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success wraps data in a success envelope.
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     statusSuccess,
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error wraps an error message in an error envelope.
func Error(statusCode int, msg string) Response {
	return Response{
		Status:     statusError,
		StatusCode: statusCode,
		Error:      msg,
	}
}
