package models

// Envelope is the {code, data} wrapper present on every device response body
type Envelope[T any] struct {
	Code int `json:"code"`
	Data T   `json:"data"`
}

// ListPayload is the data of a GET /input response
type ListPayload struct {
	Inputs []Record `json:"inputs"`
	Count  int      `json:"count"` // Redundant length of Inputs, set by the device
}

// MessageResult is the data of a DELETE /input/{id} response
type MessageResult struct {
	Message string `json:"message"`
}

// ErrorResponse is the body the device sends with a non-success status
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewEnvelope wraps data in a response envelope
func NewEnvelope[T any](code int, data T) *Envelope[T] {
	return &Envelope[T]{
		Code: code,
		Data: data,
	}
}

// CountMatches reports whether the device's count agrees with the list length
func (p *ListPayload) CountMatches() bool {
	return p.Count == len(p.Inputs)
}

// IsError checks if the error body carries a message
func (e *ErrorResponse) IsError() bool {
	return e != nil && e.Error != ""
}

// GetError returns the error message or an empty string
func (e *ErrorResponse) GetError() string {
	if e == nil {
		return ""
	}
	return e.Error
}
