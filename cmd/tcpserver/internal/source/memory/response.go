package memory

import (
	"context"
)

// ResponseSource serves a response held in memory (flag, env or INI value).
type ResponseSource struct {
	response string
}

func NewResponseSource(response string) *ResponseSource {
	return &ResponseSource{response: response}
}

// Response implements core.ResponseSource. An empty value is returned as-is
// so the server can apply its default.
func (s *ResponseSource) Response(ctx context.Context) (string, error) {
	return s.response, nil
}
