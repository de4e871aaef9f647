package memory

import (
	"context"
	"testing"
)

func TestResponseSource(t *testing.T) {
	for _, want := range []string{"Acknowledged", ""} {
		got, err := NewResponseSource(want).Response(context.Background())
		if err != nil {
			t.Fatalf("Response: %v", err)
		}
		if got != want {
			t.Errorf("Response() = %q, want %q", got, want)
		}
	}
}
