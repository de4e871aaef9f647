package kubernetes

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func configMap() *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "tcpserver", Namespace: "apps"},
		Data:       map[string]string{"response": "Acknowledged", "greeting": "hello"},
		BinaryData: map[string][]byte{"raw": []byte("bytes")},
	}
}

func TestConfigMapResponseSource(t *testing.T) {
	clientset := fake.NewSimpleClientset(configMap())

	tests := []struct {
		key  string
		want string
	}{
		{"", "Acknowledged"},
		{"greeting", "hello"},
		{"raw", "bytes"},
	}
	for _, tt := range tests {
		got, err := NewConfigMapResponseSource(clientset, "apps", "tcpserver", tt.key).Response(context.Background())
		if err != nil {
			t.Fatalf("key %q: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("key %q: Response() = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestConfigMapResponseSourceErrors(t *testing.T) {
	clientset := fake.NewSimpleClientset(configMap())

	if _, err := NewConfigMapResponseSource(clientset, "apps", "tcpserver", "missing").Response(context.Background()); err == nil {
		t.Error("expected error for missing key")
	}
	if _, err := NewConfigMapResponseSource(clientset, "apps", "other", "").Response(context.Background()); err == nil {
		t.Error("expected error for missing configmap")
	}
	if _, err := NewConfigMapResponseSource(clientset, "default", "tcpserver", "").Response(context.Background()); err == nil {
		t.Error("expected error for wrong namespace")
	}
}
