package kubernetes

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// DefaultKey is the ConfigMap key read when none is configured.
const DefaultKey = "response"

// ConfigMapResponseSource reads the response from a key of a ConfigMap.
type ConfigMapResponseSource struct {
	clientset kubernetes.Interface
	namespace string
	name      string
	key       string
}

func NewConfigMapResponseSource(clientset kubernetes.Interface, namespace, name, key string) *ConfigMapResponseSource {
	if key == "" {
		key = DefaultKey
	}
	return &ConfigMapResponseSource{
		clientset: clientset,
		namespace: namespace,
		name:      name,
		key:       key,
	}
}

func (s *ConfigMapResponseSource) Response(ctx context.Context) (string, error) {
	cm, err := s.clientset.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get configmap %s/%s: %w", s.namespace, s.name, err)
	}

	if value, ok := cm.Data[s.key]; ok {
		return value, nil
	}
	if value, ok := cm.BinaryData[s.key]; ok {
		return string(value), nil
	}

	return "", fmt.Errorf("configmap %s/%s missing key '%s'", s.namespace, s.name, s.key)
}
