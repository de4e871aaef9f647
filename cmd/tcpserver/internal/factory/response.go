package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/config"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/core"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/source/filesystem"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/source/kubernetes"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/source/memory"

	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ResponseFactory creates response sources based on configuration
type ResponseFactory struct {
	cfg *config.Config

	// clientset builds the Kubernetes client; replaced in tests.
	clientset func() (k8s.Interface, error)
}

// NewResponseFactory creates a new response factory
func NewResponseFactory(cfg *config.Config) *ResponseFactory {
	f := &ResponseFactory{cfg: cfg}
	f.clientset = f.buildClientset
	return f
}

// Create creates a response source based on configuration
func (f *ResponseFactory) Create(ctx context.Context) (core.ResponseSource, error) {
	switch f.cfg.ResponseMode {
	case config.ResponseStatic:
		logger.Info("Creating static response source")
		return memory.NewResponseSource(f.cfg.Response), nil
	case config.ResponseFile:
		logger.Info("Creating file response source", "path", f.cfg.ResponseFile)
		return filesystem.NewFileResponseSource(f.cfg.ResponseFile), nil
	case config.ResponseKubernetes:
		return f.createKubernetesSource()
	default:
		return nil, fmt.Errorf("unknown response mode: %s", f.cfg.ResponseMode)
	}
}

// Resolve creates the configured source and reads the response once.
func (f *ResponseFactory) Resolve(ctx context.Context) (string, error) {
	source, err := f.Create(ctx)
	if err != nil {
		return "", err
	}
	response, err := source.Response(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve response: %w", err)
	}
	return response, nil
}

func (f *ResponseFactory) createKubernetesSource() (core.ResponseSource, error) {
	logger.Info("Creating Kubernetes response source",
		"namespace", f.cfg.Namespace,
		"configmap", f.cfg.ResponseConfigMap,
		"key", f.cfg.ResponseConfigMapKey)

	clientset, err := f.clientset()
	if err != nil {
		return nil, err
	}

	return kubernetes.NewConfigMapResponseSource(clientset,
		f.cfg.Namespace, f.cfg.ResponseConfigMap, f.cfg.ResponseConfigMapKey), nil
}

func (f *ResponseFactory) buildClientset() (k8s.Interface, error) {
	logger.Info("Building Kubernetes client",
		"runtime", f.cfg.Runtime,
		"kubeconfig", f.cfg.KubeConfigPath,
		"context", f.cfg.KubeContext)

	kubeconfig := f.cfg.KubeConfigPath

	// For non-Kubernetes runtime, kubeconfig is required
	if f.cfg.Runtime != config.RuntimeKubernetes && kubeconfig == "" {
		if home := os.Getenv("HOME"); home != "" {
			kubeconfig = home + "/.kube/config"
		}
	}

	configOverrides := &clientcmd.ConfigOverrides{}
	if f.cfg.KubeContext != "" {
		configOverrides.CurrentContext = f.cfg.KubeContext
		logger.Info("Using specific Kubernetes context", "context", f.cfg.KubeContext)
	}

	var restConfig *rest.Config
	var err error

	// Try kubeconfig first (for VM/Container runtime or explicit config)
	if kubeconfig != "" {
		restConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
			configOverrides,
		).ClientConfig()

		if err != nil {
			logger.Warn("Failed to load kubeconfig, will try in-cluster config", "error", err)
		}
	}

	// Fallback to in-cluster config (for Kubernetes runtime)
	if restConfig == nil {
		logger.Info("Attempting in-cluster Kubernetes configuration")
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config (tried kubeconfig and in-cluster): %w", err)
		}
	}

	clientset, err := k8s.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return clientset, nil
}
