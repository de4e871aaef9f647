package factory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/config"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/core"
)

func baseConfig() *config.Config {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 9000
	cfg.ResponseMode = config.ResponseStatic
	cfg.Runtime = config.RuntimeVM
	return cfg
}

func TestResolveStatic(t *testing.T) {
	cfg := baseConfig()
	cfg.Response = "Hi"

	got, err := NewResponseFactory(cfg).Resolve(context.Background())
	if err != nil || got != "Hi" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}

func TestResolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resp.txt")
	if err := os.WriteFile(path, []byte("From file\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := baseConfig()
	cfg.ResponseMode = config.ResponseFile
	cfg.ResponseFile = path

	got, err := NewResponseFactory(cfg).Resolve(context.Background())
	if err != nil || got != "From file" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}

func TestResolveKubernetes(t *testing.T) {
	cfg := baseConfig()
	cfg.ResponseMode = config.ResponseKubernetes
	cfg.Namespace = "apps"
	cfg.ResponseConfigMap = "tcpserver"

	f := NewResponseFactory(cfg)
	f.clientset = func() (k8s.Interface, error) {
		return fake.NewSimpleClientset(&corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: "tcpserver", Namespace: "apps"},
			Data:       map[string]string{"response": "From cluster"},
		}), nil
	}

	got, err := f.Resolve(context.Background())
	if err != nil || got != "From cluster" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}

func TestResolveKubernetesClientError(t *testing.T) {
	cfg := baseConfig()
	cfg.ResponseMode = config.ResponseKubernetes
	cfg.ResponseConfigMap = "tcpserver"

	boom := errors.New("no cluster")
	f := NewResponseFactory(cfg)
	f.clientset = func() (k8s.Interface, error) { return nil, boom }

	if _, err := f.Resolve(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Resolve err = %v, want %v", err, boom)
	}
}

func TestResolveUnknownMode(t *testing.T) {
	cfg := baseConfig()
	cfg.ResponseMode = "vault"
	if _, err := NewResponseFactory(cfg).Create(context.Background()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestServerFactoryModes(t *testing.T) {
	for _, mode := range []config.HandlerMode{config.HandlerAnswer, config.HandlerSink} {
		cfg := baseConfig()
		cfg.HandlerMode = mode
		s, err := NewServerFactory(cfg).Create("ok", core.Listener{})
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if s.Response() != "ok" {
			t.Errorf("%s: Response() = %q", mode, s.Response())
		}
	}

	cfg := baseConfig()
	cfg.HandlerMode = "echo"
	if _, err := NewServerFactory(cfg).Create("ok", core.Listener{}); err == nil {
		t.Error("expected error for unknown handler mode")
	}
}

func TestServerFactoryAnswersEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := baseConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	var out bytes.Buffer
	l := NewListener(cfg, &out)

	s, err := NewServerFactory(cfg).Create("Acknowledged", l)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	buf := make([]byte, len("Acknowledged"))
	if _, err := io.ReadFull(conn, buf); err != nil || string(buf) != "Acknowledged" {
		t.Fatalf("greeting = %q, %v", buf, err)
	}
	conn.Close()
	s.Stop()

	if !strings.Contains(out.String(), "Sent response: Acknowledged") {
		t.Errorf("listener output = %q", out.String())
	}
}

func TestNewListenerQuiet(t *testing.T) {
	cfg := baseConfig()
	cfg.Verbose = false

	var out bytes.Buffer
	l := NewListener(cfg, &out)
	l.OnRequest("x")
	l.OnResponse("y")
	if out.Len() != 0 {
		t.Errorf("quiet listener wrote %q", out.String())
	}
}
