package mail

import (
	"context"
	"errors"
	"net"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	gomail "github.com/wneessen/go-mail"

	"LiteratureDigest/internal/config"
	"LiteratureDigest/internal/domain"
)

func testConfig() config.MailConfig {
	return config.MailConfig{
		Server:    "smtp.example.org",
		TLSPolicy: "mandatory",
		Sender:    "digest@example.org",
		Recipient: "reader@example.org",
		Password:  "secret",
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	m := NewMailer(testConfig(), time.Second)
	msg, err := m.buildMessage("Literature digest 2026-10-19", "Peptide\n=======\n")
	if err != nil {
		t.Fatalf("buildMessage returned error: %v", err)
	}

	rcpts, err := msg.GetRecipients()
	if err != nil {
		t.Fatalf("GetRecipients returned error: %v", err)
	}
	if len(rcpts) != 1 {
		t.Fatalf("unexpected recipients: %v", rcpts)
	}
	addr, err := netmail.ParseAddress(rcpts[0])
	if err != nil || addr.Address != "reader@example.org" {
		t.Fatalf("unexpected recipient %q: %v", rcpts[0], err)
	}

	subject := msg.GetGenHeader(gomail.HeaderSubject)
	if len(subject) != 1 || subject[0] != "Literature digest 2026-10-19" {
		t.Fatalf("unexpected subject: %v", subject)
	}

	parts := msg.GetParts()
	if len(parts) != 1 || parts[0].GetContentType() != gomail.TypeTextPlain {
		t.Fatalf("expected one text/plain part, got %d", len(parts))
	}
	content, err := parts[0].GetContent()
	if err != nil {
		t.Fatalf("GetContent returned error: %v", err)
	}
	if string(content) != "Peptide\n=======\n" {
		t.Fatalf("unexpected body: %q", content)
	}
}

func TestBuildMessageRejectsBadAddress(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Recipient = "not an address"
	if _, err := NewMailer(cfg, time.Second).buildMessage("s", "b"); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}

func TestNewClientPorts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		policy string
		port   int
		want   string
	}{
		{"mandatory", 0, "smtp.example.org:587"},
		{"ssl", 0, "smtp.example.org:465"},
		{"none", 0, "smtp.example.org:25"},
		{"opportunistic", 2525, "smtp.example.org:2525"},
		{"ssl", 994, "smtp.example.org:994"},
	}

	for _, tc := range cases {
		cfg := testConfig()
		cfg.TLSPolicy = tc.policy
		cfg.Port = tc.port
		client, err := NewMailer(cfg, time.Second).newClient()
		if err != nil {
			t.Fatalf("%s: newClient returned error: %v", tc.policy, err)
		}
		if got := client.ServerAddr(); got != tc.want {
			t.Fatalf("%s/%d: server addr = %s, want %s", tc.policy, tc.port, got, tc.want)
		}
	}
}

func TestSendReportsDeliveryFailure(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	cfg := testConfig()
	cfg.Server = "127.0.0.1"
	cfg.Port = port
	cfg.TLSPolicy = "none"

	err = NewMailer(cfg, time.Second).Send(context.Background(), "subject", "body")
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch for refused connection on port %s, got %v", strconv.Itoa(port), err)
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Password = ""
	if err := NewMailer(cfg, 0).Send(context.Background(), "s", "b"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}

func TestLoadedSSLConfigDialsImplicitTLSPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.yaml")
	raw := []byte(`
translator:
  provider: none
mail:
  server: smtp.qq.com
  tlsPolicy: ssl
  sender: sender@qq.com
  recipient: reader@example.org
  password: secret
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	for _, key := range []string{"MAIL_PASSWORD", "MAIL_SENDER", "MAIL_RECIPIENT", "MAIL_SERVER", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("LITERATURE_DIGEST_CONFIG", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	client, err := NewMailer(cfg.Mail, time.Second).newClient()
	if err != nil {
		t.Fatalf("newClient returned error: %v", err)
	}
	if got := client.ServerAddr(); got != "smtp.qq.com:465" {
		t.Fatalf("server addr = %s, want smtp.qq.com:465", got)
	}
}
