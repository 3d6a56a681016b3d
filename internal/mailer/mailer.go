// Package mailer はSMTP経由でパスワードリセットコードのメールを送信する。
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"
)

// ErrNotConfigured はSMTPホストが設定されていないことを表す。
var ErrNotConfigured = errors.New("smtp is not configured")

// Config はSMTP接続の設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sender はメッセージ送信を抽象化する。*mail.Client が満たす。
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer はgo-mailを使ったメール送信の実装。
type SMTPMailer struct {
	client sender
	from   string
	logger *slog.Logger
}

// New はSMTPMailerを生成する。Hostが空の場合はErrNotConfiguredを返す。
// 認証情報がある場合のみSMTP AUTH PLAINを使用し、TLSは可能なら利用する。
func New(cfg Config, logger *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, ErrNotConfigured
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From, logger: logger}, nil
}

var resetBody = template.Must(template.New("reset").Parse(`Olá{{if .Name}} {{.Name}}{{end}},

Recebemos uma solicitação para redefinir a sua senha.
Seu código de verificação é: {{.Code}}

O código expira em {{.ExpiresAt}}.
Se você não solicitou a redefinição, ignore este e-mail.
`))

// SendResetCode はリセットコードを記載したメールを送信する。失敗しても再試行はしない。
func (m *SMTPMailer) SendResetCode(ctx context.Context, to, name, code string, expiresAt time.Time) error {
	msg, err := buildResetMessage(m.from, to, name, code, expiresAt)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("failed to send reset code email",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildResetMessage はリセットコードのメールを組み立てる。
func buildResetMessage(from, to, name, code string, expiresAt time.Time) (*mail.Msg, error) {
	var body bytes.Buffer
	err := resetBody.Execute(&body, struct {
		Name, Code, ExpiresAt string
	}{
		Name:      name,
		Code:      code,
		ExpiresAt: expiresAt.UTC().Format("02/01/2006 15:04 UTC"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("Código de redefinição de senha")
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}

// Disabled はSMTPが未設定の環境で使うMailer。送信は常にErrNotConfiguredで失敗する。
type Disabled struct{}

// SendResetCode は常にErrNotConfiguredを返す。
func (Disabled) SendResetCode(context.Context, string, string, string, time.Time) error {
	return ErrNotConfigured
}
