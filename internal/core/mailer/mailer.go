package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Sender 发一封邮件。实现不重试，失败由调用方记日志。
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender 通过普通 SMTP + PLAIN 认证发信（和原来走 gmail 587 一致）
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s",
		s.cfg.From, to, subject, htmlBody,
	))
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg)
}

// LogSender 本地开发用：不真正发信，只打日志（链接直接从日志里拿）
type LogSender struct {
	L *zap.Logger
}

func (s *LogSender) Send(to, subject, htmlBody string) error {
	s.L.Info("mail (not sent, smtp disabled)",
		zap.String("to", to), zap.String("subject", subject), zap.String("body", htmlBody))
	return nil
}

// Mailer 负责拼账号邮件并异步投递。
// 投递失败只记日志：用户已经落库，注册/重置流程不因为邮件回滚。
type Mailer struct {
	sender Sender
	appURL string
	log    *zap.Logger
}

func New(sender Sender, appURL string, log *zap.Logger) *Mailer {
	return &Mailer{sender: sender, appURL: appURL, log: log}
}

func (m *Mailer) SendVerificationEmail(email, token string) {
	url := fmt.Sprintf("%s/verify-email?token=%s", m.appURL, token)
	body := fmt.Sprintf(`<h1>Welcome to Casa Comfort!</h1>
<p>Please click the link below to verify your email address:</p>
<a href="%s">%s</a>`, url, url)
	m.dispatch(email, "Verify your email", body)
}

func (m *Mailer) SendPasswordResetEmail(email, token string) {
	url := fmt.Sprintf("%s/reset-password?token=%s", m.appURL, token)
	body := fmt.Sprintf(`<h1>Password Reset</h1>
<p>Click the link below to reset your password. The link expires in one hour:</p>
<a href="%s">%s</a>`, url, url)
	m.dispatch(email, "Reset your password", body)
}

func (m *Mailer) dispatch(to, subject, body string) {
	go func() {
		if err := m.sender.Send(to, subject, body); err != nil {
			m.log.Error("mail dispatch failed",
				zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}()
}
