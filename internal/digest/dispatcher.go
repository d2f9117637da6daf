package digest

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/daily-digest/internal/model"
)

const digestSubject = "Daily Summary"

// transport is the slice of the SMTP client the dispatcher drives, kept
// narrow so tests can substitute a recording implementation.
type transport interface {
	StartTLS(config *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// dialFunc opens an SMTP transport to addr, greeting the server as host.
type dialFunc func(addr, host string) (transport, error)

func dialSMTP(addr, host string) (transport, error) {
	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}

	return client, nil
}

// Dispatcher delivers composed digests over SMTP. Each send opens its own
// transport session and always releases it, whatever the outcome. There is no
// internal retry: exactly one outbound message per call.
type Dispatcher struct {
	cfg  model.SMTPConfig
	dial dialFunc
}

// NewDispatcher creates a dispatcher for the given transport configuration.
// The configuration is validated on send, not here, so a partially configured
// dispatcher can be constructed and never used.
func NewDispatcher(cfg model.SMTPConfig) *Dispatcher {
	return &Dispatcher{cfg: cfg, dial: dialSMTP}
}

// SendSummary composes a multipart (plain + HTML alternative) digest from the
// given sections and sends it to the configured recipient, returning the
// composed document so callers can archive exactly what was sent. Missing
// transport settings raise a ConfigError before any connection is opened.
func (d *Dispatcher) SendSummary(items []string, weather string, headlines []string) (model.DigestDocument, error) {
	if err := d.validate(); err != nil {
		return model.DigestDocument{}, err
	}

	doc, err := BuildBody(items, weather, headlines)
	if err != nil {
		return model.DigestDocument{}, err
	}

	msg, err := buildMessage(d.cfg.From, d.cfg.To, doc)
	if err != nil {
		return model.DigestDocument{}, err
	}

	addr := d.cfg.Host + ":" + d.cfg.Port
	client, err := d.dial(addr, d.cfg.Host)
	if err != nil {
		return model.DigestDocument{}, err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
		return model.DigestDocument{}, fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return model.DigestDocument{}, fmt.Errorf("SMTP auth: %w", err)
	}

	if err := client.Mail(d.cfg.From); err != nil {
		return model.DigestDocument{}, fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(d.cfg.To); err != nil {
		return model.DigestDocument{}, fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return model.DigestDocument{}, fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return model.DigestDocument{}, fmt.Errorf("writing message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return model.DigestDocument{}, fmt.Errorf("closing message body: %w", err)
	}

	if err := client.Quit(); err != nil {
		return model.DigestDocument{}, err
	}

	return doc, nil
}

// validate checks every required transport setting before any network action.
func (d *Dispatcher) validate() error {
	required := []struct {
		setting string
		value   string
	}{
		{"smtp host", d.cfg.Host},
		{"smtp port", d.cfg.Port},
		{"smtp username", d.cfg.Username},
		{"smtp password", d.cfg.Password},
		{"smtp from address", d.cfg.From},
		{"smtp to address", d.cfg.To},
	}

	for _, r := range required {
		if r.value == "" {
			return &model.ConfigError{Setting: r.setting}
		}
	}
	return nil
}

// buildMessage assembles the multipart/alternative MIME message, text part
// first so capable clients prefer the HTML alternative.
func buildMessage(from, to string, doc model.DigestDocument) ([]byte, error) {
	var buf bytes.Buffer

	var header mail.Header
	header.SetDate(time.Now())
	header.SetSubject(digestSubject)
	header.SetAddressList("From", []*mail.Address{{Address: from}})
	header.SetAddressList("To", []*mail.Address{{Address: to}})

	mw, err := mail.CreateInlineWriter(&buf, header)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	var textHeader mail.InlineHeader
	textHeader.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("creating text part: %w", err)
	}
	if _, err := io.WriteString(tw, doc.Text); err != nil {
		return nil, fmt.Errorf("writing text part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing text part: %w", err)
	}

	var htmlHeader mail.InlineHeader
	htmlHeader.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	hw, err := mw.CreatePart(htmlHeader)
	if err != nil {
		return nil, fmt.Errorf("creating html part: %w", err)
	}
	if _, err := io.WriteString(hw, doc.HTML); err != nil {
		return nil, fmt.Errorf("writing html part: %w", err)
	}
	if err := hw.Close(); err != nil {
		return nil, fmt.Errorf("closing html part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	return buf.Bytes(), nil
}
