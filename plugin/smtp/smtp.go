// Package smtp provides a destination that emails notifications to the receivers of a
// delivery.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	netsmtp "net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"golang.org/x/time/rate"

	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/internal/runtime/message"
	"github.com/drblury/notiflow/plugin"
)

// Name is the name this destination registers under.
const Name = "smtp"

// LegacyName is the class name older configurations use for the SMTP destination.
const LegacyName = "SMTPService"

// ReceiversParam is the delivery parameter listing recipient addresses.
const ReceiversParam = "receivers"

// Client is the subset of *net/smtp.Client the destination drives.
type Client interface {
	Hello(localName string) error
	Extension(ext string) (bool, string)
	StartTLS(config *tls.Config) error
	Auth(a netsmtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// DialFunc allows overriding how the server connection is opened for testing.
var DialFunc = func(ctx context.Context, addr string) (Client, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, err := netsmtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Now is the clock used for the Date header.
var Now = time.Now

func init() {
	plugin.RegisterDestination(plugin.Builtin(Name), Factory)
	plugin.RegisterDestination(plugin.Builtin(LegacyName), Factory)
}

// Config holds the server settings of an SMTP destination.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From     string
	StartTLS bool
	Timeout  time.Duration
	// RateLimit caps emails per second; zero disables it.
	RateLimit float64
}

// ParseConfig reads host, port (587), username, password, from, starttls (true), timeout (30s)
// and rate_limit.
func ParseConfig(name string, params plugin.Params) (Config, error) {
	var cfg Config
	var err error
	if cfg.Host, err = params.String("host"); err != nil {
		return cfg, err
	}
	if cfg.Port, err = params.IntOr("port", 587); err != nil {
		return cfg, err
	}
	if cfg.Username, err = params.StringOr("username", ""); err != nil {
		return cfg, err
	}
	if cfg.Password, err = params.StringOr("password", ""); err != nil {
		return cfg, err
	}
	if cfg.From, err = params.StringOr("from", cfg.Username); err != nil {
		return cfg, err
	}
	if cfg.From == "" {
		return cfg, errspkg.InvalidParamError{Component: name, Param: "from", Reason: "is required when username is empty"}
	}
	if cfg.StartTLS, err = params.BoolOr("starttls", true); err != nil {
		return cfg, err
	}
	if cfg.Timeout, err = params.DurationOr("timeout", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.RateLimit, err = params.FloatOr("rate_limit", 0); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Factory builds an SMTP destination.
func Factory(_ context.Context, name string, params plugin.Params, logger watermill.LoggerAdapter) (plugin.Destination, error) {
	cfg, err := ParseConfig(name, params)
	if err != nil {
		return nil, err
	}
	return New(name, cfg, logger), nil
}

// Destination sends one email per non-empty batch.
type Destination struct {
	name    string
	cfg     Config
	limiter *rate.Limiter
	logger  watermill.LoggerAdapter
}

// New returns an SMTP destination.
func New(name string, cfg Config, logger watermill.LoggerAdapter) *Destination {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	d := &Destination{name: name, cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return d
}

func (d *Destination) Name() string { return d.name }

// SendMessages emails the batch to extra["receivers"]. An empty batch sends nothing.
func (d *Destination) SendMessages(ctx context.Context, entries []message.Entry, subject string, extra plugin.Params) error {
	receivers, err := extra.Strings(ReceiversParam)
	if err != nil {
		return err
	}
	if len(receivers) == 0 {
		return errspkg.InvalidParamError{Component: d.name, Param: ReceiversParam, Reason: "is required"}
	}
	if len(entries) == 0 {
		d.logger.Debug("Nothing to send", watermill.LogFields{"destination": d.name, "subject": subject})
		return nil
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	if err := d.send(ctx, receivers, Compose(d.cfg.From, receivers, subject, entries, Now())); err != nil {
		return err
	}
	d.logger.Info("Email sent", watermill.LogFields{
		"destination": d.name,
		"receivers":   len(receivers),
		"entries":     len(entries),
	})
	return nil
}

func (d *Destination) send(ctx context.Context, receivers []string, body []byte) error {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	c, err := DialFunc(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return err
	}
	if d.cfg.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if d.cfg.Username != "" {
		if err := c.Auth(netsmtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(d.cfg.From); err != nil {
		return err
	}
	for _, r := range receivers {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("rcpt %s: %w", r, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// Compose renders a plain text email with one "- <entry>" line per entry. Line endings are
// normalised to CRLF by the SMTP data writer.
func Compose(from string, receivers []string, subject string, entries []message.Entry, date time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\n", from)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(receivers, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\n")
	b.WriteString("\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s\n", e.String())
	}
	return b.Bytes()
}
