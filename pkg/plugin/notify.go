package plugin

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/githooks/pkg/version"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
	"golang.org/x/sync/errgroup"
)

// Notify announces accepted pushes to webhook endpoints and mail
// recipients. It runs after the push has been applied, so delivery
// problems are logged and never turn into faults.
type Notify struct {
	client *http.Client
}

// NewNotify returns the plugin.
func NewNotify() *Notify {
	return &Notify{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements hooks.Handler.
func (*Notify) Name() string { return "notify" }

// Points implements hooks.Handler.
func (*Notify) Points() []hooks.HookPoint {
	return []hooks.HookPoint{hooks.PostReceive}
}

// pushPayload is the webhook request body.
type pushPayload struct {
	Repository string      `json:"repository" url:"repository"`
	User       string      `json:"user" url:"user"`
	Refs       []refChange `json:"refs" url:"refs"`
}

type refChange struct {
	Ref    string `json:"ref" url:"ref"`
	Before string `json:"before" url:"before"`
	After  string `json:"after" url:"after"`
	Change string `json:"change" url:"change"`
}

// Run implements hooks.Handler.
func (p *Notify) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	if len(inv.Updates) == 0 {
		return nil, nil
	}
	payload := p.payload(ctx, inv)

	var g errgroup.Group
	for _, url := range inv.Config.GetAll("notify", "webhook") {
		url := url
		g.Go(func() error {
			if err := p.sendWebhook(ctx, inv, url, payload); err != nil {
				inv.Logger.Error("webhook delivery failed", "url", url, "err", err)
			}
			return nil
		})
	}

	recipients := config.Split(inv.Config.GetAll("notify", "email"))
	if len(recipients) > 0 {
		g.Go(func() error {
			if err := p.sendMail(ctx, inv, recipients, payload); err != nil {
				inv.Logger.Error("mail delivery failed", "err", err)
			}
			return nil
		})
	}

	g.Wait() //nolint:errcheck
	return nil, nil
}

func (p *Notify) payload(ctx context.Context, inv *hooks.Invocation) pushPayload {
	payload := pushPayload{
		Repository: inv.Repo.Path,
		User:       inv.User,
	}
	for _, u := range inv.Updates {
		payload.Refs = append(payload.Refs, refChange{
			Ref:    u.Ref,
			Before: u.Old.String(),
			After:  u.New.String(),
			Change: u.Classify(ctx, inv.Repo).String(),
		})
	}
	return payload
}

func (p *Notify) sendWebhook(ctx context.Context, inv *hooks.Invocation, url string, payload pushPayload) error {
	var buf bytes.Buffer
	contentType := "application/json"
	format, _ := inv.Config.Get("notify", "payload")
	switch format {
	case "", "json":
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return err
		}
	case "form":
		contentType = "application/x-www-form-urlencoded"
		v, err := query.Values(payload)
		if err != nil {
			return err
		}
		buf.WriteString(v.Encode())
	default:
		return fmt.Errorf("invalid notify.payload %q", format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "Githooks/"+version.Version)
	req.Header.Set("X-Githooks-Event", inv.Point.String())

	id, err := uuid.NewUUID()
	if err != nil {
		return err
	}
	req.Header.Set("X-Githooks-Delivery", id.String())

	if secret, ok := inv.Config.Get("notify", "secret"); ok && secret != "" {
		sig := hmac.New(sha256.New, []byte(secret))
		sig.Write(buf.Bytes()) //nolint:errcheck
		req.Header.Set("X-Githooks-Signature", "sha256="+hex.EncodeToString(sig.Sum(nil)))
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s returned %s", url, res.Status)
	}
	inv.Logger.Debug("webhook delivered", "url", url, "delivery", id.String(), "status", res.StatusCode)
	return nil
}

func (p *Notify) sendMail(ctx context.Context, inv *hooks.Invocation, recipients []string, payload pushPayload) error {
	host, ok := inv.Config.Get("notify", "smtp-host")
	if !ok {
		return fmt.Errorf("notify.email is set but notify.smtp-host is not")
	}

	msg := mail.NewMsg()
	from, _ := inv.Config.Get("notify", "from")
	if from == "" {
		from = "githooks@localhost"
	}
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(recipients...); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("[%s] push by %s", payload.Repository, payload.User))
	msg.SetBodyString(mail.TypeTextPlain, mailBody(payload))

	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if port, ok, err := inv.Config.GetInt("notify", "smtp-port"); err != nil {
		return err
	} else if ok {
		opts = append(opts, mail.WithPort(port))
	}
	if user, ok := inv.Config.Get("notify", "smtp-user"); ok && user != "" {
		password, _ := inv.Config.Get("notify", "smtp-password")
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func mailBody(payload pushPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s pushed to %s\n\n", payload.User, payload.Repository)
	for _, r := range payload.Refs {
		fmt.Fprintf(&b, "  %s %s: %s -> %s\n", r.Change, r.Ref, r.Before, r.After)
	}
	return b.String()
}
