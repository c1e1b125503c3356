package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a single transactional email.
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridClient sends mail through the SendGrid v3 API.
type SendgridClient struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendgridClient builds a client from config. The API key and from address are required.
func NewSendgridClient(cfg config.SendgridConfig) (*SendgridClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is empty")
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, fmt.Errorf("sendgrid from address is empty")
	}
	return &SendgridClient{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: strings.TrimSpace(cfg.FromName),
	}, nil
}

// Send delivers msg. Any 4xx/5xx response from SendGrid is returned as an error.
func (c *SendgridClient) Send(ctx context.Context, msg Message) error {
	email, err := c.build(msg)
	if err != nil {
		return err
	}
	resp, err := c.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (c *SendgridClient) build(msg Message) (*sgmail.SGMailV3, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, fmt.Errorf("to address is empty")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, fmt.Errorf("subject is empty")
	}
	html := msg.HTML
	if html == "" {
		html = fmt.Sprintf("<pre>%s</pre>", msg.PlainText)
	}
	return sgmail.NewSingleEmail(
		sgmail.NewEmail(c.fromName, c.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, to),
		msg.PlainText,
		html,
	), nil
}
