package mail

import (
	"testing"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
)

func TestNewSendgridClientRequiresKeyAndSender(t *testing.T) {
	if _, err := NewSendgridClient(config.SendgridConfig{DefaultFrom: "orders@sunrise.test"}); err == nil {
		t.Fatal("expected missing api key to fail")
	}
	if _, err := NewSendgridClient(config.SendgridConfig{APIKey: "SG.key"}); err == nil {
		t.Fatal("expected missing from address to fail")
	}
}

func TestBuildMessage(t *testing.T) {
	client, err := NewSendgridClient(config.SendgridConfig{
		APIKey:      "SG.key",
		DefaultFrom: " orders@sunrise.test ",
		FromName:    "Sunrise Breakfast",
	})
	if err != nil {
		t.Fatalf("NewSendgridClient() error: %v", err)
	}

	email, err := client.build(Message{To: "ada@example.com", Subject: "Your order", PlainText: "thanks"})
	if err != nil {
		t.Fatalf("build() error: %v", err)
	}
	if email.From.Address != "orders@sunrise.test" || email.From.Name != "Sunrise Breakfast" {
		t.Fatalf("unexpected from %+v", email.From)
	}
	if len(email.Personalizations) != 1 || email.Personalizations[0].To[0].Address != "ada@example.com" {
		t.Fatalf("unexpected recipients %+v", email.Personalizations)
	}
	if len(email.Content) != 2 || email.Content[1].Value != "<pre>thanks</pre>" {
		t.Fatalf("expected html fallback, got %+v", email.Content)
	}

	if _, err := client.build(Message{Subject: "Your order"}); err == nil {
		t.Fatal("expected empty recipient to fail")
	}
	if _, err := client.build(Message{To: "ada@example.com"}); err == nil {
		t.Fatal("expected empty subject to fail")
	}
}
