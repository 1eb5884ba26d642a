package notify

import (
	"context"
	"errors"
	"testing"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Error("expected error without a from number")
	}
}

func TestNewClientWithOptions(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	client, err := NewClient(
		WithAccountSID("AC123"),
		WithAuthToken("token"),
		WithFromNumber("+15550001111"),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.fromNumber != "+15550001111" {
		t.Errorf("unexpected from number: %q", client.fromNumber)
	}
}

func TestMockClientRecordsMessages(t *testing.T) {
	mock := NewMockClient()
	if err := mock.SendMessage(context.Background(), "+15551234567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].To != "+15551234567" || mock.SentMessages[0].Body != "hello" {
		t.Errorf("unexpected recorded message: %+v", mock.SentMessages[0])
	}
}

func TestMockClientError(t *testing.T) {
	mock := NewMockClient()
	mock.Err = errors.New("boom")
	if err := mock.SendMessage(context.Background(), "+1555", "hello"); err == nil {
		t.Error("expected configured error")
	}
	if len(mock.SentMessages) != 0 {
		t.Errorf("expected no recorded messages on error, got %d", len(mock.SentMessages))
	}
}
