package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func message() domain.Message {
	return domain.Message{
		NotificationID: uuid.New(),
		UserID:         uuid.New(),
		Kind:           domain.KindAuctionWon,
		To:             "ana@example.com",
		Subject:        "You won\r\nBcc: everyone@example.com",
		Body:           "Your bid of 600.00 won.",
	}
}

func TestWebhookSender(t *testing.T) {
	msg := message()
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	require.Equal(t, "webhook", s.Name())
	require.NoError(t, s.Send(context.Background(), msg))
	require.Equal(t, msg.NotificationID.String(), got.NotificationID)
	require.Equal(t, "auction_won", got.Kind)
	require.Equal(t, msg.Body, got.Body)
}

func TestWebhookSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL).Send(context.Background(), message())
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
	require.Contains(t, err.Error(), "rate limited")
}

func TestSMTPSender(t *testing.T) {
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotBody string
	)
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "bot", Password: "pw", From: "auctions@example.com"})
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotBody = addr, a, to, string(msg)
		require.Equal(t, "auctions@example.com", from)
		return nil
	}

	require.Equal(t, "smtp", s.Name())
	require.NoError(t, s.Send(context.Background(), message()))
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.NotNil(t, gotAuth)
	require.Equal(t, []string{"ana@example.com"}, gotTo)
	require.Contains(t, gotBody, "Subject: You won  Bcc: everyone@example.com\r\n")
	require.True(t, strings.HasSuffix(gotBody, "\r\n\r\nYour bid of 600.00 won.\r\n"))
}

func TestSMTPSender_Errors(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "a@example.com"})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	msg := message()
	msg.To = ""
	require.ErrorIs(t, s.Send(context.Background(), msg), errNoAddress)

	err := s.Send(context.Background(), message())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, message()), context.Canceled)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))
	msg := message()

	require.Equal(t, "log", s.Name())
	require.NoError(t, s.Send(context.Background(), msg))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "Notification", entry.Message)
	require.Equal(t, msg.NotificationID.String(), entry.ContextMap()["notificationID"])
}
