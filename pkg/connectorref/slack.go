// Package connectorref provides reference connector implementations that
// exercise the C2 contract and C3 registry: a Slack OAuth2 connector and a
// generic shared-secret webhook-only connector. Real per-provider connector
// code is out of scope (§1); these exist to prove the contract is
// implementable and to give the registry something concrete to hold.
package connectorref

import (
	"context"
	"fmt"
	"net/url"
	"time"

	goslack "github.com/slack-go/slack"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/slack"

	"github.com/akamaotto/relayhub/pkg/connector"
)

// SlackConnector authorizes Slack workspaces via OAuth2 and lists recent
// channel messages as signals.
type SlackConnector struct {
	oauthConfig oauth2.Config
}

// NewSlackConnector builds a SlackConnector from client credentials and
// scopes.
func NewSlackConnector(clientID, clientSecret string, scopes []string) *SlackConnector {
	return &SlackConnector{
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       scopes,
			Endpoint:     slack.Endpoint,
		},
	}
}

func (s *SlackConnector) Metadata() connector.Metadata {
	return connector.Metadata{
		Slug:             "slack",
		AuthType:         "oauth2",
		Scopes:           s.oauthConfig.Scopes,
		SupportsWebhooks: true,
	}
}

func (s *SlackConnector) Authorize(ctx context.Context, p connector.AuthorizeParams) (string, error) {
	cfg := s.oauthConfig
	cfg.RedirectURL = p.RedirectURI
	authURL := cfg.AuthCodeURL(p.State)

	u, err := url.Parse(authURL)
	if err != nil {
		return "", &connector.Error{Type: connector.ErrorTypeConfiguration, Details: err.Error()}
	}
	u.Fragment = ""
	return u.String(), nil
}

func (s *SlackConnector) ExchangeToken(ctx context.Context, p connector.ExchangeParams) (*connector.ConnectionDraft, error) {
	cfg := s.oauthConfig
	cfg.RedirectURL = p.RedirectURI

	tok, err := cfg.Exchange(ctx, p.Code)
	if err != nil {
		return nil, &connector.Error{Type: connector.ErrorTypeAuthentication, Details: err.Error()}
	}

	teamID, _ := tok.Extra("team_id").(string)
	var expiresAt *time.Time
	if !tok.Expiry.IsZero() {
		expiresAt = &tok.Expiry
	}

	return &connector.ConnectionDraft{
		ExternalID:   teamID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		Metadata:     map[string]any{"team_id": teamID},
	}, nil
}

func (s *SlackConnector) RefreshToken(ctx context.Context, conn connector.ConnectionView) (*connector.ConnectionDraft, error) {
	if conn.RefreshToken == "" {
		return nil, connector.ErrNotSupported
	}
	cfg := s.oauthConfig
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &connector.Error{Type: connector.ErrorTypeAuthentication, Details: err.Error()}
	}

	var expiresAt *time.Time
	if !tok.Expiry.IsZero() {
		expiresAt = &tok.Expiry
	}
	return &connector.ConnectionDraft{
		ExternalID:   conn.ExternalID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *SlackConnector) Sync(ctx context.Context, p connector.SyncParams) (*connector.SyncResult, error) {
	client := goslack.New(p.Connection.AccessToken)

	channelID, _ := p.Connection.Metadata["default_channel_id"].(string)
	if channelID == "" {
		return &connector.SyncResult{NextCursor: p.Cursor}, nil
	}

	params := &goslack.GetConversationHistoryParameters{ChannelID: channelID, Limit: 50}
	if cursor, ok := p.Cursor["oldest"].(string); ok {
		params.Oldest = cursor
	}

	history, err := client.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, classifySlackError(err)
	}

	signals := make([]connector.RawSignal, 0, len(history.Messages))
	var latestTS string
	for _, m := range history.Messages {
		signals = append(signals, connector.RawSignal{
			ProviderKind: "message_posted",
			OccurredAt:   time.Now(),
			Payload: map[string]any{
				"channel_id": channelID,
				"user":       m.User,
				"text":       m.Text,
				"ts":         m.Timestamp,
			},
			DedupeKey: fmt.Sprintf("%s:%s", channelID, m.Timestamp),
		})
		if m.Timestamp > latestTS {
			latestTS = m.Timestamp
		}
	}

	nextCursor := map[string]any{}
	if latestTS != "" {
		nextCursor["oldest"] = latestTS
	}
	return &connector.SyncResult{Signals: signals, NextCursor: nextCursor}, nil
}

func (s *SlackConnector) HandleWebhook(ctx context.Context, p connector.WebhookParams) ([]connector.RawSignal, error) {
	eventType, _ := p.Payload["type"].(string)
	if eventType != "event_callback" {
		return nil, nil
	}
	event, _ := p.Payload["event"].(map[string]any)
	if event == nil {
		return nil, nil
	}

	ts, _ := event["event_ts"].(string)
	return []connector.RawSignal{{
		ProviderKind: "message_posted",
		OccurredAt:   time.Now(),
		Payload:      event,
		DedupeKey:    "webhook:" + ts,
	}}, nil
}

func classifySlackError(err error) error {
	if rlErr, ok := err.(*goslack.RateLimitedError); ok {
		ra := rlErr.RetryAfter
		return &connector.Error{Type: connector.ErrorTypeRateLimit, RetryAfter: &ra}
	}
	return &connector.Error{Type: connector.ErrorTypeNetwork, Retryable: true, Details: err.Error()}
}
