package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials issues tokens with the client credentials grant, client id and
// secret sent as basic auth
type ClientCredentials struct {
	config clientcredentials.Config
	client *http.Client
}

// NewClientCredentials builds an issuer against tokenURL. The http client carries the
// service headers the token endpoint expects, nil uses http.DefaultClient.
func NewClientCredentials(tokenURL string, clientID string, clientSecret string, client *http.Client) *ClientCredentials {
	if client == nil {
		client = http.DefaultClient
	}
	return &ClientCredentials{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: client,
	}
}

// Issue posts grant_type=client_credentials to the token endpoint
func (c *ClientCredentials) Issue(ctx context.Context) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := c.config.Token(ctx)
	if err != nil {
		return nil, err
	}
	t := &Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if v, ok := tok.Extra("expires_in").(float64); ok {
		t.ExpiresIn = int64(v)
	}
	return t, nil
}
