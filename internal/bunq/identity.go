package bunq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Installation is the result of the first handshake step.
type Installation struct {
	Token           string
	ServerPublicKey string
}

// Session is a provider-issued bearer token plus the remote user it belongs
// to. Validity is provider-controlled and unknown until tested.
type Session struct {
	Token  string
	UserID int64
}

type tokenBody struct {
	Token string `json:"token"`
}

// CreateInstallation registers the client public key and returns the
// installation token plus the server's public key. No auth token yet.
func (c *Client) CreateInstallation(ctx context.Context, publicKeyPEM string) (Installation, error) {
	body := map[string]string{"client_public_key": publicKeyPEM}
	items, err := c.Do(ctx, "POST", "/installation", body, "")
	if err != nil {
		return Installation{}, err
	}

	tokRaw, _, ok := firstTagged(items, "Token")
	if !ok {
		return Installation{}, errors.New("installation: no Token in response")
	}
	var tok tokenBody
	if err := json.Unmarshal(tokRaw, &tok); err != nil {
		return Installation{}, fmt.Errorf("installation: decode token: %w", err)
	}

	keyRaw, _, ok := firstTagged(items, "ServerPublicKey")
	if !ok {
		return Installation{}, errors.New("installation: no ServerPublicKey in response")
	}
	var key struct {
		ServerPublicKey string `json:"server_public_key"`
	}
	if err := json.Unmarshal(keyRaw, &key); err != nil {
		return Installation{}, fmt.Errorf("installation: decode server key: %w", err)
	}

	return Installation{Token: tok.Token, ServerPublicKey: key.ServerPublicKey}, nil
}

// RegisterDevice registers this service as a device under the installation.
// permitted_ips "*" keeps the credential usable from rotating egress IPs.
func (c *Client) RegisterDevice(ctx context.Context, installationToken, description, apiKey string) (int64, error) {
	body := map[string]any{
		"description":   description,
		"secret":        apiKey,
		"permitted_ips": []string{"*"},
	}
	items, err := c.Do(ctx, "POST", "/device-server", body, installationToken)
	if err != nil {
		return 0, err
	}

	idRaw, _, ok := firstTagged(items, "Id")
	if !ok {
		return 0, errors.New("device-server: no Id in response")
	}
	var id struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return 0, fmt.Errorf("device-server: decode id: %w", err)
	}
	return id.ID, nil
}

// CreateSession opens a session under the installation. The user is nested
// under one of several tagged variants; the first present wins.
func (c *Client) CreateSession(ctx context.Context, installationToken, apiKey string) (Session, error) {
	body := map[string]string{"secret": apiKey}
	items, err := c.Do(ctx, "POST", "/session-server", body, installationToken)
	if err != nil {
		return Session{}, err
	}

	tokRaw, _, ok := firstTagged(items, "Token")
	if !ok {
		return Session{}, errors.New("session-server: no Token in response")
	}
	var tok tokenBody
	if err := json.Unmarshal(tokRaw, &tok); err != nil {
		return Session{}, fmt.Errorf("session-server: decode token: %w", err)
	}

	userRaw, _, ok := firstTagged(items, "UserPerson", "UserCompany", "UserLight")
	if !ok {
		return Session{}, errors.New("session-server: no user in response")
	}
	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(userRaw, &user); err != nil {
		return Session{}, fmt.Errorf("session-server: decode user: %w", err)
	}

	return Session{Token: tok.Token, UserID: user.ID}, nil
}
