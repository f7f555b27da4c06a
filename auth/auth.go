package auth

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

const (
	SHEETS  = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE   = "https://www.googleapis.com/auth/drive"
	STORAGE = "https://www.googleapis.com/auth/devstorage.read_write"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrCredentialParse = errors.New("invalid service account credentials")
)

// Credential is the subset of a Google service account key file needed to mint
// OAuth2 tokens.
type Credential struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// Session is an authorised service account identity. The token exchange is
// deferred until the first request made with Client.
type Session struct {
	Client *http.Client
	Email  string
	Scopes []string
}

// FromEnv authorises a session from the service account JSON held in the named
// environment variable.
func FromEnv(ctx context.Context, variable string, scopes ...string) (*Session, error) {
	payload := os.Getenv(variable)
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: environment variable %v is not defined", ErrConfiguration, variable)
	}

	return Authenticate(ctx, []byte(payload), scopes...)
}

// FromFile authorises a session from a service account key file.
func FromFile(ctx context.Context, file string, scopes ...string) (*Session, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read credentials file (%v)", ErrConfiguration, err)
	} else if len(b) == 0 {
		return nil, fmt.Errorf("%w: credentials file %v is empty", ErrConfiguration, file)
	}

	return Authenticate(ctx, b, scopes...)
}

// Authenticate builds an authorised session from a service account JSON payload. The
// Sheets and Drive scopes are always requested in addition to any extra scopes.
func Authenticate(ctx context.Context, payload []byte, scopes ...string) (*Session, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: missing service account credentials", ErrConfiguration)
	}

	credential, err := parse(payload)
	if err != nil {
		return nil, err
	}

	config := jwt.Config{
		Email:        credential.ClientEmail,
		PrivateKey:   []byte(credential.PrivateKey),
		PrivateKeyID: credential.PrivateKeyID,
		Scopes:       Scopes(scopes...),
		TokenURL:     credential.TokenURI,
	}

	return &Session{
		Client: config.Client(ctx),
		Email:  credential.ClientEmail,
		Scopes: config.Scopes,
	}, nil
}

// Scopes returns the Sheets and Drive scopes followed by the extra scopes, without
// duplicates.
func Scopes(extra ...string) []string {
	scopes := []string{}
	seen := map[string]bool{}

	for _, s := range append([]string{SHEETS, DRIVE}, extra...) {
		if s = strings.TrimSpace(s); s != "" && !seen[s] {
			seen[s] = true
			scopes = append(scopes, s)
		}
	}

	return scopes
}

func parse(payload []byte) (*Credential, error) {
	var credential Credential

	if err := json.Unmarshal(payload, &credential); err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrCredentialParse, err)
	}

	if credential.Type != "" && credential.Type != "service_account" {
		return nil, fmt.Errorf("%w: unsupported credentials type '%s'", ErrCredentialParse, credential.Type)
	}

	if strings.TrimSpace(credential.ClientEmail) == "" {
		return nil, fmt.Errorf("%w: missing 'client_email'", ErrCredentialParse)
	}

	if strings.TrimSpace(credential.PrivateKey) == "" {
		return nil, fmt.Errorf("%w: missing 'private_key'", ErrCredentialParse)
	}

	if block, _ := pem.Decode([]byte(credential.PrivateKey)); block == nil {
		return nil, fmt.Errorf("%w: 'private_key' is not PEM encoded", ErrCredentialParse)
	}

	if strings.TrimSpace(credential.TokenURI) == "" {
		credential.TokenURI = google.JWTTokenURL
	}

	return &credential, nil
}
