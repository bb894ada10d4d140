package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/repository"
)

// accessTokenTTL matches the vendor's default lifetime for client tokens.
const accessTokenTTL = time.Hour

// SaveCredentialsInput carries a full vendor credential set. Partial
// saves are not supported; the set replaces whatever was stored.
type SaveCredentialsInput struct {
	AccountSID  string
	APIKey      string
	APISecret   string
	AppSID      string
	PhoneNumber string
}

// ConnectedDirectory narrows the realtime hub to what the voice webhook
// needs: who currently has a registered connection.
type ConnectedDirectory interface {
	ConnectedUserIDs() []uint
}

// TelephonyService manages vendor credentials, mints client access
// tokens, and answers the inbound voice webhook with dial markup.
type TelephonyService interface {
	GetCredentials(ctx context.Context) (*model.MaskedCredentials, error)
	SaveCredentials(ctx context.Context, input SaveCredentialsInput) (*model.MaskedCredentials, error)
	IssueAccessToken(ctx context.Context, identity string) (token string, expiresAt time.Time, err error)
	VoiceWebhook(ctx context.Context, from, to, callSID string) (string, error)
}

type telephonyService struct {
	credsRepo repository.TelephonyCredentialsRepository
	userRepo  repository.UserRepository
	connected ConnectedDirectory
}

// NewTelephonyService creates a new telephony service.
func NewTelephonyService(
	credsRepo repository.TelephonyCredentialsRepository,
	userRepo repository.UserRepository,
	connected ConnectedDirectory,
) TelephonyService {
	return &telephonyService{
		credsRepo: credsRepo,
		userRepo:  userRepo,
		connected: connected,
	}
}

func (s *telephonyService) credentials(ctx context.Context) (*model.TelephonyCredentials, error) {
	creds, err := s.credsRepo.Get(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotConfigured
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return creds, nil
}

// GetCredentials returns the stored credential set with the secret masked.
func (s *telephonyService) GetCredentials(ctx context.Context) (*model.MaskedCredentials, error) {
	creds, err := s.credentials(ctx)
	if err != nil {
		return nil, err
	}
	return creds.Masked(), nil
}

// SaveCredentials replaces the stored credential set. A save that sends
// the read-side mask back as the secret is rejected so a careless
// round-trip can never overwrite the real secret with asterisks.
func (s *telephonyService) SaveCredentials(ctx context.Context, input SaveCredentialsInput) (*model.MaskedCredentials, error) {
	if input.APISecret == model.SecretMask {
		return nil, errors.ErrSecretMasked
	}

	creds := &model.TelephonyCredentials{
		AccountSID:  input.AccountSID,
		APIKey:      input.APIKey,
		APISecret:   input.APISecret,
		AppSID:      input.AppSID,
		PhoneNumber: input.PhoneNumber,
	}
	if err := s.credsRepo.Replace(ctx, creds); err != nil {
		return nil, fmt.Errorf("replace credentials: %w", err)
	}
	return creds.Masked(), nil
}

// accessGrants mirrors the vendor's token grant document.
type accessGrants struct {
	Identity string     `json:"identity"`
	Voice    voiceGrant `json:"voice"`
}

type voiceGrant struct {
	Incoming incomingGrant `json:"incoming"`
	Outgoing outgoingGrant `json:"outgoing"`
}

type incomingGrant struct {
	Allow bool `json:"allow"`
}

type outgoingGrant struct {
	ApplicationSID string `json:"application_sid"`
}

// accessClaims is the vendor access token payload. It is signed with the
// stored API secret, not the application's own JWT secret.
type accessClaims struct {
	Grants accessGrants `json:"grants"`
	jwt.RegisteredClaims
}

// IssueAccessToken mints a short-lived vendor access token granting the
// given client identity two-way voice.
func (s *telephonyService) IssueAccessToken(ctx context.Context, identity string) (string, time.Time, error) {
	creds, err := s.credentials(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(accessTokenTTL)
	claims := &accessClaims{
		Grants: accessGrants{
			Identity: identity,
			Voice: voiceGrant{
				Incoming: incomingGrant{Allow: true},
				Outgoing: outgoingGrant{ApplicationSID: creds.AppSID},
			},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", creds.APIKey, now.Unix()),
			Issuer:    creds.APIKey,
			Subject:   creds.AccountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(creds.APISecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// dialResponse is the vendor markup document returned to voice webhooks.
type dialResponse struct {
	XMLName xml.Name  `xml:"Response"`
	Say     string    `xml:"Say,omitempty"`
	Dial    *dialVerb `xml:"Dial,omitempty"`
}

type dialVerb struct {
	CallerID string   `xml:"callerId,attr,omitempty"`
	Clients  []string `xml:"Client,omitempty"`
	Number   string   `xml:"Number,omitempty"`
}

// VoiceWebhook builds the markup answer for a vendor voice callback.
// Calls to the tenant number ring every connected client; anything else
// is an app-originated outbound call and dials the target number with the
// tenant number as caller ID.
func (s *telephonyService) VoiceWebhook(ctx context.Context, from, to, callSID string) (string, error) {
	creds, err := s.credentials(ctx)
	if err != nil {
		return "", err
	}

	var doc dialResponse
	if to != "" && to != creds.PhoneNumber {
		doc.Dial = &dialVerb{CallerID: creds.PhoneNumber, Number: to}
	} else {
		ids := s.connected.ConnectedUserIDs()
		users, err := s.userRepo.FindByIDs(ctx, ids)
		if err != nil {
			return "", fmt.Errorf("load connected users: %w", err)
		}

		extensions := make([]string, 0, len(users))
		for _, user := range users {
			if user.IsActive {
				extensions = append(extensions, user.Extension)
			}
		}

		if len(extensions) == 0 {
			doc.Say = "No agents are available to take your call. Please try again later."
		} else {
			doc.Dial = &dialVerb{Clients: extensions}
		}
	}

	out, err := xml.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal voice response: %w", err)
	}
	return xml.Header + string(out), nil
}
