package userclient

import (
	"context"

	"github.com/gotd/td/session"
	credService "github.com/mentionwatch/mentionwatch/internal/modules/credentials/service"
)

// credentialsSessionStorage keeps the MTProto session inside the
// credentials store's session_token field, so an authenticated session is
// an opaque string that survives restarts and is written by the setup
// conversation. StoreSession also catches session rotations performed by
// the client at runtime.
type credentialsSessionStorage struct {
	creds *credService.Service
}

func (s *credentialsSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	creds, err := s.creds.Get()
	if err != nil {
		return nil, err
	}
	if creds.SessionToken == "" {
		return nil, session.ErrNotFound
	}
	return []byte(creds.SessionToken), nil
}

func (s *credentialsSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	return s.creds.SetSessionToken(string(data))
}
