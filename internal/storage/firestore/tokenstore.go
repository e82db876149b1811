// Package firestore persists FCM registration tokens in Google Cloud Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

const (
	usersCollection   = "users"
	devicesCollection = "devices"
)

// TokenStore implements dispatch.TokenStore.
// Layout: users/{userURN}/devices/{sha256(token)}.
type TokenStore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewTokenStore(client *firestore.Client, logger *slog.Logger) *TokenStore {
	return &TokenStore{
		client: client,
		logger: logger.With("component", "FirestoreTokenStore"),
	}
}

type deviceRecord struct {
	Token     string    `firestore:"token"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// RegisterFCM upserts the token. The document ID is the token hash, so re-registering
// only refreshes updated_at.
func (s *TokenStore) RegisterFCM(ctx context.Context, user urn.URN, token string) error {
	record := deviceRecord{Token: token, UpdatedAt: time.Now().UTC()}
	if _, err := s.deviceRef(user, token).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to register token: %w", err)
	}
	return nil
}

func (s *TokenStore) UnregisterFCM(ctx context.Context, user urn.URN, token string) error {
	_, err := s.deviceRef(user, token).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		s.logger.Debug("Token was not registered", "user", user.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to unregister token: %w", err)
	}
	return nil
}

func (s *TokenStore) Fetch(ctx context.Context, user urn.URN) ([]string, error) {
	iter := s.client.Collection(usersCollection).Doc(user.String()).Collection(devicesCollection).Documents(ctx)
	defer iter.Stop()

	tokens := make([]string, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record deviceRecord
		if err := doc.DataTo(&record); err != nil || record.Token == "" {
			s.logger.Warn("Skipping unreadable device record", "user", user.String(), "doc_id", doc.Ref.ID)
			continue
		}
		tokens = append(tokens, record.Token)
	}
	return tokens, nil
}

func (s *TokenStore) deviceRef(user urn.URN, token string) *firestore.DocumentRef {
	sum := sha256.Sum256([]byte(token))
	return s.client.Collection(usersCollection).Doc(user.String()).
		Collection(devicesCollection).Doc(hex.EncodeToString(sum[:]))
}
