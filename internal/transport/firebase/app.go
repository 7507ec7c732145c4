// Package firebase adapts the Firebase admin SDK: app construction, ID
// token verification, account creation, role claims and password resets.
package firebase

import (
	"context"
	"fmt"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config selects the Firebase project.
type Config struct {
	ProjectID string
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
}

// NewApp initialises the Firebase app.
func NewApp(ctx context.Context, cfg Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}

// AuthClient returns the app's auth client.
func AuthClient(ctx context.Context, app *firebase.App) (*auth.Client, error) {
	c, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return c, nil
}

// FirestoreClient returns the app's Firestore client.
func FirestoreClient(ctx context.Context, app *firebase.App) (*gcfirestore.Client, error) {
	c, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return c, nil
}
