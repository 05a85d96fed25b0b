package cmd

import (
	"context"

	"github.com/tesserabio/tessera-cli/pkg/auth"
	"github.com/tesserabio/tessera-cli/pkg/auth/store"
	"github.com/tesserabio/tessera-cli/pkg/client"
	"github.com/tesserabio/tessera-cli/pkg/config"
	"github.com/tesserabio/tessera-cli/pkg/version"
)

// buildSession wires the credential store and OAuth client for the
// resolved environment. A refresh token supplied via --refresh-token or
// TESSCTL_REFRESH_TOKEN bootstraps the session without the browser flow.
func buildSession(ctx context.Context, rt *runtimeState) (*auth.Session, error) {
	ep, err := rt.ResolveEndpoints()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(rt.Logger(), rt.TokenStorage(), config.DefaultCredentialsDir())
	if err != nil {
		return nil, &Error{Code: CodeStorageError, Err: err}
	}
	oauthClient, err := auth.NewOAuthClient(ctx, auth.ProviderConfig{
		Authority: ep.Authority,
		AuthURL:   ep.AuthURL,
		TokenURL:  ep.TokenURL,
		ClientID:  ep.ClientID,
		Scopes:    ep.Scopes,
		Audience:  ep.Audience,
		CAFile:    ep.CAFile,
	})
	if err != nil {
		return nil, &Error{Code: CodeConfigError, Err: err}
	}
	return auth.NewSession(auth.SessionOptions{
		Store:                 st,
		OAuth:                 oauthClient,
		Key:                   store.Key{Environment: string(ep.Environment), Account: rt.Account()},
		Interactive:           !rt.nonInteractive,
		BootstrapRefreshToken: rt.refreshTokenOverride,
		Log:                   rt.Logger(),
		Output:                rt.Writer(),
	}), nil
}

func buildClient(ctx context.Context, rt *runtimeState) (*client.Client, error) {
	ep, err := rt.ResolveEndpoints()
	if err != nil {
		return nil, err
	}
	session, err := buildSession(ctx, rt)
	if err != nil {
		return nil, err
	}
	options := []client.Option{
		client.WithServer(ep.APIURL),
		client.WithTokenSource(session),
		client.WithUserAgent("tessctl/" + version.Version),
	}
	if ep.CAFile != "" {
		options = append(options, client.WithTLSConfig(ep.CAFile, false))
	}
	return client.New(options...)
}
