package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/auth"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/rest"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with NEXORI_EMAIL/NEXORI_PASSWORD and print the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}
		fc, err := loadFileConfig(cfgFile)
		if err != nil {
			return err
		}
		api := rest.NewClient(fc.Server.APIURL)
		gate := auth.NewGate()
		if err := signIn(cmd.Context(), api, gate, envCredentials()); err != nil {
			return err
		}
		token, err := gate.Token(cmd.Context())
		if err != nil {
			return err
		}
		s := gate.Session()
		fmt.Fprintf(cmd.ErrOrStderr(), "signed in as %s (%s)\n", s.UserName, s.Role)
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// signIn fills gate from NEXORI_TOKEN or, failing that, a REST login, and
// hands the resulting token to api.
func signIn(ctx context.Context, api *rest.Client, gate *auth.Gate, creds credentials) error {
	token := creds.Token
	if token == "" {
		if creds.Email == "" || creds.Password == "" {
			return nexori.ErrMissingCredential
		}
		if api == nil {
			return nexori.NewError(nexori.ErrorInvalidConfig, "server.api_url is required to log in")
		}
		resp, err := api.Login(ctx, rest.LoginRequest{Email: creds.Email, Password: creds.Password})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		token = resp.Token
	}
	if _, err := gate.SetToken(token); err != nil {
		return err
	}
	if api != nil {
		api.SetToken(token)
	}
	return nil
}
