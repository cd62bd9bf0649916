package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

const envPassword = "SKILLUP_PASSWORD"

func loginCmd(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login IDENTIFIER",
		Short: "Log in with an email or username",
		Long: `Log in and store the session.

The password is taken from --password, then $` + envPassword + `, then the
first line of stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			pw, err := resolvePassword(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			profile, err := a.client.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in as %s (%s)\n", profile.Username, a.client.Role())
			fmt.Fprintf(a.out, "home: %s\n", a.client.HomePath())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func signupCmd(opts *options) *cobra.Command {
	var req goSession.SignUpRequest
	var role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new learner or instructor account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			pw, err := resolvePassword(req.Password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req.Password = pw
			req.Role = goSession.Role(role)
			if err := a.client.SignUp(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "account %s created, log in to continue\n", req.Username)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Username, "username", "", "username")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVarP(&req.Password, "password", "p", "", "password")
	f.StringVar(&req.Avatar, "avatar", "", "avatar URL")
	f.StringVar(&role, "role", string(goSession.RoleLearner), "learner or instructor")
	return cmd
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "logged out")
			return nil
		}),
	}
}

func refreshCmd(opts *options) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Obtain a new access token with the stored refresh cookie",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			token, err := a.client.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if show {
				fmt.Fprintln(a.out, token)
				return nil
			}
			fmt.Fprintln(a.out, "access token refreshed")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&show, "show-token", false, "print the new access token")
	return cmd
}

func forgotPasswordCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password EMAIL",
		Short: "Request a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.client.ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "reset link sent")
			return nil
		}),
	}
}

func resetPasswordCmd(opts *options) *cobra.Command {
	var password, confirm string

	cmd := &cobra.Command{
		Use:   "reset-password TOKEN",
		Short: "Set a new password with the token from a reset link",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if confirm == "" {
				confirm = password
			}
			if err := a.client.ResetPassword(cmd.Context(), args[0], password, confirm); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "password updated, log in with the new password")
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func resolvePassword(flag string, stdin io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(envPassword); env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required")
	}
	return line, nil
}
