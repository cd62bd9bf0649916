package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

func whoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the stored profile and the role carried by the token",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			s := a.client.Session()
			if !s.Authenticated() {
				fmt.Fprintln(a.out, "not logged in")
				return nil
			}

			out := struct {
				User      *goSession.Profile `json:"user"`
				Role      goSession.Role     `json:"role"`
				Home      string             `json:"home"`
				ExpiresAt string             `json:"expiresAt,omitempty"`
			}{
				User: s.User,
				Role: a.client.Role(),
				Home: a.client.HomePath(),
			}
			if claims, ok := a.client.Claims(); ok && claims.ExpiresAt != nil {
				out.ExpiresAt = claims.ExpiresAt.Time.Format(time.RFC3339)
			}
			return writeJSON(a, out)
		}),
	}
}

func requestCmd(opts *options) *cobra.Command {
	var (
		data    string
		query   []string
		headers []string
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Call the API with the session token",
		Long: `Send one API request with the stored access token.

A 401 refreshes the access token once (sharing the refresh with any
concurrent caller) and retries. The response body is printed as is.`,
		Example: `  skillup-session request GET /courses -q page=2
  skillup-session request POST /courses --data '{"title":"Go"}'`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			req := goSession.Request{
				Method: strings.ToUpper(args[0]),
				Path:   args[1],
			}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				req.Body = json.RawMessage(data)
			}
			if len(query) > 0 {
				req.Query = url.Values{}
				for _, kv := range query {
					k, v, _ := strings.Cut(kv, "=")
					req.Query.Add(k, v)
				}
			}
			for _, kv := range headers {
				k, v, ok := strings.Cut(kv, ":")
				if !ok {
					return fmt.Errorf("header %q must be Name: value", kv)
				}
				if req.Header == nil {
					req.Header = http.Header{}
				}
				req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			resp, err := a.client.Do(cmd.Context(), req)
			if resp != nil {
				printBody(a, resp.Body)
			}
			return err
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&data, "data", "d", "", "JSON request body")
	f.StringArrayVarP(&query, "query", "q", nil, "query parameter key=value (repeatable)")
	f.StringArrayVarP(&headers, "header", "H", nil, "extra header 'Name: value' (repeatable)")
	return cmd
}

func authorizeCmd(opts *options) *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "authorize PATH",
		Short: "Check whether the session may open a client route",
		Long: `Check PATH against the route table, or against --role when given.

Prints "allow" or "redirect <path>".`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var d goSession.Decision
			if len(roles) > 0 {
				allowed := make([]goSession.Role, 0, len(roles))
				for _, r := range roles {
					allowed = append(allowed, goSession.Role(r))
				}
				d = a.client.Authorize(allowed...)
			} else {
				d = a.client.AuthorizePath(args[0])
			}
			fmt.Fprintln(a.out, d.String())
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "allowed roles instead of the route table")
	return cmd
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBody(a *app, body []byte) {
	if len(body) == 0 {
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, body, "", "  ") == nil {
		buf.WriteByte('\n')
		_, _ = a.out.Write(buf.Bytes())
		return
	}
	_, _ = a.out.Write(body)
	fmt.Fprintln(a.out)
}
