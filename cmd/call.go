package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/tickview/internal/ticktick"
)

func newCallCmd() *cobra.Command {
	var (
		method    string
		bodyJSON  string
		token     string
		params    []string
		debugMode bool
	)

	cmd := &cobra.Command{
		Use:   "call PATH",
		Short: "Make an ad-hoc authenticated call against the TickTick API",
		Long: `Issue a single authenticated request against the TickTick Open API and
print the response. Intended for exploring the API by hand.

The access token is taken from --token, or from the TICKTICK_ACCESS_TOKEN /
TT_ACCESS_TOKEN environment variables. Without a token the command fails
before any network call is made.

Examples:
  tickview call /project
  tickview call /project/inbox123/data
  tickview call /task --param projectId=inbox123
  tickview call /task --method POST --body '{"title":"new task"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(debugMode)

			if token == "" {
				token = ticktick.AccessTokenFromEnv()
			}

			return runCall(cmd, args[0], method, bodyJSON, token, params)
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method to use")
	cmd.Flags().StringVar(&bodyJSON, "body", "", "JSON request body")
	cmd.Flags().StringVar(&token, "token", "", "TickTick access token. Can also use TICKTICK_ACCESS_TOKEN or TT_ACCESS_TOKEN env vars.")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

// parseParams converts repeated key=value flags into query parameters.
func parseParams(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		values.Add(key, value)
	}
	return values, nil
}

func runCall(cmd *cobra.Command, path, method, bodyJSON, token string, params []string) error {
	values, err := parseParams(params)
	if err != nil {
		return err
	}

	var body any
	if bodyJSON != "" {
		if err := json.Unmarshal([]byte(bodyJSON), &body); err != nil {
			return fmt.Errorf("invalid --body, expected JSON: %w", err)
		}
	}

	client := ticktick.NewClient(token)

	response, err := client.Call(cmd.Context(), method, path, values, body)
	if err != nil {
		var apiErr *ticktick.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "request failed with status %d\n%s\n", apiErr.StatusCode, apiErr.Body)
			// Suppress the duplicate error line cobra would print
			cmd.SilenceErrors = true
			return err
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatResponse(response))
	return nil
}

// formatResponse pretty-prints JSON responses and passes everything else
// through untouched.
func formatResponse(response []byte) string {
	trimmed := bytes.TrimSpace(response)
	if len(trimmed) == 0 {
		return "(empty response)"
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return pretty.String()
}
