// Package ticktick provides OAuth2 authentication and a client for the
// TickTick Open API.
//
// This package handles the three-leg OAuth2 authorization-code grant against
// TickTick and exposes a thin REST client for the endpoints the application
// consumes:
//   - Listing projects (/project)
//   - Listing tasks by project (/task?projectId=...)
//   - Fetching project data including tasks (/project/{id}/data)
//   - Arbitrary authenticated calls for the playground command
//
// # Authentication
//
// Credentials are read from the environment, accepting both the TICKTICK_*
// and the shorter TT_* naming conventions. The flow is strictly linear:
// build the consent URL, receive the code on the callback, exchange it for
// an access token. There is no refresh-token handling; an expired token
// means the user reconnects.
//
// TickTick historically answers the token exchange on two hosts
// (ticktick.com and api.ticktick.com); Exchange tries both in order and
// surfaces the provider's error body verbatim when neither succeeds.
//
// # Example Usage
//
//	flow := ticktick.NewOAuthFlow(ticktick.CredentialsFromEnv())
//	url, err := flow.AuthCodeURL(state)
//	// ... redirect the user, receive the callback ...
//	code, err := ticktick.CodeFromCallback(r.URL.Query())
//	token, err := flow.Exchange(ctx, code)
//
//	client := ticktick.NewClient(token)
//	inboxID, tasks, err := client.InboxTasks(ctx)
package ticktick
