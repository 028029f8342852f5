// Package api provides the authenticated HTTP client for the cookbook API.
//
// # Overview
//
// Every endpoint wrapper returns a Result[T]: either Kind is KindOK and Value
// holds the decoded payload, or Problem classifies the failure into a closed
// set of kinds (timeout, cannot-connect, server, unauthorized, notallowed,
// forbidden, not-found, conflict, rejected, unknown, bad-data). Wrappers never
// return a separate error.
//
// # Architecture
//
//   - fetch.go: FetchWithTimeout, a per-call deadline around a Doer
//   - problem.go: ClassifyStatus and ClassifyError
//   - client.go: Client.Send, bearer attachment and refresh-and-retry
//   - result.go: Result[T] and the response/error mappers
//   - users.go, cookbooks.go, recipes.go, memberships.go, invitations.go,
//     images.go: endpoint wrappers
//   - token.go: unverified JWT inspection for display
//
// # Authentication
//
// Requests carry "Authorization: Bearer <access token>" read from the
// credentials.Store at dispatch time, except for paths on the unprotected
// allow-list (login, register, confirmation and password reset), which are
// matched exactly and case-insensitively.
//
// When an authenticated request is answered with 401, the client posts the
// stored refresh token to /Users/refresh on the host URL (the API URL with
// any trailing /api removed), saves the new pair, and retries the original
// request once. If no refresh token is stored or the refresh is rejected, the
// handler registered with OnSessionExpired runs and the original 401 is
// returned, which maps to KindUnauthorized.
//
//	client, err := api.NewClient(api.Options{
//		APIURL: "https://cookbook.example.com/api",
//		Tokens: store,
//	})
//	if err != nil {
//		return err
//	}
//	client.OnSessionExpired(func() { state.MarkSessionExpired() })
//
//	res := client.CreateCookbook(ctx, api.CreateCookbookInput{Title: "Sunday Roasts"})
//	if !res.IsOK() {
//		return res.Problem
//	}
//	fmt.Println(res.Value.CookbookID)
//
// # Timeouts and Cancellation
//
// Each network call (original, refresh, retry) gets its own deadline, 10s by
// default. A deadline that fires yields KindTimeout. Cancelling the caller's
// context yields a Result whose Canceled method reports true; it carries no
// Problem and should be discarded.
//
// # Refresh Coalescing
//
// By default each request that receives a 401 refreshes on its own. With
// Options.CoalesceRefresh, concurrent refreshes share one call.
package api
