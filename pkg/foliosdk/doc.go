/*
Package foliosdk provides a client for the folio portfolio REST API.

# Client vs Session

Public endpoints hang off Client. Anything done on behalf of a user goes
through a Session, which forwards the user's bearer token unchanged:

	client := foliosdk.NewClient("https://api.folio.example")

	// Anonymous view of a published portfolio
	pub, err := client.GetPublicPortfolio(ctx, "jane")

	// Authenticated operations
	session := client.Session(accessToken)
	p, err := session.CreatePortfolio(ctx, foliosdk.PortfolioInput{Title: "Jane", Slug: "jane"})
	proj, err := session.CreateProject(ctx, p.ID, foliosdk.ProjectInput{Title: "Folio"})

# Errors

Every non-2xx response is returned as *APIError. Use IsUnauthorized,
IsConflict and IsTransient rather than matching status codes directly:

	if foliosdk.IsUnauthorized(err) {
		// the caller's token expired; send them back to login
	}

Transport failures (DNS, refused connections, timeouts) are plain wrapped
errors and count as transient.
*/
package foliosdk
