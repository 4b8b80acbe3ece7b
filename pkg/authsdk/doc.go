/*
Package authsdk is the client SDK for campus authentication, plus the wire
types and error bodies shared by the campus services.

# SDKClient vs Session

  - SDKClient: unauthenticated calls (login, refresh, logout, health)
  - Session: a logged-in caller; sends the access token as a bearer
    credential and refreshes once on 401

Point the client at the gateway; /auth/** is routed to the auth service:

	client := authsdk.NewSDKClient("https://campus.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "alice", "s3cret", "ADMIN")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			// wrong password, unknown user, or role not granted
		}
	}

	var me authsdk.UserResponse
	err = session.GetJSON(ctx, "/api/user/me", &me)

	err = session.Logout(ctx, false)

# Errors

Every service answers failures with the same body:

	{"error": "invalid_grant", "error_description": "invalid credentials"}

which the SDK returns as *APIError. Login failures are deliberately
indistinguishable. Backends behind the trust relay answer a forged or missing
internal secret with a bare 403; the SDK reports that as an APIError with
code server_error and the HTTP status text.
*/
package authsdk
