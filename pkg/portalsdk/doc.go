/*
Package portalsdk holds the wire types of the farmer portal API together with a
small Go client.

The request types carry their own Validate methods so the server and any Go
caller apply the same field rules before a request is sent or processed.

# Client vs Session

A Client talks to the public endpoints (health, OTP, registration, login).
Logging in returns a Session that attaches the bearer token to every call:

	client := portalsdk.NewClient("http://localhost:8080")

	if _, err := client.RequestOTP(ctx, portalsdk.RequestOTPRequest{Email: email, FullName: name}); err != nil {
		return err
	}

	session, login, err := client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: email, Password: pw})
	if err != nil {
		var apiErr *portalsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Status == portalsdk.AccountStatusPending {
			// awaiting approval
		}
		return err
	}
	profile, err := session.Profile(ctx)

Admin sessions come from AdminLogin and expose the approval workflow,
subsidy and notification management.
*/
package portalsdk
