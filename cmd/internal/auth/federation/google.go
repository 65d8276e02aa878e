package federation

import (
	"encoding/json"

	"golang.org/x/oauth2/google"

	"authsvc/cmd/identity"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewGoogle returns a Provider for Google sign-in (scopes: openid email profile).
func NewGoogle(cfg ProviderConfig) Provider {
	return newOAuthProvider(
		identity.ProviderGoogle,
		cfg,
		google.Endpoint,
		[]string{"openid", "email", "profile"},
		googleUserInfoURL,
		parseGoogleProfile,
	)
}

func parseGoogleProfile(body []byte) (Profile, error) {
	var u googleUserInfo
	if err := json.Unmarshal(body, &u); err != nil {
		return Profile{}, err
	}
	// An unverified address must never be linked to an existing identity.
	if u.Email != "" && !u.EmailVerified {
		return Profile{}, ErrUnverifiedEmail
	}
	return Profile{ProviderID: u.Sub, Email: u.Email, Name: u.Name}, nil
}
