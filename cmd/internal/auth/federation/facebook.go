package federation

import (
	"encoding/json"
	"strings"

	"golang.org/x/oauth2/facebook"

	"authsvc/cmd/identity"
)

const facebookProfileURL = "https://graph.facebook.com/me?fields=id,email,first_name,last_name"

type facebookUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// NewFacebook returns a Provider for Facebook login (scope: email).
// Accounts without a confirmed email come back without one and fail with ErrMissingEmail.
func NewFacebook(cfg ProviderConfig) Provider {
	return newOAuthProvider(
		identity.ProviderFacebook,
		cfg,
		facebook.Endpoint,
		[]string{"email"},
		facebookProfileURL,
		parseFacebookProfile,
	)
}

func parseFacebookProfile(body []byte) (Profile, error) {
	var u facebookUser
	if err := json.Unmarshal(body, &u); err != nil {
		return Profile{}, err
	}
	return Profile{
		ProviderID: u.ID,
		Email:      u.Email,
		Name:       strings.TrimSpace(u.FirstName + " " + u.LastName),
	}, nil
}
