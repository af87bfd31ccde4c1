// Package connections derives third-party account connection status from the
// session record and the request cookie jar.
package connections

import (
	"encoding/json"
	"net/http"
	"net/url"

	"launchpad/student-portal/onboarding-backend/internal/auth"
)

// FallbackCookieName is the cookie written by the LinkedIn OAuth callback
// when the redirect lands before the session has been reissued.
const FallbackCookieName = "linkedin_profile"

// Status is the derived connection state for the third-party accounts. It is
// recomputed on every request and never persisted by this service.
type Status struct {
	GitHubConnected   bool   `json:"github_connected"`
	GitHubUsername    string `json:"github_username,omitempty"`
	LinkedInConnected bool   `json:"linkedin_connected"`
	LinkedInHandle    string `json:"linkedin_handle,omitempty"`
	// FromFallback is set when the LinkedIn state came from the fallback
	// cookie rather than the session, so the caller knows the cookie still
	// needs to be consumed.
	FromFallback bool `json:"-"`
}

// linkedInProfile is the JSON fragment carried by the fallback cookie. Shape
// is untrusted input; anything that does not parse is ignored.
type linkedInProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Resolve computes the connection status from the session and cookies.
//
// GitHub needs no fallback: its redirect refreshes the session before any
// page using this resolver loads. LinkedIn renders optimistically from the
// fallback cookie while the session catches up. Resolve performs no writes;
// clearing the consumed cookie is the caller's job.
func Resolve(session auth.Session, cookies []*http.Cookie) Status {
	status := Status{}

	if session.AccountHandle != "" {
		status.GitHubConnected = true
		status.GitHubUsername = session.AccountHandle
	}

	if session.LinkedAccountID != "" {
		status.LinkedInConnected = true
		status.LinkedInHandle = session.LinkedAccountName
		return status
	}

	if profile, ok := fallbackProfile(cookies); ok {
		status.LinkedInConnected = true
		status.LinkedInHandle = profile.Name
		status.FromFallback = true
	}

	return status
}

// fallbackProfile reads the LinkedIn fallback cookie. Malformed JSON means
// not connected, never an error.
func fallbackProfile(cookies []*http.Cookie) (linkedInProfile, bool) {
	for _, cookie := range cookies {
		if cookie.Name != FallbackCookieName || cookie.Value == "" {
			continue
		}
		raw, err := decodeCookieValue(cookie.Value)
		if err != nil {
			return linkedInProfile{}, false
		}
		var profile linkedInProfile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			return linkedInProfile{}, false
		}
		return profile, true
	}
	return linkedInProfile{}, false
}

// decodeCookieValue handles the URL-encoding the callback applies so the JSON
// fragment survives cookie value restrictions.
func decodeCookieValue(value string) (string, error) {
	return url.QueryUnescape(value)
}
