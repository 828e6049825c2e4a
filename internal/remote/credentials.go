package remote

import (
	"net/http"
)

// Credentials attaches the caller's session to an outgoing request. The
// client never decides how a session travels; whoever builds it does.
type Credentials interface {
	Apply(*http.Request)
}

// BearerToken sends the token returned by the func as an Authorization
// header. The func is read on every request, so a refreshed token is picked
// up without rebuilding the client.
type BearerToken func() string

func (b BearerToken) Apply(r *http.Request) {
	if b == nil {
		return
	}
	if token := b(); token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// SessionCookie forwards the session as a cookie, the way a credentialed
// browser fetch would.
type SessionCookie struct {
	Name  string
	Value func() string
}

func (s SessionCookie) Apply(r *http.Request) {
	if s.Value == nil {
		return
	}
	if v := s.Value(); v != "" {
		r.AddCookie(&http.Cookie{Name: s.Name, Value: v})
	}
}

const (
	TransportBearer = "bearer"
	TransportCookie = "cookie"

	// TokenCookieName is the cookie holding the API token, both in the
	// browser and when forwarded to the API.
	TokenCookieName = "token"
)

// CredentialsFor picks the transport configured for the deployment.
func CredentialsFor(transport string, token func() string) Credentials {
	if transport == TransportCookie {
		return SessionCookie{Name: TokenCookieName, Value: token}
	}
	return BearerToken(token)
}
