package goSession

import (
	"fmt"
	"net/url"
)

// ParseProviderCallback extracts access_token and refresh_token from a provider
// redirect such as "fintrack://auth/callback?access_token=..&refresh_token=..".
//
// When a parameter is repeated the first value wins. A missing or empty value, or an
// unparsable URL, yields ErrMalformedCallback.
func ParseProviderCallback(rawURL string) (accessToken, refreshToken string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	accessToken = query.Get("access_token")
	if accessToken == "" {
		return "", "", fmt.Errorf("%w: missing access_token", ErrMalformedCallback)
	}
	refreshToken = query.Get("refresh_token")
	if refreshToken == "" {
		return "", "", fmt.Errorf("%w: missing refresh_token", ErrMalformedCallback)
	}
	return accessToken, refreshToken, nil
}
