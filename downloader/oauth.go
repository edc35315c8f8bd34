package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"boxfetch/internal"
	"boxfetch/utils"
)

const (
	tokenURL     = "https://api.box.com/oauth2/token"
	authorizeURL = "https://account.box.com/api/oauth2/authorize"

	// The redirect target is never actually served; the user copies the code
	// out of the browser's address bar after Box redirects there.
	redirectURI = "https://localhost"
)

// OAuthExchanger swaps an authorization code for an access token. It performs
// a single exchange per call: authorization codes are single-use, so a failed
// exchange is never retried.
type OAuthExchanger struct {
	client   *utils.HTTPClient
	tokenURL string
}

// NewOAuthExchanger creates an exchanger backed by the given HTTP client.
func NewOAuthExchanger(client *utils.HTTPClient) *OAuthExchanger {
	return &OAuthExchanger{client: client, tokenURL: tokenURL}
}

// tokenErrorResponse is the error shape the token endpoint returns
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange implements internal.TokenExchanger.
func (e *OAuthExchanger) Exchange(ctx context.Context, clientID, clientSecret, code string) (*internal.OAuthToken, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"redirect_uri":  {redirectURI},
	}

	resp, err := e.client.PostForm(ctx, e.tokenURL, form)
	if err != nil {
		return nil, internal.NewNetworkFailureError("token exchange", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, internal.NewNetworkFailureError("token response read", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to token parsing below
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		message := "authorization code rejected"
		var parsed tokenErrorResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.ErrorDescription != "" {
			message = parsed.ErrorDescription
		}
		return nil, internal.NewBoxError(resp.StatusCode, message, internal.ErrInvalidGrant)
	default:
		return nil, internal.NewBoxError(resp.StatusCode, "unexpected status from token endpoint", internal.ErrInvalidResponse)
	}

	var token internal.OAuthToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, internal.NewBoxError(resp.StatusCode, fmt.Sprintf("malformed token response: %v", err), internal.ErrInvalidResponse)
	}
	if token.AccessToken == "" {
		return nil, internal.NewBoxError(resp.StatusCode, "token response carried no access token", internal.ErrInvalidResponse)
	}

	internal.LogInfo("Token exchange succeeded (expires in %d seconds)", token.ExpiresIn)
	return &token, nil
}

// AuthorizeURL returns the browser URL where the user grants access and
// receives an authorization code.
func AuthorizeURL(clientID string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
	}
	return authorizeURL + "?" + params.Encode()
}
