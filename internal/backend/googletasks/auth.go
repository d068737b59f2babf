package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"taskman/internal/config"
	"taskman/internal/service"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

// ErrNoOAuthClient is returned by Login when oauth_client.json is missing.
var ErrNoOAuthClient = errors.New("oauth_client.json not found")

// Authenticator implements service.Authenticator with the installed-app
// OAuth flow. Email and password are ignored; the user signs in through the
// browser and the resulting token, JSON encoded, becomes the session token.
type Authenticator struct {
	cfg    *config.Config
	prompt io.Writer
}

// NewAuthenticator returns an Authenticator printing the consent URL to prompt.
func NewAuthenticator(cfg *config.Config, prompt io.Writer) *Authenticator {
	if prompt == nil {
		prompt = io.Discard
	}
	return &Authenticator{cfg: cfg, prompt: prompt}
}

// Login implements service.Authenticator.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	if !a.cfg.HasOAuthClient() {
		PrintSetupHelp(a.prompt, a.cfg.Dir)
		return "", fmt.Errorf("%w in %s", ErrNoOAuthClient, a.cfg.Dir)
	}

	clientJSON, err := os.ReadFile(a.cfg.OAuthClientPath())
	if err != nil {
		return "", fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return "", fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		return "", fmt.Errorf("could not bind to local port for OAuth callback: %w", err)
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	// PKCE
	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(a.prompt, "Open this URL in your browser:")
	fmt.Fprintln(a.prompt, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- fmt.Errorf("%w: no code in callback", service.ErrInvalidCredentials)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		codeCh <- code
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return "", err
	case <-time.After(oauthCallbackTimeout):
		return "", fmt.Errorf("%w: oauth callback timed out", service.ErrUnreachable)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return "", fmt.Errorf("%w: %v", service.ErrInvalidCredentials, err)
		}
		return "", fmt.Errorf("%w: failed to exchange code for token: %v", service.ErrUnreachable, err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Register implements service.Authenticator. Google accounts are created
// elsewhere.
func (a *Authenticator) Register(ctx context.Context, req service.RegisterRequest) error {
	return fmt.Errorf("%w: register with the google backend", service.ErrUnsupported)
}

// PrintSetupHelp explains how to obtain oauth_client.json.
func PrintSetupHelp(w io.Writer, dir string) {
	fmt.Fprintf(w, "oauth_client.json not found in %s\n\n", dir)
	fmt.Fprintln(w, "To use the Google Tasks backend, you need OAuth credentials:")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(w, "2. Create a project (or select an existing one)")
	fmt.Fprintln(w, "3. Enable the Google Tasks API:")
	fmt.Fprintln(w, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	fmt.Fprintln(w, "4. Create OAuth 2.0 credentials:")
	fmt.Fprintln(w, "   - Click 'Create Credentials' > 'OAuth client ID'")
	fmt.Fprintln(w, "   - Choose 'Desktop app' as application type")
	fmt.Fprintln(w, "   - Download the JSON file")
	fmt.Fprintln(w, "5. Save it as:")
	fmt.Fprintf(w, "   %s/oauth_client.json\n", dir)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Then run 'taskman login' again.")
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}
