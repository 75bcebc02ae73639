package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// ContextKey is the key type for context values
type ContextKey string

const (
	// AddressKey is the context key for the authenticated wallet address
	AddressKey ContextKey = "wallet_address"
)

// Request headers carrying the auth proof.
const (
	HeaderAddress   = "X-Wallet-Address"
	HeaderTimestamp = "X-Auth-Timestamp"
	HeaderSignature = "X-Auth-Signature"
)

// maxAuthAge bounds how old a signed timestamp may be.
const maxAuthAge = 24 * time.Hour

// ValidateSignature checks the HMAC-SHA256 proof for a wallet address. The
// signature covers "address:timestamp" keyed with the shared API secret, and
// the timestamp must be recent.
func ValidateSignature(address, timestampStr, signature string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty address")
	}
	if signature == "" {
		return "", fmt.Errorf("empty signature")
	}

	secret := os.Getenv("API_AUTH_SECRET")
	if secret == "" {
		return "", fmt.Errorf("API_AUTH_SECRET not set")
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid timestamp format")
	}

	now := time.Now().Unix()
	if now-timestamp > int64(maxAuthAge.Seconds()) {
		return "", fmt.Errorf("timestamp is too old")
	}

	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%s:%s", address, timestampStr)
	expected := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", fmt.Errorf("invalid signature")
	}

	return address, nil
}

// Middleware returns an HTTP middleware that validates the wallet auth
// headers on API routes.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for non-API routes (static files)
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		// Health checks and public reads stay open.
		if r.URL.Path == "/api/ping" || (r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/matches")) {
			next.ServeHTTP(w, r)
			return
		}

		address := r.Header.Get(HeaderAddress)
		if address == "" {
			http.Error(w, "Unauthorized: missing X-Wallet-Address header", http.StatusUnauthorized)
			return
		}

		addr, err := ValidateSignature(address, r.Header.Get(HeaderTimestamp), r.Header.Get(HeaderSignature))
		if err != nil {
			log.Printf("Auth failed for %s: %v", address, err)
			http.Error(w, "Unauthorized: invalid signature", http.StatusUnauthorized)
			return
		}

		ctx := contextWithAddress(r.Context(), addr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// contextWithAddress adds the wallet address to the context
func contextWithAddress(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, AddressKey, address)
}

// GetAddressFromContext retrieves the wallet address from the context
func GetAddressFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(AddressKey).(string)
	return address, ok
}

// Sign computes the auth signature for an address and timestamp. Used by
// tests and client tooling.
func Sign(secret, address string, timestamp int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%s:%d", address, timestamp)
	return hex.EncodeToString(h.Sum(nil))
}
