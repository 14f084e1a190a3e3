// Package config handles backend credentials: shape validation, service-key
// inspection, and the CLI's named profile store.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

// recognizedHostSuffixes are domains that identify a hosted backend.
var recognizedHostSuffixes = []string{".supabase.co", ".supabase.in"}

// ValidateCredentials checks the credential shape: the host must be a
// parsable absolute URL and the service key must be present. The returned
// warnings are non-fatal observations (unrecognized host domain, key
// expiry) the caller may surface.
func ValidateCredentials(creds supabase.Credentials) ([]string, error) {
	if creds.Host == "" {
		return nil, model.NewValidationError("host", "host URL is required")
	}
	u, err := url.Parse(creds.Host)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, model.Validationf("host", "host %q is not a valid absolute URL", creds.Host)
	}
	if creds.ServiceKey == "" {
		return nil, model.NewValidationError("serviceKey", "API key is required")
	}

	var warnings []string
	if !recognizedHost(u.Hostname()) {
		warnings = append(warnings,
			fmt.Sprintf("host %q does not look like a recognized backend domain or a local host", u.Hostname()))
	}
	warnings = append(warnings, InspectServiceKey(creds.ServiceKey)...)
	return warnings, nil
}

func recognizedHost(hostname string) bool {
	for _, suffix := range recognizedHostSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return true
		}
	}
	switch hostname {
	case "localhost", "127.0.0.1", "::1", "host.docker.internal":
		return true
	}
	return strings.HasSuffix(hostname, ".local") || strings.HasSuffix(hostname, ".internal")
}

// InspectServiceKey parses the service key as a JWT without verifying the
// signature (the signing secret belongs to the backend) and returns
// warning-level findings: a non-JWT key, a non-service role, or an expired
// key. An empty result means nothing noteworthy.
func InspectServiceKey(key string) []string {
	var warnings []string

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(key, claims); err != nil {
		return []string{"API key is not a JWT; row-level security behavior depends on the backend's key format"}
	}

	if role, _ := claims["role"].(string); role != "" && role != "service_role" {
		warnings = append(warnings,
			fmt.Sprintf("API key has role %q; row-level security policies will apply to every operation", role))
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		warnings = append(warnings, fmt.Sprintf("API key expired at %s", exp.Format(time.RFC3339)))
	}
	return warnings
}
