package config

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

func signedKey(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("local-test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestValidateCredentials(t *testing.T) {
	serviceKey := func(t *testing.T) string {
		return signedKey(t, jwt.MapClaims{
			"role": "service_role",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
	}

	tests := []struct {
		name    string
		creds   supabase.Credentials
		wantErr bool
	}{
		{
			name:  "hosted project",
			creds: supabase.Credentials{Host: "https://xyz.supabase.co", ServiceKey: serviceKey(t)},
		},
		{
			name:  "local stack",
			creds: supabase.Credentials{Host: "http://localhost:54321", ServiceKey: serviceKey(t)},
		},
		{
			name:    "missing host",
			creds:   supabase.Credentials{ServiceKey: "k"},
			wantErr: true,
		},
		{
			name:    "relative host",
			creds:   supabase.Credentials{Host: "xyz.supabase.co", ServiceKey: "k"},
			wantErr: true,
		},
		{
			name:    "missing key",
			creds:   supabase.Credentials{Host: "https://xyz.supabase.co"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateCredentials(tt.creds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCredentials error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !model.IsValidationError(err) {
				t.Errorf("error should be a ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateCredentialsWarnsOnUnrecognizedHost(t *testing.T) {
	key := signedKey(t, jwt.MapClaims{"role": "service_role"})

	warnings, err := ValidateCredentials(supabase.Credentials{
		Host:       "https://api.example.com",
		ServiceKey: key,
	})
	if err != nil {
		t.Fatalf("ValidateCredentials error: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "api.example.com") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestInspectServiceKey(t *testing.T) {
	t.Run("clean service key", func(t *testing.T) {
		key := signedKey(t, jwt.MapClaims{
			"role": "service_role",
			"exp":  time.Now().Add(24 * time.Hour).Unix(),
		})
		if warnings := InspectServiceKey(key); len(warnings) != 0 {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("non-jwt key", func(t *testing.T) {
		warnings := InspectServiceKey("sb_secret_opaque_key")
		if len(warnings) != 1 || !strings.Contains(warnings[0], "not a JWT") {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("anon role", func(t *testing.T) {
		key := signedKey(t, jwt.MapClaims{"role": "anon"})
		warnings := InspectServiceKey(key)
		if len(warnings) != 1 || !strings.Contains(warnings[0], `"anon"`) {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("expired key", func(t *testing.T) {
		key := signedKey(t, jwt.MapClaims{
			"role": "service_role",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		warnings := InspectServiceKey(key)
		if len(warnings) != 1 || !strings.Contains(warnings[0], "expired") {
			t.Errorf("warnings = %v", warnings)
		}
	})
}
