// Package token inspects access credentials minted by the directory.
package token

import (
	"errors"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken indicates the credential is not a parseable JWT; its tenant
// scope cannot be determined locally.
var ErrOpaqueToken = errors.New("credential is not a parseable JWT")

// TenantScope extracts the tenant claim from a JWT access credential without
// verifying the signature. Verification belongs to the resource servers; the
// console only uses the claim to cross-check that a freshly minted credential
// is scoped to the tenant it just switched to.
func TenantScope(rawToken string) (string, error) {
	if strings.TrimSpace(rawToken) == "" {
		return "", ErrOpaqueToken
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return "", ErrOpaqueToken
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", ErrOpaqueToken
	}

	tenantID, _ := claims["tenant"].(string)
	return tenantID, nil
}
