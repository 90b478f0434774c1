package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ErrInvalidToken is returned when a bearer token resolves to no owner.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to an owner identity. Token issuance
// and account management live outside this service.
type Verifier interface {
	Verify(token string) (string, error)
}

// StaticVerifier resolves tokens from a fixed map, typically loaded from
// configuration.
type StaticVerifier struct {
	tokens map[string]string
}

// NewStaticVerifier creates a verifier over a token -> owner map.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

// Verify resolves a token to its owner.
func (v *StaticVerifier) Verify(token string) (string, error) {
	owner, ok := v.tokens[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return owner, nil
}

const ownerLocal = "owner"

// Middleware authenticates the request via the Authorization header and
// stashes the resolved owner in the request locals.
func Middleware(verifier Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
				"code":  "ERR_UNAUTHORIZED",
			})
		}

		owner, err := verifier.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
				"code":  "ERR_UNAUTHORIZED",
			})
		}

		c.Locals(ownerLocal, owner)
		return c.Next()
	}
}

// Owner returns the authenticated owner for the request. Empty outside
// the middleware.
func Owner(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerLocal).(string)
	return owner
}
