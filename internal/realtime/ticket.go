package realtime

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// TicketTTL is how long a realtime ticket may be used to open a socket
const TicketTTL = 60 * time.Second

const ticketIssuer = "dashcraft-realtime"

var ErrInvalidTicket = errors.New("invalid realtime ticket")

// IssueTicket signs a short-lived ticket naming userID
func IssueTicket(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := gojwt.RegisteredClaims{
		Issuer:    ticketIssuer,
		Subject:   userID,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign ticket: %w", err)
	}
	return signed, nil
}

// ParseTicket verifies a ticket and returns the user it names
func ParseTicket(secret []byte, ticket string) (string, error) {
	claims := &gojwt.RegisteredClaims{}
	_, err := gojwt.ParseWithClaims(ticket, claims, func(t *gojwt.Token) (interface{}, error) {
		return secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(ticketIssuer),
		gojwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidTicket
	}
	return claims.Subject, nil
}
