package http

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"orghierarchy/src/domain"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// CallerClaims são as claims esperadas no token. A emissão do token fica fora deste serviço.
type CallerClaims struct {
	OrganizationID string   `json:"organization_id"`
	Role           string   `json:"role"`
	Branches       []string `json:"branches"`
	jwt.RegisteredClaims
}

// TokenParser valida tokens HS256 e os converte em domain.CallerContext.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	return &TokenParser{secret: []byte(secret)}
}

func (p *TokenParser) Parse(tokenString string) (domain.CallerContext, error) {
	claims := &CallerClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.CallerContext{}, ErrExpiredToken
		}
		return domain.CallerContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.OrganizationID == "" {
		return domain.CallerContext{}, ErrInvalidToken
	}

	return domain.CallerContext{
		OrganizationID:     claims.OrganizationID,
		UserID:             claims.Subject,
		Role:               domain.Role(claims.Role),
		AllowedBranchNames: claims.Branches,
	}, nil
}
