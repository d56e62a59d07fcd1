package http_test

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	api "orghierarchy/src/adapters/http"
	"orghierarchy/src/domain"
)

const testSecret = "test-secret"

func signToken(claims api.CallerClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	Expect(err).NotTo(HaveOccurred())
	return signed
}

func claimsFor(organizationID string, role domain.Role, branches ...string) api.CallerClaims {
	return api.CallerClaims{
		OrganizationID: organizationID,
		Role:           string(role),
		Branches:       branches,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

var _ = Describe("TokenParser", func() {
	var parser *api.TokenParser

	BeforeEach(func() {
		parser = api.NewTokenParser(testSecret)
	})

	It("converts the claims into a caller context", func() {
		// ARRANGE
		token := signToken(claimsFor("O1", domain.RoleManager, "Filial Norte"))

		// ACT
		caller, err := parser.Parse(token)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(caller).To(Equal(domain.CallerContext{
			OrganizationID:     "O1",
			UserID:             "user-1",
			Role:               domain.RoleManager,
			AllowedBranchNames: []string{"Filial Norte"},
		}))
	})

	It("rejects expired tokens", func() {
		claims := claimsFor("O1", domain.RoleAdmin)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

		_, err := parser.Parse(signToken(claims))

		Expect(err).To(MatchError(api.ErrExpiredToken))
	})

	It("rejects tokens signed with another secret", func() {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsFor("O1", domain.RoleAdmin))
		signed, err := token.SignedString([]byte("other-secret"))
		Expect(err).NotTo(HaveOccurred())

		_, err = parser.Parse(signed)

		Expect(err).To(MatchError(api.ErrInvalidToken))
	})

	It("rejects unsigned tokens", func() {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, claimsFor("O1", domain.RoleAdmin))
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		Expect(err).NotTo(HaveOccurred())

		_, err = parser.Parse(signed)

		Expect(err).To(MatchError(api.ErrInvalidToken))
	})

	It("rejects tokens without organization", func() {
		_, err := parser.Parse(signToken(claimsFor("", domain.RoleAdmin)))

		Expect(err).To(MatchError(api.ErrInvalidToken))
	})
})
