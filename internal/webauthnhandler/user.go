package webauthnhandler

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/veloforge/dreamride/internal/errors"
)

type user struct {
	id          []byte
	displayName string
	credentials []webauthn.Credential
}

const webauthnIDSize = 64

// newRandomUser initialises a new rider account with a random ID and an
// anonymous display name. The display name is never used for authorization.
func newRandomUser() (webauthn.User, error) {
	id := make([]byte, webauthnIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, errors.Wrap(err, "generate user id")
	}

	return &user{
		displayName: fmt.Sprintf("Anonymous rider created at %s", time.Now().Format(time.RFC3339)),
		id:          id,
		credentials: []webauthn.Credential{},
	}, nil
}

// WebAuthnID provides the user handle of the user account. A user handle is an opaque byte sequence with a maximum
// size of 64 bytes, and is not meant to be displayed to the user.
//
// Specification: §5.4.3. User Account Parameters for Credential Generation
// (https://w3c.github.io/webauthn/#dom-publickeycredentialuserentity-id)
func (u user) WebAuthnID() []byte {
	return u.id
}

// WebAuthnName provides the name attribute of the user account during registration, intended only for display.
//
// Specification: §5.4.3. User Account Parameters for Credential Generation
// (https://w3c.github.io/webauthn/#dictdef-publickeycredentialuserentity)
func (u user) WebAuthnName() string {
	return u.displayName
}

// WebAuthnDisplayName provides the display name attribute of the user account, intended only for display.
//
// Specification: §5.4.3. User Account Parameters for Credential Generation
// (https://www.w3.org/TR/webauthn/#dom-publickeycredentialuserentity-displayname)
func (u user) WebAuthnDisplayName() string {
	return u.displayName
}

// WebAuthnCredentials provides the list of [webauthn.Credential] owned by the user.
func (u user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
