package domain

// CredentialType tags the variant of a Credential.
type CredentialType string

const (
	CredentialPassword    CredentialType = "PASSWORD"
	CredentialSocial      CredentialType = "SOCIAL"
	CredentialPasskey     CredentialType = "PASSKEY"
	CredentialOneTimeCode CredentialType = "OTP"
)

// ParseCredentialType maps a wire value onto a known credential type.
func ParseCredentialType(s string) (CredentialType, bool) {
	switch t := CredentialType(s); t {
	case CredentialPassword, CredentialSocial, CredentialPasskey, CredentialOneTimeCode:
		return t, true
	}
	return "", false
}

// Factor returns the completed-factor tag a successful verification of t records.
func (t CredentialType) Factor() FactorType { return FactorType(t) }

// Credential is the closed set of things a principal can present or have stored.
// The unexported marker keeps the set sealed to this package.
type Credential interface {
	Type() CredentialType
	IsVerified() bool
	sealed()
}

// PasswordCredential holds either the stored one-way hash or the presented secret.
type PasswordCredential struct {
	Hash     string `json:"hash,omitempty"`
	Secret   string `json:"-"`
	Verified bool   `json:"verified"`
}

// SocialCredential is an identity asserted by an external OAuth/OIDC provider.
type SocialCredential struct {
	Provider string `json:"provider"`
	Subject  string `json:"subject"` // Provider-issued subject id
	Email    string `json:"email,omitempty"`
	IDToken  string `json:"-"` // Raw ID token from the code exchange, presented only
	Verified bool   `json:"verified"`
}

// PasskeyCredential is a WebAuthn credential.
// Stored values carry the public key; presented values carry the challenge and assertion.
type PasskeyCredential struct {
	CredentialID    []byte `json:"credential_id"`
	PublicKey       []byte `json:"public_key,omitempty"`
	Label           string `json:"label,omitempty"` // Authenticator label shown to the user
	AttestationType string `json:"attestation_type,omitempty"`
	SignCount       uint32 `json:"sign_count"`
	Challenge       string `json:"-"`
	Assertion       []byte `json:"-"` // Raw PublicKeyCredential JSON from the browser
	Verified        bool   `json:"verified"`
}

// DeliveryChannel is how a one-time code reaches the principal.
type DeliveryChannel string

const (
	ChannelSMS   DeliveryChannel = "SMS"
	ChannelEmail DeliveryChannel = "EMAIL"
	ChannelApp   DeliveryChannel = "APP" // Authenticator app (TOTP)
)

// OneTimeCodeCredential is a short numeric code.
// For the APP channel the stored side carries the TOTP secret instead of a code.
type OneTimeCodeCredential struct {
	Code     string          `json:"-"`
	Channel  DeliveryChannel `json:"channel"`
	Secret   string          `json:"secret,omitempty"`
	Verified bool            `json:"verified"`
}

func (PasswordCredential) Type() CredentialType    { return CredentialPassword }
func (SocialCredential) Type() CredentialType      { return CredentialSocial }
func (PasskeyCredential) Type() CredentialType     { return CredentialPasskey }
func (OneTimeCodeCredential) Type() CredentialType { return CredentialOneTimeCode }

func (c PasswordCredential) IsVerified() bool    { return c.Verified }
func (c SocialCredential) IsVerified() bool      { return c.Verified }
func (c PasskeyCredential) IsVerified() bool     { return c.Verified }
func (c OneTimeCodeCredential) IsVerified() bool { return c.Verified }

func (PasswordCredential) sealed()    {}
func (SocialCredential) sealed()      {}
func (PasskeyCredential) sealed()     {}
func (OneTimeCodeCredential) sealed() {}

var (
	_ Credential = PasswordCredential{}
	_ Credential = SocialCredential{}
	_ Credential = PasskeyCredential{}
	_ Credential = OneTimeCodeCredential{}
)
