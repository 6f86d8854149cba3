package totp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/xlzd/gotp"
)

const (
	// Issuer is embedded in provisioning URIs scanned by authenticator apps
	Issuer = "traindepot"

	// Period is the TOTP time step in seconds
	Period = 30

	// Skew is the number of adjacent time steps accepted around the
	// current one, to absorb clock drift between server and device
	Skew = 1

	// SecretSize is the TOTP secret length in bytes before base32 encoding
	SecretSize = 20

	recoveryCodeCount  = 8
	recoveryCodeLength = 10
)

// Engine generates per-user secrets and verifies time-based one-time codes
type Engine struct {
	issuer string
}

// NewEngine creates a new TOTP engine
func NewEngine() *Engine {
	return &Engine{issuer: Issuer}
}

// GenerateSecret creates a fresh 20-byte secret, base32 encoded, bound to
// the given account name for provisioning. The secret is generated exactly
// once per enrollment and never re-derived.
func (e *Engine) GenerateSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
		SecretSize:  SecretSize,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return key.Secret(), nil
}

// GenerateRecoveryCodes returns a set of single-use backup codes
func (e *Engine) GenerateRecoveryCodes() []string {
	codes := make([]string, recoveryCodeCount)
	for i := range codes {
		codes[i] = gotp.RandomSecret(recoveryCodeLength)
	}
	return codes
}

// VerifyCode checks a code against the secret at the current time
func (e *Engine) VerifyCode(secret, code string) bool {
	return e.VerifyCodeAt(secret, code, time.Now())
}

// VerifyCodeAt checks a code against the secret at the given time,
// accepting the current 30-second step and one step on either side.
func (e *Engine) VerifyCodeAt(secret, code string, at time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// GenerateCodeAt computes the code for the secret at the given time. Used
// for provisioning checks and tests; verification goes through VerifyCodeAt.
func (e *Engine) GenerateCodeAt(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}
