package authcore

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// TOTP parameters per RFC 6238 and the de-facto authenticator-app defaults.
const (
	totpSecretBytes = 20 // 160 bits of entropy
	totpPeriod      = 30 // seconds per time window
	totpDigits      = 6
	totpSkew        = 1 // windows of clock-skew tolerance on either side
)

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// MFA provisions per-identity TOTP secrets and verifies time-windowed
// passcodes.  Verification is non-consuming: TOTP replay is bounded by the
// time window, not by single-use invalidation.
type MFA struct {
	// Issuer is the name embedded in provisioning URIs so authenticator apps
	// can label the account.
	Issuer string

	// Store persists the per-identity secret.
	Store CredentialStore
}

// Provisioned is what enrollment returns: the secret, the otpauth:// URI for
// the authenticator app, and the code for the current window so the frontend
// can show it immediately.
type Provisioned struct {
	Secret          string
	ProvisioningURI string
	CurrentCode     string
}

// Provision generates a fresh random secret for the identity, persists it,
// and returns the enrollment material.  Provisioning a second time replaces
// the previous secret.
func (m *MFA) Provision(ctx context.Context, identity *Identity) (*Provisioned, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	secret := base32NoPad.EncodeToString(raw)

	if err := m.Store.UpdateTOTPSecret(ctx, identity.ID, secret); err != nil {
		return nil, err
	}

	code, err := totpCode(secret, time.Now())
	if err != nil {
		return nil, err
	}
	return &Provisioned{
		Secret:          secret,
		ProvisioningURI: m.provisioningURI(secret, identity.Email),
		CurrentCode:     code,
	}, nil
}

// VerifyCode checks a passcode against the identity's stored secret.
// Returns ErrMFANotEnabled if no secret has been provisioned, ErrInvalidCode
// if the code matches no window within the skew tolerance.
func (m *MFA) VerifyCode(ctx context.Context, identity *Identity, code string) error {
	if identity.TOTPSecret == "" {
		return ErrMFANotEnabled
	}
	ok, err := verifyTOTP(identity.TOTPSecret, code, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func (m *MFA) provisioningURI(secret, account string) string {
	issuer := m.Issuer
	if issuer == "" {
		issuer = "authcore"
	}
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// totpCode computes the passcode for the window containing t.
func totpCode(secretBase32 string, t time.Time) (string, error) {
	secret, err := base32NoPad.DecodeString(secretBase32)
	if err != nil {
		return "", fmt.Errorf("malformed totp secret")
	}
	return hotpCode(secret, t.Unix()/totpPeriod), nil
}

// verifyTOTP compares code against the expected codes for the current window
// and the adjacent windows within the skew tolerance.
func verifyTOTP(secretBase32, code string, now time.Time) (bool, error) {
	if len(code) != totpDigits || !isDigits(code) {
		return false, nil
	}
	secret, err := base32NoPad.DecodeString(secretBase32)
	if err != nil {
		return false, fmt.Errorf("malformed totp secret")
	}

	base := now.Unix() / totpPeriod
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		expected := hotpCode(secret, counter)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// hotpCode is the RFC 4226 dynamic-truncation HOTP computation with SHA1.
func hotpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
