package cookie

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any cookie that fails structure, signature or
// expiry checks. Callers should not branch on the wrapped cause.
var ErrInvalid = errors.New("invalid session cookie")

// MinSecretBytes is the shortest accepted HS256 secret.
const MinSecretBytes = 32

// Config configures a Codec.
type Config struct {
	// Secret signs new cookies.
	Secret []byte
	// KeyID is written to the kid header when set.
	KeyID string
	// VerifyKeys holds additional kid -> secret pairs accepted on decode,
	// typically the previous secret during a rotation window.
	VerifyKeys map[string][]byte
	Issuer     string
	// Leeway tolerates small clock drift between processes.
	Leeway time.Duration
	// Now overrides the clock; tests use it to simulate expiry.
	Now func() time.Time
}

// Payload is the decoded content of a session cookie.
type Payload struct {
	UserID    string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claims struct {
	UID string `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Codec encodes and verifies session cookies.
type Codec struct {
	secret []byte
	keyID  string
	keys   map[string][]byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewCodec signs with Secret under KeyID and verifies with Secret plus every
// VerifyKeys entry. Every key must be at least MinSecretBytes long.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("cookie secret must be at least %d bytes", MinSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	keys := make(map[string][]byte, len(cfg.VerifyKeys)+1)
	for kid, key := range cfg.VerifyKeys {
		kid = strings.TrimSpace(kid)
		if kid == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < MinSecretBytes {
			return nil, fmt.Errorf("verify key %q shorter than %d bytes", kid, MinSecretBytes)
		}
		keys[kid] = append([]byte(nil), key...)
	}
	if len(keys) > 0 && keyID == "" {
		return nil, errors.New("KeyID is required when VerifyKeys are set")
	}
	if keyID != "" {
		keys[keyID] = append([]byte(nil), cfg.Secret...)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		secret: append([]byte(nil), cfg.Secret...),
		keyID:  keyID,
		keys:   keys,
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		now:    now,
	}, nil
}

// Encode signs p. The output is deterministic for equal inputs and keys.
func (c *Codec) Encode(p Payload) (string, error) {
	if p.UserID == "" || p.SessionID == "" {
		return "", errors.New("cookie payload requires user and session id")
	}
	if !p.ExpiresAt.After(p.IssuedAt) {
		return "", errors.New("cookie expiry must be after issue time")
	}

	cl := claims{
		UID: p.UserID,
		SID: p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	if c.keyID != "" {
		token.Header["kid"] = c.keyID
	}
	return token.SignedString(c.secret)
}

// Decode verifies a cookie value and returns its payload.
func (c *Codec) Decode(value string) (Payload, error) {
	return c.decode(value, true)
}

// DecodeIgnoringExpiry verifies the signature but accepts expired cookies.
// Logout uses it to find the session id of a cookie that has just lapsed.
func (c *Codec) DecodeIgnoringExpiry(value string) (Payload, error) {
	return c.decode(value, false)
}

func (c *Codec) decode(value string, checkClaims bool) (Payload, error) {
	if value == "" {
		return Payload{}, fmt.Errorf("%w: empty value", ErrInvalid)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
	}
	if checkClaims {
		options = append(options,
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(c.now),
		)
		if c.leeway > 0 {
			options = append(options, jwt.WithLeeway(c.leeway))
		}
		if c.issuer != "" {
			options = append(options, jwt.WithIssuer(c.issuer))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(value, &claims{}, c.keyFunc)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, jwt.ErrTokenInvalidClaims)
	}
	if cl.UID == "" || cl.SID == "" || cl.IssuedAt == nil || cl.ExpiresAt == nil {
		return Payload{}, fmt.Errorf("%w: missing claims", ErrInvalid)
	}

	return Payload{
		UserID:    cl.UID,
		SessionID: cl.SID,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	if len(c.keys) == 0 {
		return c.secret, nil
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	key, ok := c.keys[kid]
	if !ok {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}
