package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is applied when TokenConfig.DefaultTTL is zero.
const DefaultTokenTTL = 30 * time.Minute

var (
	// ErrTokenDecode is the family every Validate failure belongs to.
	ErrTokenDecode = errors.New("token decode failed")

	// ErrTokenExpired is returned when the embedded expiry has passed.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrTokenDecode)

	// ErrTokenInvalid covers signature, structure, issuer and audience failures.
	ErrTokenInvalid = fmt.Errorf("%w: invalid token or claims", ErrTokenDecode)
)

// Claims is a decoded or to-be-signed claim set.
type Claims map[string]any

// Subject returns the "sub" claim when it is a non-empty string.
func (c Claims) Subject() (string, bool) {
	sub, ok := c["sub"].(string)
	return sub, ok && sub != ""
}

// TokenConfig is the immutable signing configuration.
type TokenConfig struct {
	SecretKey  string
	Algorithm  string
	DefaultTTL time.Duration
	Issuer     string
	Audience   string
}

// TokenService issues and validates HMAC-signed access tokens.
type TokenService struct {
	key        []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	issuer     string
	audience   string
	now        func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for iat, exp and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService validates cfg and builds a TokenService.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("token secret key is required")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token signing algorithm: %q", cfg.Algorithm)
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTokenTTL
	}

	s := &TokenService{
		key:        []byte(cfg.SecretKey),
		method:     method,
		defaultTTL: cfg.DefaultTTL,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultTTL returns the lifetime applied when Issue is called with ttl <= 0.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue signs a copy of claims. A "sub" claim is always encoded as a string,
// iat and exp are set from the service clock, and iss/aud are added only
// when configured.
func (s *TokenService) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	payload := make(jwt.MapClaims, len(claims)+4)
	for k, v := range claims {
		payload[k] = v
	}
	if sub, ok := payload["sub"]; ok {
		payload["sub"] = subjectString(sub)
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	payload["iat"] = issuedAt.Unix()
	payload["exp"] = issuedAt.Add(ttl).Unix()
	if s.issuer != "" {
		payload["iss"] = s.issuer
	}
	if s.audience != "" {
		payload["aud"] = s.audience
	}

	signed, err := jwt.NewWithClaims(s.method, payload).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, expiry and any configured issuer or
// audience, returning the full claim set. Failures are reported only as
// ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Validate(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, s.keyFunc, s.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return Claims(claims), nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != s.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	return s.key, nil
}

func (s *TokenService) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	return opts
}

func subjectString(v any) string {
	switch sub := v.(type) {
	case string:
		return sub
	case fmt.Stringer:
		return sub.String()
	case int:
		return strconv.Itoa(sub)
	case int32:
		return strconv.FormatInt(int64(sub), 10)
	case int64:
		return strconv.FormatInt(sub, 10)
	case uint:
		return strconv.FormatUint(uint64(sub), 10)
	case uint32:
		return strconv.FormatUint(uint64(sub), 10)
	case uint64:
		return strconv.FormatUint(sub, 10)
	case float64:
		return strconv.FormatFloat(sub, 'f', -1, 64)
	default:
		return fmt.Sprint(sub)
	}
}
