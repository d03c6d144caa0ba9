package sec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadToken     = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// outputTokenAD binds output tokens to their purpose, so other sealed values under the same key don't open
var outputTokenAD = []byte("impose-output-v1")

// OutputTokens issues opaque download tokens naming a finished job.
// Payload: "<unix expiry>:<job id>".
type OutputTokens struct {
	cipher *XChaCha20Poly1305Cipher
	ttl    time.Duration
}

// OutputTokenConf is loaded from config/.output-tokens.json
type OutputTokenConf struct {
	Key string `json:"key"` // 32 characters
	TTL string `json:"ttl"` // time.ParseDuration format. default 24h
}

func (c OutputTokenConf) Build() (*OutputTokens, error) {
	ttl := 24 * time.Hour
	if c.TTL != "" {
		d, err := time.ParseDuration(c.TTL)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("output token ttl %q: bad duration", c.TTL)
		}
		ttl = d
	}
	return NewOutputTokens([]byte(c.Key), ttl)
}

func NewOutputTokens(key []byte, ttl time.Duration) (*OutputTokens, error) {
	c, err := NewXChaCha20Poly1305CipherBase64(key)
	if err != nil {
		return nil, fmt.Errorf("output token cipher: %w", err)
	}
	return &OutputTokens{cipher: c, ttl: ttl}, nil
}

func (t *OutputTokens) TTL() time.Duration {
	return t.ttl
}

func (t *OutputTokens) Issue(jobID string, now time.Time) (string, error) {
	if jobID == "" {
		return "", ErrBadToken
	}
	payload := strconv.FormatInt(now.Add(t.ttl).Unix(), 10) + ":" + jobID
	return t.cipher.EncryptEncode([]byte(payload), outputTokenAD)
}

// Open returns the job id sealed in token
func (t *OutputTokens) Open(token string, now time.Time) (string, error) {
	plain, err := t.cipher.DecodeDecrypt(token, outputTokenAD)
	if err != nil {
		return "", ErrBadToken
	}
	expStr, jobID, ok := strings.Cut(string(plain), ":")
	if !ok || jobID == "" {
		return "", ErrBadToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", ErrBadToken
	}
	if now.Unix() > exp {
		return "", ErrTokenExpired
	}
	return jobID, nil
}
