package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"ms-events/internal/models"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length of a rendered pass in pixels.
const DefaultSize = 256

// Generator seals registration claims into an opaque string and renders it as a QR code.
type Generator struct {
	aead cipher.AEAD
}

func NewGenerator(secret string) (*Generator, error) {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead}, nil
}

// Seal encrypts and authenticates claims.
func (g *Generator) Seal(claims models.PassClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any tampering gives models.ErrInvalidPass.
func (g *Generator) Open(token string) (*models.PassClaims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", models.ErrInvalidPass)
	}

	nonceSize := g.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, fmt.Errorf("%w: too short", models.ErrInvalidPass)
	}

	data, err := g.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", models.ErrInvalidPass)
	}

	var claims models.PassClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("%w: bad payload", models.ErrInvalidPass)
	}
	return &claims, nil
}

// PNG seals claims and encodes the result as a QR code image.
func (g *Generator) PNG(claims models.PassClaims, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	sealed, err := g.Seal(claims)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(sealed, qrcode.Medium, size)
}
