// Package storage persists finished presentation packages: an S3 store
// with an optional AES-GCM envelope, and a plain local result directory.
package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Envelope layout: magic(8) + salt(16) + nonce(12) + ciphertext(+tag).
const (
	envelopeMagic = "GCMPPTX1"
	saltLen       = 16
	nonceLen      = 12

	pbkdf2Iterations = 100000
	keyLen           = 32
)

// PackageStore uploads finished packages to S3. When a password is set
// every object is wrapped in the AES-256-GCM envelope; otherwise objects
// are stored plain.
type PackageStore struct {
	client   *s3.Client
	bucket   string
	password string
}

// NewPackageStore builds a store against the given bucket using the
// ambient AWS configuration. An empty password disables encryption.
func NewPackageStore(ctx context.Context, bucket, password string) (*PackageStore, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &PackageStore{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		password: password,
	}, nil
}

// Upload stores one package under key, encrypting when configured.
func (p *PackageStore) Upload(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	body := data
	encrypted := false
	if p.password != "" {
		enc, err := encryptGCM(data, p.password)
		if err != nil {
			return fmt.Errorf("encrypt package: %w", err)
		}
		body = enc
		encrypted = true
	}

	s3Meta := map[string]string{
		"content-type": pptxContentType,
		"encrypted":    fmt.Sprintf("%t", encrypted),
	}
	for k, v := range metadata {
		s3Meta[k] = v
	}

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: s3Meta,
	})
	if err != nil {
		return fmt.Errorf("upload to S3: %w", err)
	}

	log.Info().
		Str("key", key).
		Int("size", len(body)).
		Bool("encrypted", encrypted).
		Msg("uploaded package to S3")
	return nil
}

// Download fetches and, when needed, unwraps one package.
func (p *PackageStore) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read S3 object: %w", err)
	}

	if len(data) >= len(envelopeMagic) && string(data[:len(envelopeMagic)]) == envelopeMagic {
		if p.password == "" {
			return nil, fmt.Errorf("object %s is encrypted but no password is configured", key)
		}
		return decryptGCM(data, p.password)
	}
	return data, nil
}

func encryptGCM(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, data, nil)

	out := make([]byte, 0, len(envelopeMagic)+saltLen+nonceLen+len(ciphertext))
	out = append(out, envelopeMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func decryptGCM(data []byte, password string) ([]byte, error) {
	header := len(envelopeMagic) + saltLen + nonceLen
	if len(data) < header+16 {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(data))
	}
	salt := data[len(envelopeMagic) : len(envelopeMagic)+saltLen]
	nonce := data[len(envelopeMagic)+saltLen : header]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, data[header:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
