package formsg

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/box"

	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrDecryption is returned when a payload cannot be opened with the form key.
var ErrDecryption = errors.New("formsg: unable to decrypt submission")

// Envelope is the JSON body of a webhook delivery.
type Envelope struct {
	Data EncryptedPayload `json:"data"`
}

// EncryptedPayload is the `data` member of a webhook delivery.
type EncryptedPayload struct {
	FormID                 string            `json:"formId"`
	SubmissionID           string            `json:"submissionId"`
	EncryptedContent       string            `json:"encryptedContent"`
	Version                int               `json:"version"`
	Created                string            `json:"created,omitempty"`
	VerifiedContent        string            `json:"verifiedContent,omitempty"`
	AttachmentDownloadURLs map[string]string `json:"attachmentDownloadUrls,omitempty"`
}

type fieldResponse struct {
	ID          string `json:"_id"`
	Question    string `json:"question"`
	FieldType   string `json:"fieldType"`
	Answer      string `json:"answer,omitempty"`
	AnswerArray []any  `json:"answerArray,omitempty"`
}

// Crypto opens submissions sealed to a single form.
type Crypto struct {
	secretKey [keySize]byte
}

// NewCrypto parses the base64 form secret key.
func NewCrypto(formSecretKey string) (*Crypto, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(formSecretKey))
	if err != nil {
		return nil, fmt.Errorf("formsg: decode form secret key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("formsg: form secret key must be %d bytes, got %d", keySize, len(raw))
	}
	c := &Crypto{}
	copy(c.secretKey[:], raw)
	return c, nil
}

// Decrypt opens payload.EncryptedContent and maps the answers.
func (c *Crypto) Decrypt(payload EncryptedPayload) (*domain.DecryptedSubmission, error) {
	plaintext, err := c.open(payload.EncryptedContent)
	if err != nil {
		return nil, err
	}

	var responses []fieldResponse
	if err := json.Unmarshal(plaintext, &responses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	submission := &domain.DecryptedSubmission{Responses: make([]domain.Answer, 0, len(responses))}
	for _, response := range responses {
		submission.Responses = append(submission.Responses, domain.Answer{
			ID:        response.ID,
			Question:  response.Question,
			FieldType: response.FieldType,
			Value:     response.value(),
		})
	}
	return submission, nil
}

// open decodes `<submissionPublicKey>;<nonce>:<ciphertext>`.
func (c *Crypto) open(content string) ([]byte, error) {
	publicPart, rest, ok := strings.Cut(content, ";")
	if !ok {
		return nil, fmt.Errorf("%w: missing public key separator", ErrDecryption)
	}
	noncePart, cipherPart, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing nonce separator", ErrDecryption)
	}

	var publicKey [keySize]byte
	if err := decodeFixed(publicKey[:], publicPart); err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrDecryption, err)
	}
	var nonce [nonceSize]byte
	if err := decodeFixed(nonce[:], noncePart); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrDecryption, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(cipherPart)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrDecryption, err)
	}

	plaintext, ok := box.Open(nil, ciphertext, &nonce, &publicKey, &c.secretKey)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func decodeFixed(dst []byte, encoded string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// value flattens checkbox and table answers into one string.
func (r fieldResponse) value() string {
	if r.Answer != "" || len(r.AnswerArray) == 0 {
		return r.Answer
	}
	parts := make([]string, 0, len(r.AnswerArray))
	for _, item := range r.AnswerArray {
		switch v := item.(type) {
		case string:
			parts = append(parts, v)
		case []any:
			row := make([]string, 0, len(v))
			for _, cell := range v {
				row = append(row, fmt.Sprint(cell))
			}
			parts = append(parts, strings.Join(row, " "))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, ", ")
}

// GenerateKeyPair returns a base64 form key pair.
func GenerateKeyPair() (publicKey, secretKey string, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(pub[:]), base64.StdEncoding.EncodeToString(priv[:]), nil
}

// Encrypt seals plaintext to the form public key with a fresh submission key pair.
func Encrypt(plaintext []byte, formPublicKey string) (string, error) {
	var recipient [keySize]byte
	if err := decodeFixed(recipient[:], formPublicKey); err != nil {
		return "", fmt.Errorf("formsg: form public key: %w", err)
	}

	submissionPublic, submissionSecret, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}

	sealed := box.Seal(nil, plaintext, &nonce, &recipient, submissionSecret)
	return fmt.Sprintf("%s;%s:%s",
		base64.StdEncoding.EncodeToString(submissionPublic[:]),
		base64.StdEncoding.EncodeToString(nonce[:]),
		base64.StdEncoding.EncodeToString(sealed),
	), nil
}
