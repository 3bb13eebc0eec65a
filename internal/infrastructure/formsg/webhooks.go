package formsg

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeaderName is the header FormSG signs webhook deliveries with.
const SignatureHeaderName = "X-FormSG-Signature"

// DefaultSignatureMaxAge bounds the clock skew accepted for a signature.
const DefaultSignatureMaxAge = 5 * time.Minute

// ErrUnauthenticated is returned for a missing, malformed, stale or forged signature.
var ErrUnauthenticated = errors.New("formsg: webhook authentication failed")

// SignatureHeader is the parsed form of X-FormSG-Signature.
type SignatureHeader struct {
	Epoch        int64
	SubmissionID string
	FormID       string
	Signature    string
}

// ParseSignatureHeader splits `t=<epoch>,s=<submissionId>,f=<formId>,v1=<signature>`.
func ParseSignatureHeader(header string) (SignatureHeader, error) {
	var parsed SignatureHeader
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			epoch, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return SignatureHeader{}, fmt.Errorf("%w: invalid epoch %q", ErrUnauthenticated, value)
			}
			parsed.Epoch = epoch
		case "s":
			parsed.SubmissionID = value
		case "f":
			parsed.FormID = value
		case "v1":
			parsed.Signature = value
		}
	}

	if parsed.Epoch == 0 || parsed.SubmissionID == "" || parsed.FormID == "" || parsed.Signature == "" {
		return SignatureHeader{}, fmt.Errorf("%w: incomplete signature header", ErrUnauthenticated)
	}
	return parsed, nil
}

// String renders the header in wire form.
func (h SignatureHeader) String() string {
	return fmt.Sprintf("t=%d,s=%s,f=%s,v1=%s", h.Epoch, h.SubmissionID, h.FormID, h.Signature)
}

func baseString(uri, submissionID, formID string, epoch int64) []byte {
	return []byte(fmt.Sprintf("%s.%s.%s.%d", uri, submissionID, formID, epoch))
}

// Webhooks authenticates FormSG webhook requests.
type Webhooks struct {
	publicKey ed25519.PublicKey
	maxAge    time.Duration
	now       func() time.Time
}

// NewWebhooks creates a verifier. A non-positive maxAge uses DefaultSignatureMaxAge.
// maxAge bounds clock skew both ways, see Authenticate.
func NewWebhooks(publicKey ed25519.PublicKey, maxAge time.Duration) *Webhooks {
	if maxAge <= 0 {
		maxAge = DefaultSignatureMaxAge
	}
	return &Webhooks{publicKey: publicKey, maxAge: maxAge, now: time.Now}
}

// Authenticate checks header against the callback uri the form posts to.
// The epoch must lie within maxAge of now in either direction, so signatures
// dated in the future are rejected too. The FormSG SDK only rejects old ones.
func (w *Webhooks) Authenticate(header, uri string) (SignatureHeader, error) {
	parsed, err := ParseSignatureHeader(header)
	if err != nil {
		return SignatureHeader{}, err
	}

	signature, err := base64.StdEncoding.DecodeString(parsed.Signature)
	if err != nil {
		return SignatureHeader{}, fmt.Errorf("%w: signature is not base64", ErrUnauthenticated)
	}
	if !ed25519.Verify(w.publicKey, baseString(uri, parsed.SubmissionID, parsed.FormID, parsed.Epoch), signature) {
		return SignatureHeader{}, fmt.Errorf("%w: signature mismatch", ErrUnauthenticated)
	}

	age := w.now().Sub(time.UnixMilli(parsed.Epoch))
	if age < 0 {
		age = -age
	}
	if age > w.maxAge {
		return SignatureHeader{}, fmt.Errorf("%w: signature expired", ErrUnauthenticated)
	}
	return parsed, nil
}

// Sign produces a signature header the way FormSG does. Used by tests and tooling.
func Sign(privateKey ed25519.PrivateKey, uri, submissionID, formID string, sentAt time.Time) SignatureHeader {
	epoch := sentAt.UnixMilli()
	signature := ed25519.Sign(privateKey, baseString(uri, submissionID, formID, epoch))
	return SignatureHeader{
		Epoch:        epoch,
		SubmissionID: submissionID,
		FormID:       formID,
		Signature:    base64.StdEncoding.EncodeToString(signature),
	}
}
