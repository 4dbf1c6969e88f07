package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/companionbot/internal/database"
)

// Errors returned by SignedURLPublisher.Verify.
var (
	ErrInvalidSignature = errors.New("invalid media signature")
	ErrExpiredURL       = errors.New("media url expired")
)

// MediaPath is the route prefix the web server serves blocks from.
const MediaPath = "/media/"

// SignedURLPublisher hands out expiring HMAC-signed links to the bot's own
// web server, which streams the block from the database.
type SignedURLPublisher struct {
	baseURL string
	key     []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewSignedURLPublisher creates a publisher for links under baseURL.
func NewSignedURLPublisher(baseURL, signingKey string, ttl time.Duration) *SignedURLPublisher {
	return &SignedURLPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     []byte(signingKey),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used in tests.
func (p *SignedURLPublisher) WithClock(now func() time.Time) *SignedURLPublisher {
	p.now = now
	return p
}

// Publish returns a link to the block. The block itself stays in the database.
func (p *SignedURLPublisher) Publish(_ context.Context, block *database.Block) (string, error) {
	if len(p.key) == 0 {
		return "", errors.New("signing key is empty")
	}
	exp := strconv.FormatInt(p.now().Add(p.ttl).Unix(), 10)

	q := url.Values{}
	q.Set("exp", exp)
	q.Set("sig", p.sign(block.ID, exp))
	return p.baseURL + MediaPath + url.PathEscape(block.ID) + "?" + q.Encode(), nil
}

// Verify checks a link's signature and expiry.
func (p *SignedURLPublisher) Verify(id, exp, sig string) error {
	want := p.sign(id, exp)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(sig))) {
		return ErrInvalidSignature
	}
	ts, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad expiry %q", ErrInvalidSignature, exp)
	}
	if p.now().Unix() > ts {
		return ErrExpiredURL
	}
	return nil
}

func (p *SignedURLPublisher) sign(id, exp string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(strings.ToLower(id)))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(exp))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Publisher = (*SignedURLPublisher)(nil)
