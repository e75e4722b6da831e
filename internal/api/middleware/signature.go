// Package middleware holds the request middleware for the webhook API.
package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/wb-go/wbf/zlog"

	"github.com/wb-go/wbf/ginext"

	"github.com/teerapatch/line-webhook/internal/api/respond"
)

// SignatureHeader is the header carrying the LINE webhook signature.
const SignatureHeader = "X-Line-Signature"

// RawBodyKey is the context key under which the verified raw request
// body is stored for downstream handlers.
const RawBodyKey = "rawBody"

var (
	errMissingSignature = errors.New("missing signature")
	errInvalidSignature = errors.New("invalid signature")
)

// Signature verifies the base64 HMAC-SHA256 signature of the raw
// request body against the shared channel secret. Requests that fail
// verification are rejected before any processing happens.
func Signature(secret string) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		sig := c.GetHeader(SignatureHeader)
		if sig == "" {
			respond.Fail(c, http.StatusUnauthorized, errMissingSignature)
			c.Abort()
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			respond.Fail(c, http.StatusBadRequest, err)
			c.Abort()
			return
		}

		if !Verify(body, secret, sig) {
			zlog.Logger.Warn().Msg("webhook signature mismatch")
			respond.Fail(c, http.StatusForbidden, errInvalidSignature)
			c.Abort()
			return
		}

		c.Set(RawBodyKey, body)
		c.Next()
	}
}

// Verify reports whether signature is the base64 HMAC-SHA256 digest of
// body under secret. Comparison is constant-time.
func Verify(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
