package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const keyPrefix = "idemp:po:"

var (
	reUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

	errMissingRequestAt = errors.New("missing " + HeaderRequestAt)
	errBadRequestAt     = errors.New(HeaderRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
	errSkewedRequestAt  = errors.New(HeaderRequestAt + " too skewed")
)

func bodyHash(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

func nowUTC() time.Time { return time.Now().UTC() }

// buildKey scopes a request id to one route, so the same id may be reused
// across different orders.
func buildKey(method, path, requestID string) string {
	return keyPrefix + strings.ToLower(method) + ":" + path + ":" + strings.ToLower(requestID)
}

func validReqID(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	return reUUID.MatchString(id) || reHex32.MatchString(id)
}

// parseRequestAt accepts epoch seconds, epoch milliseconds, or RFC3339(Nano)
// with an explicit zone. Naive local timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errMissingRequestAt
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errBadRequestAt
}

// checkRequestAt parses the header and enforces the allowed clock skew.
func checkRequestAt(raw string, now time.Time, skew time.Duration) (time.Time, error) {
	at, err := parseRequestAt(raw)
	if err != nil {
		return time.Time{}, err
	}
	if at.Before(now.Add(-skew)) || at.After(now.Add(skew)) {
		return time.Time{}, errSkewedRequestAt
	}
	return at, nil
}
