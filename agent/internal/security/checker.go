package security

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"math"
	"net"
	"net/url"
	"time"
)

// Certificate states reported by Check.
const (
	StatusValid       = "valid"
	StatusExpiring    = "expiring"
	StatusExpired     = "expired"
	StatusUntrusted   = "untrusted"
	StatusUnreachable = "unreachable"
)

// ExpiryWarning is how close to NotAfter a certificate is reported as expiring.
const ExpiryWarning = 30 * 24 * time.Hour

const dialTimeout = 10 * time.Second

// CertStatus describes the leaf certificate served for a page.
type CertStatus struct {
	Endpoint string
	Status   string
	Subject  string
	Issuer   string
	NotAfter time.Time
	DaysLeft int
	// Err is the handshake or dial failure for untrusted and unreachable
	// endpoints.
	Err error
}

// Check dials the host of rawURL and returns the state of its leaf
// certificate at now. A nil cfg verifies against the system roots.
//
// Returns nil for non-HTTPS URLs; there is no certificate to inspect.
func Check(ctx context.Context, rawURL string, cfg *tls.Config, now time.Time) *CertStatus {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: rawURL}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if cfg == nil {
		cfg = &tls.Config{}
	}
	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Err = err
		cs.Status = dialStatus(err)
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = StatusUnreachable
		return cs
	}

	leaf := peerCerts[0]
	left := leaf.NotAfter.Sub(now)

	cs.Subject = leaf.Subject.CommonName
	cs.Issuer = leaf.Issuer.CommonName
	cs.NotAfter = leaf.NotAfter.UTC()
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))

	switch {
	case left <= 0:
		cs.Status = StatusExpired
	case left <= ExpiryWarning:
		cs.Status = StatusExpiring
	default:
		cs.Status = StatusValid
	}
	return cs
}

// dialStatus maps a failed handshake to a status. Verification rejects
// expired certificates before the leaf can be inspected.
func dialStatus(err error) string {
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) && invalid.Reason == x509.Expired {
		return StatusExpired
	}

	var (
		unknown   x509.UnknownAuthorityError
		hostname  x509.HostnameError
		verifyErr *tls.CertificateVerificationError
	)
	if errors.As(err, &verifyErr) || errors.As(err, &unknown) ||
		errors.As(err, &hostname) || errors.As(err, &invalid) {
		return StatusUntrusted
	}
	return StatusUnreachable
}
