package analyzer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"
)

// weakCipherTokens flag cipher suite names carrying broken or deprecated
// primitives.
var weakCipherTokens = []string{
	"RC4", "3DES", "DES", "MD5", "SHA1", "ANULL", "ENULL", "NULL",
}

// strongSignatureTokens mark signature algorithms considered current.
var strongSignatureTokens = []string{"SHA256", "SHA384", "SHA512"}

// probedVersions are the protocol versions the analyzer attempts to pin
// individually to build a supported-protocol inventory.
var probedVersions = []struct {
	Version uint16
	Label   string
	Legacy  bool
}{
	{tls.VersionTLS13, "TLSv1.3", false},
	{tls.VersionTLS12, "TLSv1.2", false},
	{tls.VersionTLS11, "TLSv1.1", true},
	{tls.VersionTLS10, "TLSv1.0", true},
}

// TLSAnalyzer opens a TLS connection to a domain/port and scores certificate
// and protocol configuration. Scoring starts at 100, subtracts 15 per
// certificate issue and 10 per protocol issue, and adds a 5-point bonus when
// TLS 1.3 support is confirmed.
type TLSAnalyzer struct {
	Port    int
	Timeout time.Duration
	// InsecureSkipVerify disables chain validation; only set by tests that
	// handshake against self-signed fixtures.
	InsecureSkipVerify bool
}

func (t *TLSAnalyzer) Name() string { return NameTLS }

func (t *TLSAnalyzer) port() int {
	if t.Port == 0 {
		return 443
	}
	return t.Port
}

// Analyze performs the default handshake plus best-effort per-version probes.
func (t *TLSAnalyzer) Analyze(ctx context.Context, target Target) Outcome {
	addr := net.JoinHostPort(target.Domain, fmt.Sprintf("%d", t.port()))

	state, err := t.handshake(ctx, addr, target.Domain, nil)
	if err != nil {
		return failure(NameTLS, err)
	}

	outcome := Outcome{
		Analyzer: NameTLS,
		Success:  true,
	}

	certIssues := 0
	if len(state.PeerCertificates) > 0 {
		certIssues = analyzeCertificate(state.PeerCertificates[0], &outcome)
	} else {
		outcome.Issues = append(outcome.Issues, "Server presented no peer certificate")
		certIssues = 1
	}

	protocolIssues := t.analyzeProtocols(ctx, addr, target.Domain, state, &outcome)

	score := 100 - float64(certIssues)*15 - float64(protocolIssues)*10
	for _, proto := range outcome.Strengths {
		if strings.Contains(proto, "TLSv1.3 is supported") {
			score += 5
			break
		}
	}

	outcome.Score = clampScore(score)
	outcome.Grade = Grade(outcome.Score)
	return outcome
}

// handshake dials one TLS connection and returns its connection state.
// versionPin, when non-zero, pins both MinVersion and MaxVersion.
func (t *TLSAnalyzer) handshake(ctx context.Context, addr, serverName string, versionPin *uint16) (*tls.ConnectionState, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}
	if versionPin != nil {
		cfg.MinVersion = *versionPin
		cfg.MaxVersion = *versionPin
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: t.Timeout},
		Config:    cfg,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	return &state, nil
}

// analyzeCertificate fills certificate findings into the outcome and returns
// the number of certificate issues found.
func analyzeCertificate(cert *x509.Certificate, outcome *Outcome) int {
	issues := 0
	daysUntilExpiry := int(time.Until(cert.NotAfter).Hours() / 24)

	switch {
	case daysUntilExpiry < 0:
		outcome.Issues = append(outcome.Issues, "Certificate has expired")
		outcome.Recommendations = append(outcome.Recommendations, "Renew the TLS certificate immediately")
		issues++
	case daysUntilExpiry < 30:
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("Certificate expires in %d days", daysUntilExpiry))
		outcome.Recommendations = append(outcome.Recommendations, "Renew the TLS certificate before it expires")
		issues++
	case daysUntilExpiry < 90:
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("Certificate expires in %d days; plan renewal", daysUntilExpiry))
		issues++
	default:
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Certificate is valid for %d more days", daysUntilExpiry))
	}

	sigAlg := strings.ToUpper(cert.SignatureAlgorithm.String())
	if strings.Contains(sigAlg, "SHA1") || strings.Contains(sigAlg, "MD5") {
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("Certificate uses a weak signature algorithm (%s)", cert.SignatureAlgorithm))
		outcome.Recommendations = append(outcome.Recommendations,
			"Reissue the certificate with a SHA-256 or stronger signature")
		issues++
	} else {
		for _, token := range strongSignatureTokens {
			if strings.Contains(sigAlg, token) {
				outcome.Strengths = append(outcome.Strengths,
					fmt.Sprintf("Certificate signature uses %s", cert.SignatureAlgorithm))
				break
			}
		}
	}

	if len(cert.DNSNames) > 0 {
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Certificate carries %d Subject Alternative Name(s)", len(cert.DNSNames)))
	}

	if cert.Subject.String() == cert.Issuer.String() {
		outcome.Issues = append(outcome.Issues, "Certificate is self-signed")
		outcome.Recommendations = append(outcome.Recommendations,
			"Use a CA-signed certificate in production")
		issues++
	}

	if keyIssue := checkKeyStrength(cert); keyIssue != "" {
		outcome.Issues = append(outcome.Issues, keyIssue)
		issues++
	}

	return issues
}

// checkKeyStrength returns an issue string for undersized public keys.
// Minimums: 2048-bit RSA, 224-bit ECDSA.
func checkKeyStrength(cert *x509.Certificate) string {
	sized, ok := cert.PublicKey.(interface{ Size() int })
	if !ok {
		return ""
	}
	bits := sized.Size() * 8

	alg := cert.PublicKeyAlgorithm.String()
	switch {
	case strings.Contains(alg, "RSA") && bits < 2048:
		return fmt.Sprintf("RSA key size %d bits is below the 2048-bit minimum", bits)
	case strings.Contains(alg, "ECDSA") && bits < 224:
		return fmt.Sprintf("ECDSA key size %d bits is below the 224-bit minimum", bits)
	}
	return ""
}

// analyzeProtocols records the negotiated protocol/cipher findings and probes
// each version individually. Probe failures simply mark the version as
// unsupported; they never fail the analyzer. Returns the protocol issue count.
func (t *TLSAnalyzer) analyzeProtocols(ctx context.Context, addr, serverName string, state *tls.ConnectionState, outcome *Outcome) int {
	issues := 0

	negotiated := tlsVersionLabel(state.Version)
	if state.Version >= tls.VersionTLS12 {
		outcome.Strengths = append(outcome.Strengths,
			fmt.Sprintf("Negotiated %s with %s", negotiated, tls.CipherSuiteName(state.CipherSuite)))
	} else {
		outcome.Issues = append(outcome.Issues,
			fmt.Sprintf("Negotiated legacy protocol %s", negotiated))
		outcome.Recommendations = append(outcome.Recommendations,
			"Disable SSLv3, TLS 1.0, and TLS 1.1; require TLS 1.2 or newer")
		issues++
	}

	cipherName := strings.ToUpper(tls.CipherSuiteName(state.CipherSuite))
	for _, token := range weakCipherTokens {
		if strings.Contains(cipherName, token) {
			outcome.Issues = append(outcome.Issues,
				fmt.Sprintf("Negotiated cipher %s contains weak primitive %s", cipherName, token))
			issues++
			break
		}
	}

	supported := t.probeVersions(ctx, addr, serverName)
	for _, probe := range probedVersions {
		if !supported[probe.Label] {
			continue
		}
		if probe.Legacy {
			outcome.Issues = append(outcome.Issues,
				fmt.Sprintf("Legacy protocol %s is still enabled", probe.Label))
			outcome.Recommendations = append(outcome.Recommendations,
				fmt.Sprintf("Disable %s on the server", probe.Label))
			issues++
		} else {
			outcome.Strengths = append(outcome.Strengths,
				fmt.Sprintf("%s is supported", probe.Label))
		}
	}

	return issues
}

// probeVersions attempts one pinned handshake per protocol version.
func (t *TLSAnalyzer) probeVersions(ctx context.Context, addr, serverName string) map[string]bool {
	supported := make(map[string]bool, len(probedVersions))
	for _, probe := range probedVersions {
		version := probe.Version
		if _, err := t.handshake(ctx, addr, serverName, &version); err == nil {
			supported[probe.Label] = true
		}
	}
	return supported
}

// SupportedProtocolList renders a supported-version map as a sorted slice.
func SupportedProtocolList(supported map[string]bool) []string {
	labels := make([]string, 0, len(supported))
	for label, ok := range supported {
		if ok {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// tlsVersionLabel converts a TLS version constant to its display label.
func tlsVersionLabel(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLSv1.0"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return fmt.Sprintf("unknown (0x%04x)", version)
	}
}
