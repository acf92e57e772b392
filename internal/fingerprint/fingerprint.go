// Package fingerprint derives a coarse, display-oriented device identifier
// from request metadata. Fingerprints classify sessions for listing and
// anomaly checks; they are never an authentication factor.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint describes a client coarsely: browser and OS family, device
// class, and network origin truncated to a /24 (IPv4) or /48 (IPv6) prefix.
type Fingerprint struct {
	Browser     string
	OS          string
	DeviceClass string
	NetOrigin   string
}

// ID returns a stable low-cardinality identifier for the fingerprint,
// a blake2b-128 digest of its canonical form, hex-encoded.
func (f Fingerprint) ID() string {
	sum := blake2b.Sum256([]byte(f.canonical()))
	return hex.EncodeToString(sum[:16])
}

// Label returns a display-safe description for session lists,
// e.g. "Chrome on Linux (desktop)". Network origin is omitted.
func (f Fingerprint) Label() string {
	return fmt.Sprintf("%s on %s (%s)", f.Browser, f.OS, f.DeviceClass)
}

func (f Fingerprint) canonical() string {
	return strings.Join([]string{f.Browser, f.OS, f.DeviceClass, f.NetOrigin}, "|")
}

// Derive builds a Fingerprint from a User-Agent string and client IP.
// Unknown metadata degrades to "unknown" fields rather than failing;
// a fingerprint must always be derivable.
func Derive(userAgent, ipAddress string) Fingerprint {
	ua := strings.ToLower(userAgent)
	return Fingerprint{
		Browser:     browserFamily(ua),
		OS:          osFamily(ua),
		DeviceClass: deviceClass(ua),
		NetOrigin:   coarseOrigin(ipAddress),
	}
}

func browserFamily(ua string) string {
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "chrome/"):
		return "Chrome"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	case strings.Contains(ua, "curl/"):
		return "curl"
	case ua == "":
		return "unknown"
	default:
		return "other"
	}
}

func osFamily(ua string) string {
	switch {
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		return "iOS"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "unknown"
	}
}

func deviceClass(ua string) string {
	switch {
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "bot") || strings.Contains(ua, "curl") || strings.Contains(ua, "wget"):
		return "automated"
	default:
		return "desktop"
	}
}

// coarseOrigin truncates the IP to /24 for IPv4 and /48 for IPv6 so the
// fingerprint survives DHCP churn inside one network.
func coarseOrigin(ipAddress string) string {
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return "unknown"
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String() + "/24"
	}
	return ip.Mask(net.CIDRMask(48, 128)).String() + "/48"
}
