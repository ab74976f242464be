package assetservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImportSize caps downloaded and decoded imports.
const MaxImportSize = 10 << 20 // 10 MB

// imageMIMEs are the accepted image formats with their canonical extension.
var imageMIMEs = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// fetch resolves rawURL into an upload. Only http, https and base64 data
// URIs are accepted.
func (s *Service) fetch(ctx context.Context, rawURL string) (*Upload, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = s.fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImportSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(data), MaxImportSize)
	}
	if err := checkImage(data); err != nil {
		return nil, err
	}
	mt := mimetype.Detect(data)
	return &Upload{
		Filename:    filenameFromURL(rawURL, imageMIMEs[baseMIME(mt.String())]),
		ContentType: baseMIME(mt.String()),
		Data:        data,
	}, nil
}

// decodeDataURI returns the payload of an inline base64 import, the form
// MCP clients use to hand over images they generated themselves.
func decodeDataURI(uri string) ([]byte, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if data, err := enc.DecodeString(encoded); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("invalid base64 data")
}

// fetchHTTP downloads rawURL after checking its host.
func (s *Service) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := s.hostCheck(parsed.Hostname()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > MaxImportSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", MaxImportSize)
	}
	return data, nil
}

// checkBlockedHost rejects hosts that resolve into the local network:
// loopback, private, link-local and unspecified addresses, plus the cloud
// metadata name. Every resolved address is checked.
func checkBlockedHost(host string) error {
	if strings.EqualFold(strings.TrimSuffix(host, "."), "metadata.google.internal") {
		return fmt.Errorf("blocked host: %s", host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ips = resolved
	}
	for _, ip := range ips {
		if reason := blockedIP(ip); reason != "" {
			return fmt.Errorf("blocked host: %s address %s", reason, host)
		}
	}
	return nil
}

// blockedIP names the reason ip may not be fetched from, or returns "".
func blockedIP(ip net.IP) string {
	switch {
	case ip.IsLoopback(), ip.IsUnspecified():
		return "loopback"
	case ip.IsPrivate():
		return "private"
	// Includes the 169.254.169.254 cloud metadata endpoint.
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsInterfaceLocalMulticast():
		return "link-local"
	}
	return ""
}

// guardedDialer checks the address actually dialed, so a name that
// resolves differently between the pre-check and the connection is still
// refused.
func guardedDialer(check func(host string) error) *net.Dialer {
	return &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			return check(host)
		},
	}
}

// checkImage verifies by magic bytes that data is an accepted image format.
func checkImage(data []byte) error {
	detected := baseMIME(mimetype.Detect(data).String())
	if _, ok := imageMIMEs[detected]; !ok {
		return fmt.Errorf("unsupported image content (detected: %s)", detected)
	}
	return nil
}

// filenameFromURL names an imported image after the last path segment of
// its source. Data URIs and extensionless paths get a UUID with ext.
func filenameFromURL(rawURL, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	if strings.HasPrefix(rawURL, "data:") {
		return uuid.New().String() + ext
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		base := path.Base(parsed.Path)
		if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
			return base
		}
	}
	return uuid.New().String() + ext
}

func baseMIME(ct string) string {
	return strings.TrimSpace(strings.Split(ct, ";")[0])
}
