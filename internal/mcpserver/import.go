package mcpserver

import (
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxSceneSize = 4 << 20 // 4 MB

var yamlMIME = map[string]bool{
	"application/yaml":   true,
	"application/x-yaml": true,
	"text/yaml":          true,
	"text/x-yaml":        true,
	"text/plain":         true,
}

// fetchScene returns the bytes behind a data URI or an http(s) URL.
func fetchScene(source string) ([]byte, error) {
	var data []byte
	var err error
	if strings.HasPrefix(source, "data:") {
		data, err = decodeDataURI(source)
	} else {
		data, err = fetchHTTP(source)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > maxSceneSize {
		return nil, fmt.Errorf("scene too large: %d bytes (max %d)", len(data), maxSceneSize)
	}
	return data, nil
}

// decodeDataURI parses a data:<yaml mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if !yamlMIME[mime] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// fetchHTTP downloads a scene from an HTTP/HTTPS URL with security checks.
func fetchHTTP(rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	resp, err := client.Get(rawURL) //nolint:noctx
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSceneSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return data, nil
}

// checkBlockedHost rejects hosts that resolve to loopback, private,
// link-local or unspecified addresses, and the cloud metadata host. Every
// resolved address must pass.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
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
		if err := checkBlockedIP(ip); err != nil {
			return fmt.Errorf("blocked host %s: %w", host, err)
		}
	}
	return nil
}

func checkBlockedIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("loopback address %s", ip)
	case ip.IsPrivate():
		return fmt.Errorf("private address %s", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		// covers 169.254.169.254, the cloud metadata address
		return fmt.Errorf("link-local address %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address %s", ip)
	}
	return nil
}
