package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/studyshelf/internal/models"
)

const defaultMaxFileSize = 50 << 20 // 50 MB

// fetched is a decoded or downloaded file ready for the vault.
type fetched struct {
	data []byte
	ext  string
}

func (s *Server) addFileResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.writable(); err != nil {
		return toolError(err), nil
	}
	in, err := placement(req)
	if err != nil {
		return toolError(err), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return toolError(err), nil
	}
	filename := req.GetString("filename", "")

	var f *fetched
	if strings.HasPrefix(source, "data:") {
		f, err = decodeDataURI(source)
	} else {
		f, err = s.fetchHTTP(ctx, source)
	}
	if err != nil {
		return toolError(err), nil
	}
	if int64(len(f.data)) > s.maxFile {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(f.data), s.maxFile)), nil
	}

	if strings.TrimSpace(filename) == "" {
		filename = filenameFromSource(source, f.ext)
	}

	in.Type = models.TypeFile
	in.FileName = filename
	in.File = bytes.NewReader(f.data)

	res, err := s.svc.AddResource(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) (*fetched, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mediaType := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return &fetched{data: data, ext: extensionFor(mediaType)}, nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func (s *Server) fetchHTTP(ctx context.Context, rawURL string) (*fetched, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := s.checkHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return s.checkHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxFile+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if int64(len(data)) > s.maxFile {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", s.maxFile)
	}

	ct := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	return &fetched{data: data, ext: extensionFor(ct)}, nil
}

// extensionFor maps a media type to a file extension, or "" when unknown.
func extensionFor(mediaType string) string {
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	switch mediaType {
	case "":
		return ""
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "text/plain":
		return ".txt"
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromSource takes the last URL path segment when it has an
// extension, otherwise a random name with ext (or .bin).
func filenameFromSource(source, ext string) string {
	if !strings.HasPrefix(source, "data:") {
		if parsed, err := url.Parse(source); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return uuid.New().String() + ext
}
