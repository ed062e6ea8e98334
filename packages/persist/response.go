package persist

import (
	"bytes"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

// DefaultResponsesDir is where responses are saved when no path is given
const DefaultResponsesDir = "responses"

// extensionOverrides resolves content types the platform MIME table may
// not know, and picks one extension when it knows several.
var extensionOverrides = map[string]string{
	"text/plain":                        ".txt",
	"text/html":                         ".html",
	"text/css":                          ".css",
	"text/javascript":                   ".js",
	"application/javascript":            ".js",
	"application/json":                  ".json",
	"application/xml":                   ".xml",
	"text/xml":                          ".xml",
	"application/x-www-form-urlencoded": ".txt",
	"text/csv":                          ".csv",
	"image/png":                         ".png",
	"image/jpeg":                        ".jpg",
	"image/jpg":                         ".jpg",
	"image/gif":                         ".gif",
	"image/webp":                        ".webp",
	"image/svg+xml":                     ".svg",
	"image/bmp":                         ".bmp",
	"image/x-icon":                      ".ico",
	"image/tiff":                        ".tiff",
	"font/woff":                         ".woff",
	"font/woff2":                        ".woff2",
	"application/font-woff":             ".woff",
	"application/font-woff2":            ".woff2",
	"application/pdf":                   ".pdf",
	"application/msword":                ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.ms-excel":                                                  ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.ms-powerpoint":                                             ".ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/zip":              ".zip",
	"application/x-tar":            ".tar",
	"application/x-gzip":           ".gz",
	"application/x-7z-compressed":  ".7z",
	"application/x-rar-compressed": ".rar",
	"audio/mpeg":                   ".mp3",
	"audio/wav":                    ".wav",
	"audio/ogg":                    ".ogg",
	"video/mp4":                    ".mp4",
	"video/webm":                   ".webm",
	"video/ogg":                    ".ogv",
}

var kindExtensions = map[exchange.Kind]string{
	exchange.KindJSON: ".json",
	exchange.KindHTML: ".html",
	exchange.KindText: ".txt",
}

type signature struct {
	prefix []byte
	ext    string
}

var signatures = []signature{
	{[]byte("\x89PNG\r\n\x1a\n"), ".png"},
	{[]byte("\xff\xd8\xff"), ".jpg"},
	{[]byte("GIF87a"), ".gif"},
	{[]byte("GIF89a"), ".gif"},
	{[]byte("%PDF"), ".pdf"},
	{[]byte("PK\x03\x04"), ".zip"},
	{[]byte("Rar!\x1a\x07\x00"), ".rar"},
	{[]byte("\x1f\x8b"), ".gz"},
	{[]byte("OggS"), ".ogg"},
	{[]byte("\x00\x00\x01\xba"), ".mpg"},
	{[]byte("\x00\x00\x00\x18ftyp3gp"), ".3gp"},
	{[]byte("ID3"), ".mp3"},
	{[]byte("RIFF"), ".wav"},
}

var unsafePathChars = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)

type responseOptions struct {
	dir string
}

type ResponseOption func(*responseOptions)

// WithDir sets the directory for derived paths.
func WithDir(dir string) ResponseOption {
	return func(o *responseOptions) {
		if dir != "" {
			o.dir = dir
		}
	}
}

// BaseContentType returns the lower-cased media type without parameters.
func BaseContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// ExtensionFor picks the file extension for a saved response. It tries the
// platform MIME table, the override table, the response kind, then the
// leading bytes of the body.
func ExtensionFor(ex *exchange.Exchange) string {
	ct := BaseContentType(ex.Response.ContentType())

	if ct != "" {
		override, hasOverride := extensionOverrides[ct]
		if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
			if hasOverride {
				for _, e := range exts {
					if e == override {
						return override
					}
				}
			}
			return exts[0]
		}
		if hasOverride {
			return override
		}
	}

	if ext, ok := kindExtensions[ex.Response.Kind()]; ok {
		return ext
	}

	return SniffExtension(ex.Response.Body.Raw)
}

// SniffExtension matches the first bytes of body against known file
// signatures. Unrecognized content yields ".bin".
func SniffExtension(body []byte) string {
	if len(body) > 32 {
		body = body[:32]
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(body, sig.prefix) {
			return sig.ext
		}
	}
	return ".bin"
}

// DerivePath builds dir/<timestamp>_<path><ext> for ex.
func DerivePath(ex *exchange.Exchange, dir, ext string) string {
	if dir == "" {
		dir = DefaultResponsesDir
	}
	stamp := strings.ReplaceAll(ex.Stamp(), ":", "")
	stamp = strings.ReplaceAll(stamp, " ", "_")

	name := unsafePathChars.ReplaceAllString(strings.Trim(ex.Request.Path, "/"), "_")
	if name == "" {
		name = "index"
	}
	return filepath.Join(dir, stamp+"_"+name+ext)
}

// SaveResponse writes the body of ex to path, or to a derived path under
// the responses directory when path is empty, and returns the path used.
// Text kinds are written as UTF-8 with JSON re-indented; everything else
// is written byte for byte.
func SaveResponse(ex *exchange.Exchange, path string, opts ...ResponseOption) (string, error) {
	o := responseOptions{dir: DefaultResponsesDir}
	for _, opt := range opts {
		opt(&o)
	}

	if path == "" {
		path = DerivePath(ex, o.dir, ExtensionFor(ex))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", wrap("save response", path, err)
		}
	}

	data, err := responseBytes(ex.Response.Body)
	if err != nil {
		return "", wrap("save response", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", wrap("save response", path, err)
	}
	return path, nil
}

func responseBytes(body exchange.Body) ([]byte, error) {
	switch body.Kind {
	case exchange.KindJSON:
		return MarshalIndent(body.JSON, "  ")
	case exchange.KindHTML, exchange.KindText:
		return []byte(body.Text), nil
	default:
		return body.Raw, nil
	}
}
