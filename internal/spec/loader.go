package spec

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/url"
    "os"
    "path/filepath"
    "regexp"
    "strings"
    "time"

    openapi2 "github.com/getkin/kin-openapi/openapi2"
    "github.com/getkin/kin-openapi/openapi2conv"
    "github.com/getkin/kin-openapi/openapi3"
    "gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
    InputError      ErrorCode = "InputError"
    NetworkError    ErrorCode = "NetworkError"
    ParseError      ErrorCode = "ParseError"
    ValidationError ErrorCode = "ValidationError"
    ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
    Code        ErrorCode
    Message     string
    Location    string // file path or URL
    JSONPointer string // e.g. "#/paths/~1sites/get"
    Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Source is a loaded OpenAPI v3 document together with the bytes it was read
// from. The raw bytes are kept because kin-openapi does not preserve the
// declaration order of paths.
type Source struct {
    Doc      *openapi3.T
    Raw      []byte
    Location string
    // SpecVersion is 2 when the input was Swagger 2.0 and got converted.
    SpecVersion int
}

// Settings configures loader behavior.
type Settings struct {
    // HTTPTimeout bounds each HTTP request.
    HTTPTimeout time.Duration
    // MaxRetries for transient HTTP failures (>=500, 429, or network errors).
    MaxRetries int
    // BackoffBase is the base delay for exponential backoff.
    BackoffBase time.Duration
    // AllowFileRefs permits file:// external refs for URL roots. Local file
    // roots always allow them.
    AllowFileRefs bool
    // Strict turns validation failures into errors. Otherwise they are logged
    // and loading proceeds; vendor specs rarely validate cleanly.
    Strict bool
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
    return Settings{
        HTTPTimeout: 30 * time.Second,
        MaxRetries:  3,
        BackoffBase: 200 * time.Millisecond,
    }
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithStrictValidation(strict bool) Option {
    return func(s *Settings) { s.Strict = strict }
}

// Load reads and validates an OpenAPI v3 document. Swagger v2.0 input is
// converted to v3 via kin-openapi openapi2conv.
//
// input may be a filesystem path or an http/https URL. file:// URLs are blocked.
func Load(ctx context.Context, input string, opts ...Option) (*Source, error) {
    if strings.TrimSpace(input) == "" {
        return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
    }

    settings := DefaultSettings()
    for _, opt := range opts {
        opt(&settings)
    }

    var (
        raw      []byte
        location string
        uri      *url.URL
    )
    u, uerr := url.Parse(input)
    if uerr == nil && u.Scheme != "" && u.Host != "" {
        scheme := strings.ToLower(u.Scheme)
        if scheme == "file" {
            return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
        }
        if scheme != "http" && scheme != "https" {
            return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
        }
        body, err := fetchWithRetry(ctx, input, settings)
        if err != nil {
            return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
        }
        raw, location, uri = body, input, u
    } else {
        abs, err := filepath.Abs(input)
        if err != nil {
            return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
        }
        body, err := os.ReadFile(abs)
        if err != nil {
            return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
        }
        raw, location = body, abs
    }

    version, err := detectSpecVersion(raw)
    if err != nil {
        return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
    }

    rootIsFile := uri == nil
    loader := newLoader(settings, rootIsFile)

    var doc *openapi3.T
    switch version {
    case 3:
        if rootIsFile {
            doc, err = loader.LoadFromFile(location)
        } else {
            doc, err = loader.LoadFromURI(uri)
        }
        if err != nil {
            return nil, mapValidateOrParseErr(err, location)
        }
    case 2:
        doc, err = convertV2ToV3(raw)
        if err != nil {
            return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: location, Cause: err}
        }
        if err := loader.ResolveRefsIn(doc, nil); err != nil {
            slog.Warn("failed to resolve refs after conversion", "location", location, "err", err)
        }
    }

    if err := doc.Validate(ctx); err != nil {
        if settings.Strict && !canProceedDespiteValidation(err) {
            return nil, mapValidateOrParseErr(err, location)
        }
        slog.Warn("spec failed validation, continuing", "location", location, "err", err)
    }
    return &Source{Doc: doc, Raw: raw, Location: location, SpecVersion: version}, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
    loader := openapi3.NewLoader()
    loader.IsExternalRefsAllowed = true
    client := &http.Client{Timeout: settings.HTTPTimeout}
    allowFile := settings.AllowFileRefs || rootIsFile
    loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
        switch strings.ToLower(uri.Scheme) {
        case "", "file":
            if !allowFile {
                return nil, fmt.Errorf("blocked file ref: %s", uri.String())
            }
            path := uri.Path
            if path == "" {
                path = uri.Opaque
            }
            return os.ReadFile(path)
        case "http", "https":
            req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
            if err != nil {
                return nil, err
            }
            resp, err := client.Do(req)
            if err != nil {
                return nil, err
            }
            defer resp.Body.Close()
            if resp.StatusCode >= 400 {
                return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
            }
            return io.ReadAll(resp.Body)
        default:
            return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
        }
    }
    return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
    var root map[string]any
    if err := yaml.Unmarshal(data, &root); err != nil {
        return 0, fmt.Errorf("parse spec: %w", err)
    }
    if v, ok := root["openapi"]; ok {
        if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
            return 3, nil
        }
    }
    if v, ok := root["swagger"]; ok {
        if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
            return 2, nil
        }
    }
    return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
    var v2 openapi2.T
    if err := yaml.Unmarshal(data, &v2); err != nil {
        return nil, err
    }
    return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
    client := &http.Client{Timeout: settings.HTTPTimeout}
    backoff := settings.BackoffBase
    if backoff <= 0 {
        backoff = 200 * time.Millisecond
    }
    attempts := max(settings.MaxRetries, 1)
    var lastErr error
    for i := 0; i < attempts; i++ {
        body, retry, err := fetchOnce(ctx, client, rawURL)
        if err == nil {
            return body, nil
        }
        if !retry {
            return nil, err
        }
        lastErr = err
        slog.Debug("spec fetch failed, retrying", "url", rawURL, "attempt", i+1, "err", err)
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(backoff):
        }
        backoff *= 2
    }
    if lastErr == nil {
        lastErr = errors.New("fetch failed")
    }
    return nil, lastErr
}

// fetchOnce performs one GET. retry reports whether the failure is transient.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string) (body []byte, retry bool, err error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
    if err != nil {
        return nil, false, err
    }
    resp, err := client.Do(req)
    if err != nil {
        return nil, true, err
    }
    defer resp.Body.Close()
    if resp.StatusCode < 300 {
        body, err := io.ReadAll(resp.Body)
        return body, false, err
    }
    if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
        return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
    }
    snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
    return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

func mapValidateOrParseErr(err error, location string) error {
    pointer := extractJSONPointer(err)
    code := ValidationError
    lower := strings.ToLower(err.Error())
    if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
        code = ParseError
    }
    return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
    if err == nil {
        return ""
    }
    if me, ok := err.(openapi3.MultiError); ok {
        if len(me) > 0 {
            return extractJSONPointer(me[0])
        }
    }
    var se *openapi3.SchemaError
    if errors.As(err, &se) {
        if parts := se.JSONPointer(); len(parts) > 0 {
            return "#/" + strings.Join(parts, "/")
        }
        if se.SchemaField != "" {
            return se.SchemaField
        }
    }
    if m := jsonPtrRe.FindString(err.Error()); m != "" {
        return m
    }
    return ""
}

// canProceedDespiteValidation returns true for validation errors a
// best-effort build survives even in strict mode (unresolved $ref entries
// degrade per operation).
func canProceedDespiteValidation(err error) bool {
    if err == nil {
        return true
    }
    s := strings.ToLower(err.Error())
    return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
