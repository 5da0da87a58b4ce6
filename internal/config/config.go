package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// UserAgentEnv names the environment variable that overrides the default User-Agent
const UserAgentEnv = "DEFAULT_USER_AGENT"

// DefaultUserAgent is sent on every outbound request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// SelectorPolicy decides what happens to selectors the matcher cannot evaluate
type SelectorPolicy string

const (
	// Lenient keeps rules with unparseable selectors
	Lenient SelectorPolicy = "lenient"
	// Strict drops them
	Strict SelectorPolicy = "strict"
)

// FetchPolicy decides what happens when a sub-resource cannot be fetched
type FetchPolicy string

const (
	// Abort stops the whole run on the first failed fetch
	Abort FetchPolicy = "abort"
	// Skip logs the failure and leaves the reference un-inlined
	Skip FetchPolicy = "skip"
)

// CSSParser selects the stylesheet tokenizer used by the pruner
type CSSParser string

const (
	// NaiveParser splits on '}' and never fails
	NaiveParser CSSParser = "naive"
	// StructuredParser uses a real CSS grammar and understands block at-rules
	StructuredParser CSSParser = "structured"
)

// Config holds configuration options for one archiving run.
// It is built once and passed by value.
type Config struct {
	// Input is the local HTML path; empty means stdin unless Download is set
	Input string

	// SrcURL is the page's canonical URL, used for resolution and as Referer
	SrcURL string

	// Download fetches the document itself from SrcURL
	Download bool

	// Render loads SrcURL in headless Chrome instead of a plain GET (implies Download)
	Render bool

	// Output is the destination path; empty means stdout
	Output string

	// InlineCSS flattens retained rules into style attributes
	InlineCSS bool

	// InlineJS replaces external scripts with their fetched code
	InlineJS bool

	// SelectorPolicy controls unparseable selectors during pruning
	SelectorPolicy SelectorPolicy

	// CSSParser selects the stylesheet tokenizer
	CSSParser CSSParser

	// OnFetchError applies uniformly to favicon, stylesheets, scripts and images
	OnFetchError FetchPolicy

	// UserAgent is sent on all HTTP fetches
	UserAgent string

	// Timeout bounds each HTTP request
	Timeout time.Duration

	// Retries is the total number of attempts per fetch
	Retries int

	// Minify runs the output through an HTML/CSS/JS minifier
	Minify bool

	// Open opens the written output file in the default browser
	Open bool
}

// Default returns the configuration used when no flags are given
func Default() Config {
	return Config{
		SelectorPolicy: Lenient,     // Prefer over-inclusion
		CSSParser:      NaiveParser, // Split on '}'
		OnFetchError:   Abort,
		UserAgent:      UserAgentFromEnv(),
		Timeout:        10 * time.Second,
		Retries:        1,
	}
}

// UserAgentFromEnv returns the User-Agent override from the environment, or the default
func UserAgentFromEnv() string {
	if ua := strings.TrimSpace(os.Getenv(UserAgentEnv)); ua != "" {
		return ua
	}
	return DefaultUserAgent
}

// ConfigurationError reports an invalid option combination or a missing option
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// Errorf builds a ConfigurationError
func Errorf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// Validate checks flag combinations before any fetching starts.
// It normalizes SrcURL to carry a scheme.
func (c *Config) Validate() error {
	if c.Render {
		c.Download = true
	}
	if c.Download && c.Input != "" {
		return Errorf("invalid flags combination: -d/--download cannot be used with -i/--input")
	}
	if c.Download && c.SrcURL == "" {
		return Errorf("missing flag: -d/--download requires -s/--src-url")
	}
	if c.Open && c.Output == "" {
		return Errorf("--open requires -o/--output")
	}

	switch c.SelectorPolicy {
	case Lenient, Strict:
	default:
		return Errorf("unknown selector policy %q", c.SelectorPolicy)
	}
	switch c.CSSParser {
	case NaiveParser, StructuredParser:
	default:
		return Errorf("unknown css parser %q (valid: %s, %s)", c.CSSParser, NaiveParser, StructuredParser)
	}
	switch c.OnFetchError {
	case Abort, Skip:
	default:
		return Errorf("unknown fetch error policy %q (valid: %s, %s)", c.OnFetchError, Abort, Skip)
	}

	if c.Retries < 1 {
		return Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return Errorf("timeout must be positive, got %s", c.Timeout)
	}

	c.SrcURL = NormalizeSourceURL(c.SrcURL)
	return nil
}

// NormalizeSourceURL prefixes a scheme-less source URL with http://
func NormalizeSourceURL(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return src
	}
	return "http://" + strings.TrimPrefix(src, "//")
}
