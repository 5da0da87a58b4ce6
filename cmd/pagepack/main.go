package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pagepack/internal/config"
	"pagepack/internal/fetch"
	"pagepack/internal/logging"
	"pagepack/internal/output"
	"pagepack/internal/source"
	"pagepack/pkg/inliner"
)

func main() {
	if err := NewApp().Execute(); err != nil {
		logging.New(os.Stderr, false, true).Error.Println(err)
		os.Exit(1)
	}
}

// options holds the flags that are not part of config.Config
type options struct {
	strictCSS    bool
	cssParser    string
	onFetchError string

	verbose  bool
	quiet    bool
	stats    bool
	validate bool
}

// NewApp builds the root command
func NewApp() *cobra.Command {
	cfg := config.Default()
	var opts options

	c := &cobra.Command{
		Use:   "pagepack",
		Short: "Archive a web page into a single self-contained HTML file",
		Long: `pagepack inlines the favicon, stylesheets, scripts and images of an HTML
document. Stylesheets are reduced to the rules whose selectors match the document.
The document is read from --input, downloaded from --src-url, or read from stdin.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyOptions(&cfg, opts); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logging.New(cmd.ErrOrStderr(), opts.verbose, opts.quiet)
			return run(cmd.Context(), cmd, cfg, opts, log)
		},
	}

	f := c.Flags()
	// Input/Output flags
	f.StringVarP(&cfg.Input, "input", "i", "", "input HTML file path (default: stdin)")
	f.StringVarP(&cfg.SrcURL, "src-url", "s", "", "URL the page was retrieved from, used to resolve relative references")
	f.BoolVarP(&cfg.Download, "download", "d", false, "download the page from --src-url")
	f.BoolVar(&cfg.Render, "render", false, "download the page through headless Chrome (implies --download)")
	f.StringVarP(&cfg.Output, "output", "o", "", "output HTML file path (default: stdout)")

	// Transformation flags
	f.BoolVarP(&cfg.InlineCSS, "inline-css", "c", false, "flatten the retained CSS into style attributes")
	f.BoolVarP(&cfg.InlineJS, "inline-js", "j", false, "inline external scripts")
	f.BoolVar(&opts.strictCSS, "strict-css", false, "drop rules whose selectors cannot be evaluated")
	f.StringVar(&opts.cssParser, "css-parser", string(cfg.CSSParser), "stylesheet tokenizer: naive or structured")
	f.BoolVar(&cfg.Minify, "minify", false, "minify the output HTML, CSS and JavaScript")

	// Fetch flags
	f.StringVar(&opts.onFetchError, "on-fetch-error", string(cfg.OnFetchError), "sub-resource fetch failures: abort or skip")
	f.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header (env "+config.UserAgentEnv+")")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per HTTP request")
	f.IntVar(&cfg.Retries, "retries", cfg.Retries, "attempts per HTTP request")

	// Output control flags
	f.BoolVar(&cfg.Open, "open", false, "open the written --output file in the default browser")
	f.BoolVar(&opts.validate, "validate", false, "report references that are not self-contained (no inlining)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output with processing statistics")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVar(&opts.stats, "stats", false, "show processing statistics")

	return c
}

// applyOptions copies the string and switch flags into cfg
func applyOptions(cfg *config.Config, opts options) error {
	if opts.quiet && opts.verbose {
		return config.Errorf("cannot specify both --quiet and --verbose")
	}

	cfg.SelectorPolicy = config.Lenient
	if opts.strictCSS {
		cfg.SelectorPolicy = config.Strict
	}
	cfg.CSSParser = config.CSSParser(strings.ToLower(opts.cssParser))
	cfg.OnFetchError = config.FetchPolicy(strings.ToLower(opts.onFetchError))
	return nil
}

// run loads, transforms and writes one document
func run(ctx context.Context, cmd *cobra.Command, cfg config.Config, opts options, log *logging.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cache := fetch.NewCache()
	fetcher := fetch.New(cfg, cache, fetch.WithLogger(log))

	document, err := source.Load(ctx, cfg, fetcher, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	log.Debug.Printf("loaded %s (%d bytes)", describeInput(cfg), len(document))

	engine := inliner.New(cfg, fetcher, log)

	if opts.validate {
		return runValidation(engine, document, describeInput(cfg), cmd.OutOrStdout(), opts.quiet)
	}

	result, err := engine.Inline(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", describeInput(cfg), err)
	}

	log.Debug.Printf("fetched %d distinct resources", cache.Len())

	finalHTML := result.HTML
	if cfg.Minify {
		finalHTML, err = output.Minify(finalHTML)
		if err != nil {
			return err
		}
	}

	path, err := output.Write(finalHTML, cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if path != "" {
		log.Info.Printf("wrote %s", path)
	}

	// Statistics go to stderr so they don't interfere with HTML output
	if opts.stats || opts.verbose {
		showProcessingStats(cmd.ErrOrStderr(), result, describeInput(cfg))
	}

	if cfg.Open {
		return output.Open(path)
	}
	return nil
}

// runValidation reports references that would break offline
func runValidation(engine *inliner.Inliner, document, name string, w io.Writer, quiet bool) error {
	issues, err := engine.Validate(document)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if len(issues) == 0 {
		if !quiet {
			fmt.Fprintf(w, "✓ %s: document is self-contained\n", name)
		}
		return nil
	}

	fmt.Fprintf(w, "✗ %s: found %d external references:\n", name, len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(issue.Severity), issue.Element, issue.Message)
	}
	return nil
}

func describeInput(cfg config.Config) string {
	switch {
	case cfg.Download:
		return cfg.SrcURL
	case cfg.Input != "":
		return cfg.Input
	}
	return "<stdin>"
}

// showProcessingStats displays processing statistics
func showProcessingStats(w io.Writer, result *inliner.InlineResult, name string) {
	stats := result.ProcessingStats
	fmt.Fprintf(w, "\nProcessing Statistics for %s:\n", name)
	fmt.Fprintf(w, "  Favicon inlined: %t\n", stats.FaviconInlined)
	fmt.Fprintf(w, "  Stylesheets inlined: %d (removed as unused: %d)\n", stats.StylesheetsInlined, stats.StylesheetsRemoved)
	fmt.Fprintf(w, "  Style blocks pruned: %d\n", stats.StyleBlocksPruned)
	fmt.Fprintf(w, "  CSS rules kept: %d of %d (invalid selectors: %d)\n", stats.Rules.Kept, stats.Rules.Rules, stats.Rules.InvalidSelectors)
	fmt.Fprintf(w, "  Scripts inlined: %d, removed: %d\n", stats.ScriptsInlined, stats.ScriptsRemoved)
	fmt.Fprintf(w, "  Images inlined: %d\n", stats.ImagesInlined)
	fmt.Fprintf(w, "  References absolutized: %d\n", stats.ReferencesAbsolutized)
	if stats.HTMLElementsProcessed > 0 {
		fmt.Fprintf(w, "  HTML elements styled: %d (%d declarations)\n", stats.HTMLElementsProcessed, stats.InlinedStyles)
	}
	if stats.SkippedFetches > 0 {
		fmt.Fprintf(w, "  Skipped fetches: %d\n", stats.SkippedFetches)
		for _, url := range result.Skipped {
			fmt.Fprintf(w, "    %s\n", url)
		}
	}
	fmt.Fprintf(w, "  Processing time: %dms\n", stats.ProcessingTimeMs)
}
