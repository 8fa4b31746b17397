// Command xats-format converts canonical documents to and from their
// rendered formats, validates rendered content, and measures round-trip
// fidelity.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/xats-org/xats-go/core/doc"
	"github.com/xats-org/xats-go/core/fidelity"
	"github.com/xats-org/xats-go/core/plugins"
	"github.com/xats-org/xats-go/core/render"
	"github.com/xats-org/xats-go/internal/config"
	"github.com/xats-org/xats-go/internal/formats"
	"github.com/xats-org/xats-go/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for xats-format.
var CLI struct {
	// Global flags
	Config string `name:"config" short:"c" help:"Configuration file path" type:"path"`

	Render    RenderCmd    `cmd:"" help:"Render a canonical document to a format"`
	Parse     ParseCmd     `cmd:"" help:"Parse rendered content back to a canonical document"`
	Convert   ConvertCmd   `cmd:"" help:"Convert rendered content between formats"`
	Roundtrip RoundtripCmd `cmd:"" help:"Measure round-trip fidelity for a document"`
	Validate  ValidateCmd  `cmd:"" help:"Validate rendered content against its format"`
	Info      InfoCmd      `cmd:"" help:"Print content metadata for a rendered file"`
	Plugins   PluginsGroup `cmd:"" help:"Plugin management"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// PluginsGroup contains plugin management operations.
type PluginsGroup struct {
	List PluginsListCmd `cmd:"" help:"List plugins discovered in the plugin directory"`
}

// loadConfig reads the configured file, falling back to defaults, and
// initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(logLevel(cfg.Logging.Level), logFormat(cfg.Logging.Format))
	return cfg, nil
}

func logLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func logFormat(s string) logging.Format {
	if s == "text" {
		return logging.FormatText
	}
	return logging.FormatJSON
}

// readDocument loads a canonical document from a JSON file.
func readDocument(path string) (*doc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var d doc.Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &d, nil
}

// writeOutput writes to the given path, or stdout when it is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RenderCmd renders a canonical document to a format.
type RenderCmd struct {
	Path    string `arg:"" help:"Canonical document JSON file" type:"existingfile"`
	To      string `required:"" help:"Target format (html, markdown, text, docx)"`
	Out     string `help:"Output file path (default: stdout)" type:"path"`
	Metrics bool   `help:"Report word and block counts on stderr"`
}

func (c *RenderCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	format, err := render.ParseFormat(c.To)
	if err != nil {
		return err
	}
	r, err := formats.New(format)
	if err != nil {
		return err
	}
	d, err := readDocument(c.Path)
	if err != nil {
		return err
	}

	result, err := r.Render(context.Background(), d, &render.Options{IncludeMetrics: c.Metrics})
	if err != nil {
		return fmt.Errorf("render to %s: %w", format, err)
	}
	if c.Metrics && result.Metrics != nil {
		fmt.Fprintf(os.Stderr, "words: %d  blocks: %d  containers: %d\n",
			result.Metrics.WordCount, result.Metrics.BlockCount, result.Metrics.ContainerCount)
	}
	return writeOutput(c.Out, []byte(result.Content))
}

// ParseCmd parses rendered content back to a canonical document.
type ParseCmd struct {
	Path     string `arg:"" help:"Rendered content file" type:"existingfile"`
	From     string `required:"" help:"Source format (html, markdown, text, docx)"`
	Out      string `help:"Output file path (default: stdout)" type:"path"`
	Validate bool   `help:"Fail fast when the content is not valid for the format"`
}

func (c *ParseCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	format, err := render.ParseFormat(c.From)
	if err != nil {
		return err
	}
	r, err := formats.New(format)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	result, err := r.Parse(context.Background(), content, &render.ParseOptions{AutoValidate: c.Validate})
	if err != nil {
		return fmt.Errorf("parse %s: %w", format, err)
	}
	for _, issue := range result.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s\n", issue.Severity, issue.Description)
	}

	data, err := json.MarshalIndent(result.Document, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(c.Out, append(data, '\n'))
}

// ConvertCmd converts rendered content from one format to another via the
// canonical document.
type ConvertCmd struct {
	Path string `arg:"" help:"Rendered content file" type:"existingfile"`
	From string `required:"" help:"Source format"`
	To   string `required:"" help:"Target format"`
	Out  string `help:"Output file path (default: stdout)" type:"path"`
}

func (c *ConvertCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	from, err := render.ParseFormat(c.From)
	if err != nil {
		return err
	}
	to, err := render.ParseFormat(c.To)
	if err != nil {
		return err
	}
	source, err := formats.New(from)
	if err != nil {
		return err
	}
	target, err := formats.New(to)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	parsed, err := source.Parse(context.Background(), content, nil)
	if err != nil {
		return fmt.Errorf("parse %s: %w", from, err)
	}
	for _, issue := range parsed.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s\n", issue.Severity, issue.Description)
	}

	result, err := target.Render(context.Background(), parsed.Document, nil)
	if err != nil {
		return fmt.Errorf("render to %s: %w", to, err)
	}
	return writeOutput(c.Out, []byte(result.Content))
}

// RoundtripCmd measures round-trip fidelity for a document in a format.
type RoundtripCmd struct {
	Path      string  `arg:"" help:"Canonical document JSON file" type:"existingfile"`
	Format    string  `required:"" help:"Format to round-trip through"`
	Threshold float64 `help:"Pass/fail threshold override"`
	JSON      bool    `help:"Emit the full result as JSON"`
}

func (c *RoundtripCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	r, err := formats.New(format)
	if err != nil {
		return err
	}
	d, err := readDocument(c.Path)
	if err != nil {
		return err
	}

	opts := cfg.TestOptions()
	if c.Threshold > 0 {
		opts.Threshold = c.Threshold
	}
	result, err := fidelity.NewTester(r).TestDocument(context.Background(), d, opts)
	if err != nil {
		return fmt.Errorf("round trip through %s: %w", format, err)
	}

	if c.JSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("format:     %s\n", format)
		fmt.Printf("score:      %.4f\n", result.FidelityScore)
		fmt.Printf("content:    %.4f\n", result.ContentFidelity)
		fmt.Printf("structure:  %.4f\n", result.StructureFidelity)
		fmt.Printf("formatting: %.4f\n", result.FormattingFidelity)
		fmt.Printf("success:    %t\n", result.Success)
		for _, issue := range result.Issues {
			fmt.Printf("  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Description)
		}
	}

	if !result.Success {
		return fmt.Errorf("fidelity below threshold")
	}
	return nil
}

// ValidateCmd validates rendered content against its format.
type ValidateCmd struct {
	Path   string `arg:"" help:"Rendered content file" type:"existingfile"`
	Format string `required:"" help:"Format to validate as"`
}

func (c *ValidateCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	format, err := render.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	r, err := formats.New(format)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	v, err := r.ValidateFormat(context.Background(), content)
	if err != nil {
		return err
	}
	if v.Valid {
		fmt.Printf("%s: valid %s\n", c.Path, format)
		return nil
	}
	for _, issue := range v.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s\n", issue.Severity, issue.Description)
	}
	return fmt.Errorf("%s is not valid %s", c.Path, format)
}

// InfoCmd prints content metadata for a rendered file.
type InfoCmd struct {
	Path   string `arg:"" help:"Rendered content file" type:"existingfile"`
	Format string `required:"" help:"Format to analyze as"`
	JSON   bool   `help:"Emit metadata as JSON"`
}

func (c *InfoCmd) Run() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	format, err := render.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	r, err := formats.New(format)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	meta := r.Metadata(content)
	if c.JSON {
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("format:  %s\n", meta.Format)
	fmt.Printf("length:  %d bytes\n", meta.ContentLength)
	fmt.Printf("hash:    %s\n", meta.ContentHash)
	return nil
}

// PluginsListCmd lists plugins discovered in the plugin directory.
type PluginsListCmd struct {
	Dir  string `help:"Plugin directory to scan (default: from configuration)" type:"path"`
	JSON bool   `help:"Emit statistics as JSON"`
}

func (c *PluginsListCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := c.Dir
	if dir == "" {
		dir = cfg.PluginDir
	}

	registry := plugins.NewRegistry()
	if dir != "" {
		if _, err := registry.Discover(context.Background(), &plugins.DirSource{Dir: dir}); err != nil {
			return fmt.Errorf("discover plugins: %w", err)
		}
	}

	list := registry.ListPlugins()
	if c.JSON {
		data, err := json.MarshalIndent(registry.Statistics(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	if len(list) == 0 {
		fmt.Println("no plugins registered")
		return nil
	}
	for _, p := range list {
		formatNames := make([]string, len(p.CompatibleFormats))
		for i, f := range p.CompatibleFormats {
			formatNames[i] = string(f)
		}
		fmt.Printf("%s %s (%s)\n", p.ID, p.Version, strings.Join(formatNames, ", "))
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("xats-format %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("xats-format"),
		kong.Description("Bidirectional document rendering and fidelity tooling."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
