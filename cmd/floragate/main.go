package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/roelfdiedericks/floragate/internal/config"
	"github.com/roelfdiedericks/floragate/internal/gateway"
	fhttp "github.com/roelfdiedericks/floragate/internal/http"
	"github.com/roelfdiedericks/floragate/internal/llm"
	. "github.com/roelfdiedericks/floragate/internal/logging"
	"github.com/roelfdiedericks/floragate/internal/media"
	"github.com/roelfdiedericks/floragate/internal/metrics"
	"github.com/roelfdiedericks/floragate/internal/types"
)

var version = "0.1.0"

// Context is passed to every command's Run
type Context struct {
	ConfigPath string
	Debug      bool
}

// CLI defines the command-line interface
type CLI struct {
	Config string `short:"c" help:"Config file (JSON, TOML or YAML)" type:"path" env:"FLORA_CONFIG"`
	Debug  bool   `short:"d" help:"Enable debug logging"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP gateway (default)"`
	Ask     AskCmd     `cmd:"" help:"Send one chat message through the full cascade"`
	Draw    DrawCmd    `cmd:"" help:"Generate one image through the image providers"`
	Check   CheckCmd   `cmd:"" help:"Validate config and list providers"`
	Init    InitCmd    `cmd:"" help:"Write an example config file"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

// setup loads config and initializes logging from it
func setup(ctx *Context) (*config.Config, error) {
	cfg, _, err := load(ctx)
	return cfg, err
}

func load(ctx *Context) (*config.Config, string, error) {
	cfg, path, err := config.Load(ctx.ConfigPath)
	if err != nil {
		return nil, "", err
	}

	level := ParseLevel(cfg.LogLevel)
	if ctx.Debug {
		level = LevelDebug
	}
	Init(&Config{
		Level:      level,
		TimeFormat: "15:04:05",
		ShowCaller: level >= LevelDebug,
		JSON:       cfg.LogJSON,
	})
	if path != "" {
		L_debug("config: using file", "path", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, path, nil
}

// ServeCmd runs the HTTP gateway until interrupted
type ServeCmd struct {
	Watch bool `default:"true" negatable:"" help:"Rebuild the provider chain when the config file changes"`
}

func (c *ServeCmd) Run(ctx *Context) error {
	cfg, path, err := load(ctx)
	if err != nil {
		return err
	}
	L_info("floragate %s starting", version)

	gw, err := gateway.FromConfig(cfg)
	if err != nil {
		return err
	}
	srv, err := fhttp.NewServer(&fhttp.ServerConfig{
		Listen:            cfg.Listen,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		AllowOrigin:       cfg.CORSOrigin(),
		TrustProxy:        cfg.HTTP.TrustProxy,
		ShutdownTimeout:   cfg.ShutdownTimeout(),
	}, gw)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	L_info("floragate ready", "addr", srv.Addr(), "providers", gw.Registry().Len())

	if cfg.MetricsReport != "off" {
		r, err := metrics.StartReporter(metrics.GetInstance(), cfg.MetricsReport)
		if err != nil {
			L_warn("metrics: reporter disabled", "error", err)
		} else {
			defer r.Stop()
		}
	}

	if c.Watch && path != "" {
		w, err := config.NewWatcher(path, 0, func() { reload(ctx, srv) })
		if err != nil {
			L_warn("config: watch disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	L_info("floragate shutting down")
	return srv.Stop()
}

// reload rebuilds the gateway from disk. A broken edit keeps the running
// gateway; listen address and HTTP limits need a restart.
func reload(ctx *Context, srv *fhttp.Server) {
	cfg, _, err := load(ctx)
	if err != nil {
		L_error("config: reload failed, keeping current providers", "error", err)
		return
	}
	gw, err := gateway.FromConfig(cfg)
	if err != nil {
		L_error("config: reload failed, keeping current providers", "error", err)
		return
	}
	srv.SetGateway(gw)
	L_info("config: reloaded", "providers", gw.Registry().Len())
}

// AskCmd sends one message and prints the reply
type AskCmd struct {
	Message  []string `arg:"" optional:"" help:"Message text"`
	Image    string   `short:"i" type:"existingfile" help:"Attach an image file"`
	Provider string   `short:"p" help:"Preferred provider ID"`
}

func (c *AskCmd) Run(ctx *Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	gw, err := gateway.FromConfig(cfg)
	if err != nil {
		return err
	}

	req := types.ChatRequest{
		Message:      strings.Join(c.Message, " "),
		ProviderHint: c.Provider,
	}
	if c.Image != "" {
		data, err := os.ReadFile(c.Image)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		img := media.ImageData{Data: data, MimeType: media.DetectMIME(data)}
		req.Image = img.Attachment().DataURI()
	}

	reply, err := gw.Chat(requestContext(), req)
	if err != nil {
		return err
	}
	fmt.Println(reply.Reply)
	if reply.Exhausted {
		L_warn("ask: every provider failed", "attempts", reply.Attempts)
	} else {
		L_debug("ask: answered", "provider", reply.Provider, "model", reply.Model, "attempts", reply.Attempts, "augmented", reply.Augmented)
	}
	return nil
}

// DrawCmd generates one image and prints its URL
type DrawCmd struct {
	Prompt   []string `arg:"" help:"Image prompt"`
	Provider string   `short:"p" help:"Preferred provider ID"`
}

func (c *DrawCmd) Run(ctx *Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	gw, err := gateway.FromConfig(cfg)
	if err != nil {
		return err
	}

	reply, err := gw.Draw(requestContext(), types.DrawRequest{
		Prompt:       strings.Join(c.Prompt, " "),
		ProviderHint: c.Provider,
	})
	if err != nil {
		return err
	}
	fmt.Println(reply.Reply)
	if reply.URL != "" {
		fmt.Println(reply.URL)
	}
	return nil
}

// CheckCmd validates config and lists the provider chain
type CheckCmd struct{}

func (c *CheckCmd) Run(ctx *Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	descs, err := cfg.Descriptors()
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("floragate " + version))
	fmt.Printf("listen  %s\n\n", cfg.Listen)

	fmt.Println(titleStyle.Render("fallback order"))
	for _, cp := range []llm.Capability{llm.CapabilityText, llm.CapabilityVision, llm.CapabilityImage} {
		var chain []string
		for i := range descs {
			if descs[i].Has(cp) {
				chain = append(chain, descs[i].ID)
			}
		}
		line := strings.Join(chain, " -> ")
		if line == "" {
			line = warnStyle.Render("none")
		}
		fmt.Printf("  %-7s %s\n", string(cp), line)
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("providers"))
	for _, d := range descs {
		creds := okStyle.Render(fmt.Sprintf("%d credentials", len(d.Credentials)))
		if len(d.Credentials) == 0 {
			creds = warnStyle.Render("no credentials")
		}
		fmt.Printf("  %-14s %s %s\n", d.ID, creds,
			dimStyle.Render(fmt.Sprintf("driver=%s models=%d timeout=%s", d.Driver, len(d.Models), d.Timeout)))
	}

	fmt.Println()
	switch {
	case cfg.Search.Driver == "":
		fmt.Println("search  " + dimStyle.Render("disabled"))
	case cfg.SearchKey() == "":
		fmt.Println("search  " + warnStyle.Render(cfg.Search.Driver+" (no API key, augmentation off)"))
	default:
		fmt.Println("search  " + okStyle.Render(cfg.Search.Driver))
	}
	return nil
}

// InitCmd writes the example config
type InitCmd struct {
	Path  string `arg:"" optional:"" default:"floragate.json" help:"Where to write the config"`
	Force bool   `short:"f" help:"Overwrite an existing file"`
}

func (c *InitCmd) Run(ctx *Context) error {
	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
	}
	if err := config.Save(c.Path, config.Example()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(c.Path)
	fmt.Printf("wrote %s\n", abs)
	return nil
}

// VersionCmd shows version
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *Context) error {
	fmt.Printf("floragate %s\n", version)
	return nil
}

func requestContext() context.Context {
	return types.WithRequestID(context.Background(), "cli-"+uuid.NewString()[:8])
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("floragate"),
		kong.Description("Multi-provider chat and image gateway"),
		kong.UsageOnError(),
	)

	err := kctx.Run(&Context{
		ConfigPath: cli.Config,
		Debug:      cli.Debug,
	})
	kctx.FatalIfErrorf(err)
}
