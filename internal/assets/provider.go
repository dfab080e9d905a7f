package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"wine-dashboard/internal/config"
)

var ErrManifestMissing = errors.New("summary manifest not found")

// Availability is the result of EnsureAvailable. Err explains why assets
// are unavailable.
type Availability struct {
	Available bool
	Err       error
}

// Provider locates the precomputed cache and can run the configured
// regeneration command when it is missing.
type Provider struct {
	dir      string
	manifest string
	command  string
	timeout  time.Duration
	logger   *slog.Logger
}

func NewProvider(cfg config.AssetsConfig, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		dir:      cfg.Dir,
		manifest: cfg.Manifest,
		command:  cfg.RegenerateCommand,
		timeout:  cfg.RegenerateTimeout,
		logger:   logger,
	}
}

func (p *Provider) ManifestPath() string {
	return filepath.Join(p.dir, p.manifest)
}

func (p *Provider) EnsureAvailable(ctx context.Context) Availability {
	if _, err := os.Stat(p.ManifestPath()); err == nil {
		return Availability{Available: true}
	}

	if p.command == "" {
		return Availability{Err: ErrManifestMissing}
	}

	if err := p.regenerate(ctx); err != nil {
		return Availability{Err: err}
	}

	if _, err := os.Stat(p.ManifestPath()); err != nil {
		return Availability{Err: fmt.Errorf("regeneration finished without %s: %w", p.manifest, ErrManifestMissing)}
	}
	return Availability{Available: true}
}

func (p *Provider) regenerate(ctx context.Context) error {
	args, err := shellquote.Split(p.command)
	if err != nil {
		return fmt.Errorf("parse regenerate command: %w", err)
	}
	if len(args) == 0 {
		return fmt.Errorf("regenerate command is empty")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	p.logger.Info("regenerating assets", "command", args[0], "args", len(args)-1)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		p.logger.Error("asset regeneration failed",
			"error", err,
			"output", strings.TrimSpace(string(output)),
		)
		return fmt.Errorf("regenerate assets: %w", err)
	}

	p.logger.Info("assets regenerated", "duration", time.Since(start))
	return nil
}

func (p *Provider) Load() (*Manifest, error) {
	file, err := os.Open(p.ManifestPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrManifestMissing
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	return ParseManifest(file)
}

// Resolve maps a manifest path to a file inside the asset directory.
func (p *Provider) Resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid asset path %q", rel)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("asset path %q escapes the asset directory", rel)
	}
	return filepath.Join(p.dir, clean), nil
}
