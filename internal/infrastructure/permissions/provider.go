// Package permissions stands in for the OS camera/microphone permission
// subsystem. Decisions persist in a YAML grants file; prompting happens on
// a terminal.
package permissions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"rillcast/internal/core/domain"
	"rillcast/internal/core/ports"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type Mode string

const (
	ModePrompt Mode = "prompt"
	ModeGrant  Mode = "grant"
	ModeDeny   Mode = "deny"
)

// Decision is what the grants file stores per capability.
type Decision string

const (
	DecisionGranted Decision = "granted"
	DecisionDenied  Decision = "denied"
	// DecisionBlocked is a denial the user asked not to be prompted about again.
	DecisionBlocked Decision = "blocked"
)

type Grants struct {
	Camera     Decision `yaml:"camera,omitempty"`
	Microphone Decision `yaml:"microphone,omitempty"`
}

func (g *Grants) get(c domain.Capability) Decision {
	if c == domain.CapabilityCamera {
		return g.Camera
	}
	return g.Microphone
}

func (g *Grants) set(c domain.Capability, d Decision) {
	if c == domain.CapabilityCamera {
		g.Camera = d
		return
	}
	g.Microphone = d
}

var ErrNoAnswer = errors.New("no answer to permission prompt")

// PromptProvider implements ports.PermissionProvider.
type PromptProvider struct {
	mode   Mode
	path   string
	in     *bufio.Reader
	out    io.Writer
	logger *zap.SugaredLogger

	readOnce sync.Once
	lines    chan string

	mu sync.Mutex
}

var _ ports.PermissionProvider = (*PromptProvider)(nil)

func NewPromptProvider(mode Mode, path string, in io.Reader, out io.Writer, logger *zap.SugaredLogger) *PromptProvider {
	return &PromptProvider{
		mode:   mode,
		path:   path,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
		lines:  make(chan string),
	}
}

func (p *PromptProvider) Query(ctx context.Context, c domain.Capability) (ports.PermissionResponse, error) {
	switch p.mode {
	case ModeGrant:
		return ports.PermissionResponse{Granted: true, CanAskAgain: true}, nil
	case ModeDeny:
		return ports.PermissionResponse{Granted: false, CanAskAgain: false}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	grants, err := p.load()
	if err != nil {
		return ports.PermissionResponse{}, err
	}
	return response(grants.get(c)), nil
}

// Request prompts unless the capability is already granted or blocked.
func (p *PromptProvider) Request(ctx context.Context, c domain.Capability) (ports.PermissionResponse, error) {
	if p.mode != ModePrompt {
		return p.Query(ctx, c)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	grants, err := p.load()
	if err != nil {
		return ports.PermissionResponse{}, err
	}
	current := grants.get(c)
	if current == DecisionGranted || current == DecisionBlocked {
		return response(current), nil
	}

	decision, err := p.ask(ctx, c)
	if err != nil {
		return ports.PermissionResponse{}, err
	}

	grants.set(c, decision)
	if err := p.save(grants); err != nil {
		return ports.PermissionResponse{}, err
	}
	p.logger.Infow("permission decision recorded", "capability", c, "decision", decision)
	return response(decision), nil
}

// Reset forgets every recorded decision.
func (p *PromptProvider) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset grants: %w", err)
	}
	return nil
}

func (p *PromptProvider) Path() string {
	return p.path
}

func (p *PromptProvider) ask(ctx context.Context, c domain.Capability) (Decision, error) {
	p.readOnce.Do(func() { go p.readLines() })
	fmt.Fprintf(p.out, "Allow rillcast to use the %s? [y/n/never]: ", c)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", ErrNoAnswer
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return DecisionGranted, nil
		case "never":
			return DecisionBlocked, nil
		default:
			return DecisionDenied, nil
		}
	}
}

// readLines is the only reader of p.in. A line read while no prompt is
// waiting answers the next prompt. p.lines is closed at end of input.
func (p *PromptProvider) readLines() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if strings.TrimSpace(line) != "" || err == nil {
			p.lines <- line
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warnw("permission prompt input failed", "error", err)
			}
			return
		}
	}
}

func (p *PromptProvider) load() (*Grants, error) {
	grants := &Grants{}
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return grants, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read grants: %w", err)
	}
	if err := yaml.Unmarshal(data, grants); err != nil {
		return nil, fmt.Errorf("parse grants %s: %w", p.path, err)
	}
	return grants, nil
}

func (p *PromptProvider) save(g *Grants) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode grants: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create grants dir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("write grants: %w", err)
	}
	return nil
}

func response(d Decision) ports.PermissionResponse {
	switch d {
	case DecisionGranted:
		return ports.PermissionResponse{Granted: true, CanAskAgain: true}
	case DecisionBlocked:
		return ports.PermissionResponse{Granted: false, CanAskAgain: false}
	default:
		return ports.PermissionResponse{Granted: false, CanAskAgain: true}
	}
}
