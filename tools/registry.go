package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/devcrew/types"
)

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Metadata carries optional per-tool execution settings.
type Metadata struct {
	RateLimit *RateLimitConfig // optional
	Timeout   time.Duration    // zero means no timeout
}

// RateLimitConfig defines rate limit configuration.
type RateLimitConfig struct {
	MaxCalls int           `yaml:"max_calls" json:"max_calls"`
	Window   time.Duration `yaml:"window" json:"window"`
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	if c.MaxCalls <= 0 || c.Window <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(c.Window/time.Duration(c.MaxCalls)), c.MaxCalls)
}

// Descriptor is the public description of a registered tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Registry holds tools keyed by unique name.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	metadata map[string]Metadata
	limiters map[string]*rate.Limiter
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:    make(map[string]Tool),
		metadata: make(map[string]Metadata),
		limiters: make(map[string]*rate.Limiter),
		logger:   logger.With(zap.String("component", "tool_registry")),
	}
}

// Register adds a tool with default metadata.
func (r *Registry) Register(tool Tool) error {
	return r.RegisterWithMetadata(tool, Metadata{})
}

// RegisterWithMetadata adds a tool. Names must be unique.
func (r *Registry) RegisterWithMetadata(tool Tool, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	r.metadata[name] = meta
	if meta.RateLimit != nil {
		if l := meta.RateLimit.limiter(); l != nil {
			r.limiters[name] = l
		}
	}

	r.logger.Info("tool registered", zap.String("name", name), zap.Duration("timeout", meta.Timeout))
	return nil
}

// SetRateLimit installs or replaces a limiter for an already registered tool.
func (r *Registry) SetRateLimit(name string, cfg RateLimitConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	meta := r.metadata[name]
	meta.RateLimit = &cfg
	r.metadata[name] = meta
	if l := cfg.limiter(); l != nil {
		r.limiters[name] = l
	} else {
		delete(r.limiters, name)
	}
	return nil
}

// Unregister removes a tool.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	delete(r.tools, name)
	delete(r.metadata, name)
	delete(r.limiters, name)

	r.logger.Info("tool unregistered", zap.String("name", name))
	return nil
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns descriptors sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs a tool by name, waiting on its rate limiter and applying its timeout.
// Unknown names return an error wrapping ErrToolNotFound.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (types.ToolResult, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	meta := r.metadata[name]
	limiter := r.limiters[name]
	r.mu.RUnlock()

	if !ok {
		return types.ToolResult{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return types.ToolResult{}, fmt.Errorf("rate limit wait for tool %s: %w", name, err)
		}
	}

	if meta.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, meta.Timeout)
		defer cancel()
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return types.ToolResult{}, err
	}
	if result.Name == "" {
		result.Name = name
	}
	return result, nil
}
