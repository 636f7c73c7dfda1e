package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resumeflow/internal/config"

	"golang.org/x/time/rate"
)

type NamedVisionProvider struct {
	Ref      ProviderRef
	Provider VisionProvider
}

type NamedStructuredProvider struct {
	Ref      ProviderRef
	Provider StructuredProvider
}

type Manager struct {
	visionProviders     []NamedVisionProvider
	structuredProviders []NamedStructuredProvider
}

func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	timeout := time.Duration(cfg.ProviderTimeoutSecond) * time.Second
	var limiter *rate.Limiter
	if cfg.VisionRPS > 0 {
		burst := cfg.VisionBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.VisionRPS), burst)
	}

	m := &Manager{}
	for _, ref := range ParseProviderList(cfg.VisionProviders) {
		p, err := buildProvider(ctx, ref, timeout)
		if err != nil {
			return nil, err
		}
		vision, ok := p.(VisionProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support vision", ref.Raw)
		}
		if limiter != nil {
			vision = NewRateLimitedVision(vision, limiter)
		}
		m.visionProviders = append(m.visionProviders, NamedVisionProvider{Ref: ref, Provider: vision})
	}
	for _, ref := range ParseProviderList(cfg.StructuredProviders) {
		p, err := buildProvider(ctx, ref, timeout)
		if err != nil {
			return nil, err
		}
		structured, ok := p.(StructuredProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support structured output", ref.Raw)
		}
		m.structuredProviders = append(m.structuredProviders, NamedStructuredProvider{Ref: ref, Provider: structured})
	}
	if len(m.visionProviders) == 0 {
		m.visionProviders = []NamedVisionProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	if len(m.structuredProviders) == 0 {
		m.structuredProviders = []NamedStructuredProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	return m, nil
}

func (m *Manager) VisionProviderByIndex(i int) (VisionProvider, ProviderRef) {
	if i < 0 || i >= len(m.visionProviders) {
		i = 0
	}
	return m.visionProviders[i].Provider, m.visionProviders[i].Ref
}

func (m *Manager) StructuredProviderByIndex(i int) (StructuredProvider, ProviderRef) {
	if i < 0 || i >= len(m.structuredProviders) {
		i = 0
	}
	return m.structuredProviders[i].Provider, m.structuredProviders[i].Ref
}

func (m *Manager) VisionCount() int {
	return len(m.visionProviders)
}

func (m *Manager) StructuredCount() int {
	return len(m.structuredProviders)
}

func (m *Manager) PreferredVisionIndex() int {
	return preferredIndex(len(m.visionProviders), func(i int) string { return m.visionProviders[i].Ref.Name })
}

func (m *Manager) PreferredStructuredIndex() int {
	return preferredIndex(len(m.structuredProviders), func(i int) string { return m.structuredProviders[i].Ref.Name })
}

// FindVisionProviderIndex resolves "name" or "name:alias" to an index, or -1.
func (m *Manager) FindVisionProviderIndex(raw string) int {
	refs := make([]ProviderRef, 0, len(m.visionProviders))
	for _, p := range m.visionProviders {
		refs = append(refs, p.Ref)
	}
	return findRef(refs, raw)
}

func (m *Manager) FindStructuredProviderIndex(raw string) int {
	refs := make([]ProviderRef, 0, len(m.structuredProviders))
	for _, p := range m.structuredProviders {
		refs = append(refs, p.Ref)
	}
	return findRef(refs, raw)
}

// preferredIndex returns the first non-mock provider, falling back to 0.
func preferredIndex(n int, nameAt func(i int) string) int {
	for i := 0; i < n; i++ {
		if !strings.EqualFold(nameAt(i), "mock") {
			return i
		}
	}
	return 0
}

func findRef(refs []ProviderRef, raw string) int {
	target := strings.ToLower(strings.TrimSpace(raw))
	if target == "" {
		return -1
	}
	for i, ref := range refs {
		candidates := []string{
			strings.ToLower(strings.TrimSpace(ref.Raw)),
			strings.ToLower(strings.TrimSpace(ref.Name)),
		}
		if ref.KeyAlias != "" {
			candidates = append(candidates, strings.ToLower(strings.TrimSpace(ref.Name+":"+ref.KeyAlias)))
		}
		for _, c := range candidates {
			if c == target {
				return i
			}
		}
	}
	return -1
}

func buildProvider(ctx context.Context, ref ProviderRef, timeout time.Duration) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "gemini":
		g, err := NewGeminiProvider(ctx, ref.KeyAlias, timeout)
		if err != nil {
			return nil, err
		}
		if ref.Model != "" {
			g.visionModel, g.structuredModel = ref.Model, ref.Model
		}
		return g, nil
	case "openai", "groq":
		var o *OpenAIProvider
		if strings.EqualFold(ref.Name, "groq") {
			o = NewGroqProvider(ref.KeyAlias, timeout)
		} else {
			o = NewOpenAIProvider(ref.KeyAlias, timeout)
		}
		if ref.Model != "" {
			o.visionModel, o.structuredModel = ref.Model, ref.Model
		}
		return o, nil
	case "ollama":
		o := NewOllamaProvider(ref.KeyAlias, timeout)
		if ref.Model != "" {
			o.model = ref.Model
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
