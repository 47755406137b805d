package provider

import (
	"fmt"
	"strings"
)

type matchKind int

const (
	matchPrefix matchKind = iota
	matchContains
)

type imageRoute struct {
	kind     matchKind
	pattern  string
	provider ProviderType
}

// imageRoutes is evaluated in order; the first match wins.
var imageRoutes = []imageRoute{
	{matchPrefix, "dall-e", ProviderTypeOpenAI},
	{matchPrefix, "gpt-image", ProviderTypeOpenAI},
	{matchPrefix, "imagen", ProviderTypeGoogle},
	{matchPrefix, "gemini", ProviderTypeGoogle},
	{matchPrefix, "nano-banana", ProviderTypeGoogle},
	{matchContains, "flash", ProviderTypeGoogle},
	{matchPrefix, "stable-diffusion", ProviderTypeLocal},
	{matchPrefix, "sd-", ProviderTypeLocal},
}

func (r imageRoute) matches(name string) bool {
	switch r.kind {
	case matchPrefix:
		return strings.HasPrefix(name, r.pattern)
	case matchContains:
		return strings.Contains(name, r.pattern)
	default:
		return false
	}
}

// ResolveImageProvider maps an image model name to the provider that serves it.
func ResolveImageProvider(modelName string) (ProviderType, error) {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return "", fmt.Errorf("%w: empty model name", ErrUnknownImageModel)
	}
	for _, r := range imageRoutes {
		if r.matches(name) {
			return r.provider, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImageModel, modelName)
}

// ImageModelPatterns returns a readable form of the routing table.
func ImageModelPatterns() map[ProviderType][]string {
	out := make(map[ProviderType][]string)
	for _, r := range imageRoutes {
		p := r.pattern + "*"
		if r.kind == matchContains {
			p = "*" + r.pattern + "*"
		}
		out[r.provider] = append(out[r.provider], p)
	}
	return out
}
