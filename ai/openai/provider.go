// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/docrag/ai"
)

// Provider bundles the embedding and vision clients built from one
// ai.Config. The two may point at different hosts.
type Provider struct {
	embedder  *Embedder
	describer *ImageDescriber
	logger    *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// ProviderOption configures NewProvider.
type ProviderOption func(*Provider) error

// WithLogger sets the logger shared by the provider's clients.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) error {
		p.logger = logger
		return nil
	}
}

// NewProvider validates config, which fills in host and model defaults,
// and builds both clients.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	var err error
	if p.embedder, err = newEmbedder(config); err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if p.describer, err = newImageDescriber(config); err != nil {
		return nil, fmt.Errorf("image describer: %w", err)
	}
	p.embedder.logger = p.logger.With("component", "openai-embedder", "model", config.EmbeddingModel)
	p.describer.logger = p.logger.With("component", "openai-describer", "model", config.VisionModel)
	p.logger = p.logger.With("component", "openai-provider")

	p.logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"vision_host", config.VisionHost,
		"dimension", config.EmbeddingDimension)
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) ImageDescriber() ai.ImageDescriber {
	return p.describer
}

// Close is a no-op; the HTTP clients hold no resources that need releasing.
func (p *Provider) Close() error {
	return nil
}
