package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/outreach-labs/contact-pipeline/internal/config"
	"github.com/outreach-labs/contact-pipeline/internal/connectors"
	"github.com/outreach-labs/contact-pipeline/internal/contacts"
	"github.com/outreach-labs/contact-pipeline/internal/domains"
	"github.com/outreach-labs/contact-pipeline/internal/fetch"
	"github.com/outreach-labs/contact-pipeline/internal/fuzzy"
	"github.com/outreach-labs/contact-pipeline/internal/llm"
	"github.com/outreach-labs/contact-pipeline/internal/pipeline"
	"github.com/outreach-labs/contact-pipeline/internal/ratelimit"
	"github.com/outreach-labs/contact-pipeline/internal/scoring"
	"github.com/outreach-labs/contact-pipeline/internal/telemetry"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// buildRunner wires the full stack from a merged config: connectors, limiter,
// budget, scorer, both waterfalls, and the orchestrator. The returned cleanup
// releases the LLM client.
func buildRunner(ctx context.Context, cfg config.Config, emitter *telemetry.Emitter) (*pipeline.Runner, func(), error) {
	matcher := fuzzy.NewMatcher(cfg.IndustrySuffixes)

	enabled := enabledSet(cfg)
	fetchOpts := fetch.DefaultOptions()
	if cfg.ConnectorTimeoutSec > 0 {
		fetchOpts.Timeout = time.Duration(cfg.ConnectorTimeoutSec) * time.Second
	}

	// Connectors, in waterfall order.
	var conns []connectors.Connector
	var placesClient *connectors.PlacesClient
	var searchClient *connectors.SearchClient

	if enabled[types.SourcePlaces] {
		if cfg.PlacesAPIKey == "" {
			return nil, nil, fmt.Errorf("places connector enabled but no places API key configured")
		}
		placesClient = connectors.NewPlacesClient(cfg.PlacesAPIKey)
		conns = append(conns, &connectors.PlacesConnector{Client: placesClient})
	}
	if enabled[types.SourceWebsite] {
		conns = append(conns, &connectors.WebsiteConnector{
			FetchOptions: fetchOpts,
			UseBrowser:   cfg.UseBrowser,
		})
	}
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		searchClient = connectors.NewSearchClient(cfg.SearchAPIKey, cfg.SearchEngineID)
	}
	if enabled[types.SourceSocial] {
		if searchClient == nil {
			return nil, nil, fmt.Errorf("social connector enabled but search API key or engine ID missing")
		}
		conns = append(conns, &connectors.SocialConnector{Client: searchClient})
	}
	if enabled[types.SourceOSINT] {
		if searchClient == nil {
			return nil, nil, fmt.Errorf("osint connector enabled but search API key or engine ID missing")
		}
		conns = append(conns, &connectors.OSINTConnector{Client: searchClient})
	}
	if enabled[types.SourceDirectory] && cfg.DirectoryAPIKey != "" && cfg.DirectoryBaseURL != "" {
		conns = append(conns, &connectors.DirectoryConnector{
			Client: connectors.NewDirectoryClient(cfg.DirectoryAPIKey, cfg.DirectoryBaseURL),
		})
	}
	if len(conns) == 0 {
		return nil, nil, fmt.Errorf("no connectors enabled; check credentials and enabled_connectors")
	}

	reliability := make(map[types.SourceTag]float64, len(conns))
	for _, conn := range conns {
		reliability[conn.Tag()] = conn.ReliabilityWeight()
	}

	scorer := scoring.NewScorer(matcher, reliability, cfg.ValidThreshold)
	scorer.OnViolation = func(detail string) {
		emitter.InvariantViolation("", detail)
	}

	limiter := ratelimit.NewLimiter(ratelimit.ConnectorLimit{}, connectorLimits(cfg))
	budget := ratelimit.NewBudgetCounter(cfg.CostBudget)

	caller := &connectors.Caller{
		Limiter:  limiter,
		Budget:   budget,
		Emitter:  emitter,
		Timeouts: connectorTimeouts(cfg),
	}

	// Deep verification judge: LLM-backed when a key is configured, rule-based
	// otherwise.
	cleanup := func() {}
	verifier := &domains.Verifier{FetchOptions: fetchOpts}
	if cfg.GeminiAPIKey != "" {
		client, err := llm.NewGeminiClient(ctx, nil, cfg.GeminiAPIKey)
		if err != nil {
			emitter.Logger().Warn("LLM client unavailable, deep verification falls back to rules", zap.Error(err))
		} else {
			verifier.LLM = client
			cleanup = func() { _ = client.Close() }
		}
	}

	runner := &pipeline.Runner{
		Domains: &domains.Resolver{
			Places:            placesClient,
			Search:            searchClient,
			Verifier:          verifier,
			Matcher:           matcher,
			Emitter:           emitter,
			FetchOptions:      fetchOpts,
			AutoAccept:        cfg.AutoAccept,
			NeedsVerification: cfg.NeedsVerification,
		},
		Contacts: &contacts.Waterfall{
			Connectors:         conns,
			Caller:             caller,
			Scorer:             scorer,
			Emitter:            emitter,
			EarlyExitThreshold: cfg.EarlyExitThreshold,
			NeedsVerification:  cfg.NeedsVerification,
		},
		Emitter:        emitter,
		Budget:         budget,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	return runner, cleanup, nil
}

// enabledSet expands the enabled_connectors list; empty means all.
func enabledSet(cfg config.Config) map[types.SourceTag]bool {
	enabled := make(map[types.SourceTag]bool)
	if len(cfg.EnabledConnectors) == 0 {
		for _, tag := range types.AllSourceTags() {
			enabled[tag] = true
		}
		return enabled
	}
	for _, tag := range cfg.EnabledConnectors {
		enabled[types.SourceTag(tag)] = true
	}
	return enabled
}

func connectorLimits(cfg config.Config) map[types.SourceTag]ratelimit.ConnectorLimit {
	limits := make(map[types.SourceTag]ratelimit.ConnectorLimit, len(cfg.ConnectorRates))
	for tag, perMinute := range cfg.ConnectorRates {
		limits[types.SourceTag(tag)] = ratelimit.ConnectorLimit{CallsPerMinute: perMinute}
	}
	return limits
}

// connectorTimeouts expands the scalar default across every tag, then applies
// per-tag overrides on top.
func connectorTimeouts(cfg config.Config) map[types.SourceTag]time.Duration {
	timeouts := make(map[types.SourceTag]time.Duration, len(types.AllSourceTags()))
	if cfg.ConnectorTimeoutSec > 0 {
		for _, tag := range types.AllSourceTags() {
			timeouts[tag] = time.Duration(cfg.ConnectorTimeoutSec) * time.Second
		}
	}
	for tag, secs := range cfg.ConnectorTimeouts {
		if secs > 0 {
			timeouts[types.SourceTag(tag)] = time.Duration(secs) * time.Second
		}
	}
	if len(timeouts) == 0 {
		return nil
	}
	return timeouts
}
