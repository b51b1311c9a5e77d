package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jroosing/hydradns/internal/config"
	"github.com/jroosing/hydradns/internal/filtering"
)

// BuildPolicyEngine constructs a filtering.PolicyEngine from the resolver's
// config, even when filtering is disabled, so the API surface always has an
// engine to report against.
func BuildPolicyEngine(cfg *config.Config, logger *slog.Logger) *filtering.PolicyEngine {
	blockAction := filtering.ActionBlock
	refresh, _ := time.ParseDuration(cfg.Filtering.RefreshInterval)

	urls := make([]filtering.BlocklistURL, 0, len(cfg.Filtering.Blocklists))
	for _, bl := range cfg.Filtering.Blocklists {
		urls = append(urls, filtering.BlocklistURL{
			Name:   bl.Name,
			URL:    bl.URL,
			Format: blocklistFormat(bl.Format),
		})
	}

	return filtering.NewPolicyEngine(filtering.PolicyEngineConfig{
		Logger:           logger,
		Enabled:          cfg.Filtering.Enabled,
		BlockAction:      blockAction,
		LogBlocked:       cfg.Filtering.LogBlocked,
		LogAllowed:       cfg.Filtering.LogAllowed,
		WhitelistDomains: cfg.Filtering.WhitelistDomains,
		BlacklistDomains: cfg.Filtering.BlacklistDomains,
		BlocklistURLs:    urls,
		RefreshInterval:  refresh,
	})
}

func blocklistFormat(s string) filtering.ListFormat {
	switch strings.ToLower(s) {
	case "domains":
		return filtering.FormatDomains
	case "hosts":
		return filtering.FormatHosts
	case "adblock":
		return filtering.FormatAdblock
	default:
		return filtering.FormatAuto
	}
}

// FormatRateLimitsLog renders the effective rate-limit settings as a single
// log line, letting operators confirm defaulting decisions without reading
// back the full config.
func FormatRateLimitsLog(s RateLimitSettings) string {
	return fmt.Sprintf("global=%gqps/burst%d prefix=%gqps/burst%d ip=%gqps/burst%d",
		s.GlobalQPS, s.GlobalBurst, s.PrefixQPS, s.PrefixBurst, s.IPQPS, s.IPBurst)
}
