package cmd

import (
	"fmt"

	"github.com/grata-labs/gitcache/pkg/contentcache"
	"github.com/grata-labs/gitcache/pkg/gcmetrics"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/spf13/cobra"
)

var (
	statusDetailedFlag bool
	statusJSONFlag     bool
)

type statusReport struct {
	CacheRoot  string              `json:"cacheRoot"`
	Platform   string              `json:"platform"`
	Auth       authStatus          `json:"auth"`
	Tiers      []tierStatus        `json:"tiers"`
	Content    contentcache.Stats  `json:"content"`
	Metrics    *gcmetrics.Snapshot `json:"metrics,omitempty"`
}

type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Kind          string `json:"kind,omitempty"`
	OrgID         string `json:"orgId,omitempty"`
}

type tierStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache hierarchy, auth, and content-store state",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		logger := newLogger(root)

		authRecord, err := loadAuth(root)
		if err != nil {
			return err
		}

		regClient := newRegistryClient(root, authRecord)
		h := buildHierarchy(root, regClient, authRecord.Token, gcpath.Platform(), false, logger)

		ctx, cancel := interruptContext()
		defer cancel()

		var tiers []tierStatus
		for _, s := range h.GetStatus(ctx) {
			tiers = append(tiers, tierStatus{Name: s.Name, Available: s.Available})
		}

		stats, err := contentcache.New(gcpath.ContentRoot(root)).GetStats()
		if err != nil {
			return err
		}

		report := statusReport{
			CacheRoot: root,
			Platform:  gcpath.Platform(),
			Auth: authStatus{
				Authenticated: authRecord.IsAuthenticated(),
				Kind:          string(authRecord.Kind),
				OrgID:         authRecord.OrgID,
			},
			Tiers:   tiers,
			Content: stats,
		}

		if statusDetailedFlag {
			snap, err := gcmetrics.Gather()
			if err != nil {
				return err
			}
			report.Metrics = &snap
		}

		if statusJSONFlag {
			return output.FormatOutput(report, output.JSON)
		}

		kv := output.NewKeyValue("gitcache status")
		kv.Add("cacheRoot", report.CacheRoot)
		kv.Add("platform", report.Platform)
		kv.Add("authenticated", fmt.Sprintf("%v", report.Auth.Authenticated))
		if report.Auth.Authenticated {
			kv.Add("tokenKind", report.Auth.Kind)
			kv.Add("orgId", report.Auth.OrgID)
		}
		kv.AddSection()
		for _, t := range report.Tiers {
			kv.Add("tier:"+t.Name, fmt.Sprintf("available=%v", t.Available))
		}
		kv.AddSection()
		kv.Add("contentCacheFiles", fmt.Sprintf("%d", report.Content.FileCount))
		kv.Add("contentCacheMiB", fmt.Sprintf("%.2f", report.Content.TotalMiB))

		if report.Metrics != nil {
			kv.AddSection()
			for tier, n := range report.Metrics.HitsByTier {
				kv.Add("hits:"+tier, fmt.Sprintf("%.0f", n))
			}
			for tier, n := range report.Metrics.MissesByTier {
				kv.Add("misses:"+tier, fmt.Sprintf("%.0f", n))
			}
			kv.Add("bytesPruned", fmt.Sprintf("%.0f", report.Metrics.BytesPruned))
		}

		return kv.Format(output.Table)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusDetailedFlag, "detailed", false, "include prometheus counter snapshot")
	statusCmd.Flags().BoolVar(&statusJSONFlag, "json", false, "emit JSON instead of key-value text")
}
