package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/synth"
)

func newRunCmd() *cobra.Command {
	var (
		topic     string
		markets   []string
		timeframe string
		watchName string
		maxResult int
		htmlOut   string
		jsonOut   bool
		offline   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one watch and render the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			q := model.WatchQuery{Topic: topic, Markets: markets}
			if watchName != "" {
				w, err := store.GetWatch(ctx, watchName)
				if err != nil {
					return err
				}
				q = *w
			}
			if cmd.Flags().Changed("timeframe") || watchName == "" {
				tf, err := model.ParseTimeframe(timeframe)
				if err != nil {
					return err
				}
				q.Timeframe = tf
			}
			if len(q.Markets) == 0 {
				q.Markets = cfg.Watch.Markets
			}

			flags := config.NewFlagStore(cfg.Flags())
			if offline {
				flags.Update(func(f *config.Flags) { f.DiscoveryEnabled = false })
			}
			eng, err := engine.NewEngine(cfg, store, flags)
			if err != nil {
				return err
			}

			out, err := eng.Run(ctx, engine.RunOptions{
				Query:      q,
				MaxResults: maxResult,
				ProgressCallback: func(status string, progress int) {
					logger.Log.Debugf("进度 %3d%% %s", progress, status)
				},
			})
			if err != nil {
				return explain(err)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Stats.Caption())
			if htmlOut != "" {
				if err := renderHTML(htmlOut, q, out); err != nil {
					return fmt.Errorf("生成 HTML 失败: %w", err)
				}
				logger.Log.Infof("✅ 报告已生成: %s", htmlOut)
				return nil
			}
			printReport(cmd, out.Report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "product or regulatory topic to watch")
	cmd.Flags().StringSliceVarP(&markets, "markets", "m", nil, "target markets (default from config)")
	cmd.Flags().StringVar(&timeframe, "timeframe", "12mo", "time window: 30d, 12mo, 3y or empty")
	cmd.Flags().StringVarP(&watchName, "watch", "w", "", "run a saved watch by name")
	cmd.Flags().IntVarP(&maxResult, "max", "n", 0, "max discovery results (default from config)")
	cmd.Flags().StringVar(&htmlOut, "html", "", "write an HTML report to this path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the outcome as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip discovery and answer from model knowledge")
	return cmd
}

// explain 为不同失败类型给出对应的处理建议
func explain(err error) error {
	switch {
	case errors.Is(err, engine.ErrNoResults):
		return fmt.Errorf("%w: widen the domains or timeframe, or rerun with --offline", err)
	case errors.Is(err, search.ErrQuotaExceeded), errors.Is(err, search.ErrPermissionDenied):
		return fmt.Errorf("search provider refused the request: %w", err)
	case errors.Is(err, search.ErrMisconfigured), errors.Is(err, engine.ErrNoDomains):
		return fmt.Errorf("check the search configuration: %w", err)
	case errors.Is(err, synth.ErrAnalysisFailed):
		return fmt.Errorf("the LLM step failed, search results were fine: %w", err)
	}
	return err
}

func printReport(cmd *cobra.Command, r *model.Report) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%s\n", r.ExecutiveSummary)
	for i, it := range r.Items {
		fmt.Fprintf(w, "\n%d. [%s/%s] %s", i+1, it.Impact, it.Category, it.Title)
		if it.Date != "" {
			fmt.Fprintf(w, " (%s)", it.Date)
		}
		fmt.Fprintln(w)
		if it.Summary != "" {
			fmt.Fprintf(w, "   %s\n", it.Summary)
		}
		if it.URL != "" {
			fmt.Fprintf(w, "   %s\n", it.URL)
		}
		if len(it.Tags) > 0 {
			fmt.Fprintf(w, "   #%s\n", strings.Join(it.Tags, " #"))
		}
	}
}
