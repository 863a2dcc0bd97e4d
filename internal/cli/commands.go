package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/export"
	"github.com/agenthands/lorekeeper/internal/server"
)

var (
	servePort        int
	ingestConfidence int
	ingestImportance int
	ingestType       string
	ingestSource     string
	exportFormat     string
	exportOut        string
	exportWebhook    bool
	exportWebhookURL string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		return server.NewServer(e.Detector, e.Store).Run(ctx, ":"+strconv.Itoa(port))
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <profile>",
	Short: "Re-check every active fact of a profile and group contradictions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		report, err := e.Detector.RunScan(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <profile> <content>",
	Short: "Store a fact and resolve any contradiction it introduces",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestConfidence < 0 || ingestConfidence > 100 {
			return eris.Errorf("confidence must be between 0 and 100, got %d", ingestConfidence)
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		fact := model.Fact{
			ProfileID:  args[0],
			Content:    args[1],
			Confidence: ingestConfidence,
			Importance: ingestImportance,
			Type:       ingestType,
			Source:     ingestSource,
		}
		group, err := e.Detector.IngestFact(cmd.Context(), &fact)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]interface{}{"fact": fact, "group": group})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <profile> <fact-id>",
	Short: "Dry-run contradiction detection for a stored fact",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		result, group, err := e.Detector.CheckFact(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]interface{}{"result": result, "proposed_group": group})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <profile>",
	Short: "Export a profile's active facts as CSV, LLM-ready text or to a webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		if exportWebhook {
			return pushWebhook(cmd, e, args[0])
		}

		out := cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOut)
			}
			defer f.Close()
			out = f
		}

		n, err := export.Write(cmd.Context(), out, e.Store, args[0], format)
		if err != nil {
			return err
		}
		zap.L().Info("export complete", zap.String("profile_id", args[0]), zap.Int("facts", n), zap.String("format", string(format)))
		return nil
	},
}

func pushWebhook(cmd *cobra.Command, e *env, profileID string) error {
	url := cfg.Export.WebhookURL
	if exportWebhookURL != "" {
		url = exportWebhookURL
	}
	if url == "" {
		return eris.New("export: --webhook needs a URL (--webhook-url, EXPORT_WEBHOOK_URL or [export].webhook_url)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender := export.NewWebhookSender(url, cfg.Export.WebhookInterval(), cfg.Export.WebhookBackoff())
	report, err := export.Push(ctx, sender, e.Store, profileID)
	if err != nil {
		return err
	}
	zap.L().Info("webhook export complete",
		zap.String("profile_id", profileID),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return printJSON(cmd, report)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the facts schema or graph indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		rulesOnly = true
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.Store.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("migration complete", zap.String("store", cfg.Store.Driver))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")

	ingestCmd.Flags().IntVar(&ingestConfidence, "confidence", model.DefaultConfidence, "extraction confidence 0-100")
	ingestCmd.Flags().IntVar(&ingestImportance, "importance", model.DefaultImportance, "importance 1-5")
	ingestCmd.Flags().StringVar(&ingestType, "type", "FACT", "fact type (FACT, STORY, LORE)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "where the fact came from")

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or text")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().BoolVar(&exportWebhook, "webhook", false, "push each active fact to the export webhook instead of writing a file")
	exportCmd.Flags().StringVar(&exportWebhookURL, "webhook-url", "", "webhook URL (overrides config)")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
