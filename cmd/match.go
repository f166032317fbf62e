package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/doppelganger/internal/analyzer"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Match a photo against the catalog",
	Long: `Run one photo through the full pipeline without starting the server.

Pose and expression detection use the configured detector service. With
--repeat the photo is analyzed several times in the same session, which
shows how entropy builds up.

Examples:
  doppelganger match selfie.jpg
  doppelganger match selfie.jpg --repeat 6 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int("repeat", 1, "Number of attempts in the same session")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	ctx := context.Background()

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	a, err := newAnalyzer(ctx, cfg, newMatcher(cfg, cat, logger), logger)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	repeat := max(1, mustGetInt(cmd, "repeat"))
	jsonOutput := mustGetBool(cmd, "json")

	responses := make([]analyzer.Response, 0, repeat)
	sessionID := ""
	for range repeat {
		resp := a.Analyze(ctx, sessionID, image)
		sessionID = resp.Session.SessionID
		responses = append(responses, resp)
		if !jsonOutput {
			printMatch(resp)
		}
	}

	if jsonOutput {
		if repeat == 1 {
			return outputJSON(responses[0])
		}
		return outputJSON(responses)
	}
	return nil
}

func printMatch(resp analyzer.Response) {
	fmt.Printf("Attempt %d (session %s)\n", resp.Attempt, resp.Session.SessionID)
	fmt.Printf("  Match:      %s (%s)\n", resp.MonkeyID, resp.Species)
	fmt.Printf("  Confidence: %.1f%% [%s]", resp.Confidence, resp.MatchQuality)
	if resp.Confidence != resp.RealConfidence {
		fmt.Printf(" real %.1f%%", resp.RealConfidence)
	}
	fmt.Println()
	fmt.Printf("  Pose:       %s, expression %s\n", resp.PoseType, resp.FaceExpression)
	if resp.ChaosMessage != "" {
		fmt.Printf("  Chaos:      %s\n", resp.ChaosMessage)
	}
	if len(resp.MutationsApplied) > 0 {
		fmt.Printf("  Mutations:  %s\n", strings.Join(resp.MutationsApplied, ", "))
	}
	fmt.Printf("  Entropy:    %.3f %s\n", resp.Session.Entropy, resp.Session.EntropyLevel)
	for _, w := range resp.Session.Warnings {
		fmt.Printf("  %s\n", w)
	}
	fmt.Println()
}
