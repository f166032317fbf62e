package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/constants"
	"github.com/kozaktomas/doppelganger/internal/database/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the reference catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <dataset.json>",
	Short: "Import a catalog file into PostgreSQL",
	Long: `Import a JSON catalog into PostgreSQL, replacing whatever is stored.

The file is an array of entries with id, image, species, pose, confidence
and has_pose fields. With --synthesize every entry without a detected pose
gets a template pose derived from its id.

Examples:
  doppelganger catalog import monkey_dataset.json
  doppelganger catalog import monkey_dataset.json --synthesize
  doppelganger catalog import monkey_dataset.json --synthesize --output filled.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog from the configured source",
	RunE:  runCatalogList,
}

var catalogSimilarCmd = &cobra.Command{
	Use:   "similar <keypoints.json>",
	Short: "Find the catalog entries nearest to a pose",
	Long: `Find the catalog entries whose pose is nearest to the given keypoints.

By default the search runs on an in-memory HNSW index over upper-body
landmarks. With --db the search runs in PostgreSQL over all landmarks.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogSimilar,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd, catalogSimilarCmd)

	catalogImportCmd.Flags().Bool("synthesize", false, "Generate template poses for entries without one")
	catalogImportCmd.Flags().String("output", "", "Write the (synthesized) catalog to this file instead of PostgreSQL")
	catalogImportCmd.Flags().Uint64("seed", 42, "Seed for pose jitter of entries without a template")

	catalogListCmd.Flags().Bool("json", false, "Output as JSON")

	catalogSimilarCmd.Flags().Int("limit", constants.DefaultSimilarLimit, "Maximum number of results")
	catalogSimilarCmd.Flags().Bool("db", false, "Search in PostgreSQL instead of the in-memory index")
	catalogSimilarCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := context.Background()

	entries, err := catalog.LoadFile(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries found in %s", args[0])
	}
	fmt.Printf("Read %d entries from %s\n", len(entries), args[0])

	if mustGetBool(cmd, "synthesize") {
		seed, _ := cmd.Flags().GetUint64("seed")
		filled := catalog.FillSynthetic(entries, rand.New(rand.NewPCG(seed, seed)))
		fmt.Printf("Synthesized poses for %d entries\n", filled)
	}

	if output := mustGetString(cmd, "output"); output != "" {
		if err := catalog.WriteFile(output, entries); err != nil {
			return err
		}
		fmt.Printf("Wrote %d entries to %s\n", len(entries), output)
		return nil
	}

	pool, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Importing catalog"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("entries"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	repo := postgres.NewCatalogRepository(pool)
	if err := repo.Save(ctx, entries, func() { bar.Add(1) }); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	bar.Finish()

	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nCatalog now holds %d entries\n", count)
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	cat, err := loadCatalog(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(cat.Summaries())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSPECIES\tIMAGE\tPOSE")
	fmt.Fprintln(w, "--\t-------\t-----\t----")
	for _, e := range cat.Entries() {
		poseInfo := "-"
		switch {
		case e.Synthetic:
			poseInfo = "synthetic"
		case len(e.Pose) > 0:
			poseInfo = fmt.Sprintf("%.2f", e.Confidence)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Species, e.Image, poseInfo)
	}
	w.Flush()

	fmt.Printf("\n%d entries, %d with pose\n", cat.Len(), cat.WithPose())
	return nil
}

func runCatalogSimilar(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	ctx := context.Background()

	kp, err := readKeypoints(args[0])
	if err != nil {
		return err
	}
	limit := mustGetInt(cmd, "limit")

	var neighbors []catalog.Neighbor
	if mustGetBool(cmd, "db") {
		pool, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		neighbors, err = postgres.NewCatalogRepository(pool).Nearest(ctx, kp, limit)
		if err != nil {
			return err
		}
	} else {
		cat, err := loadCatalog(ctx, cfg, logger)
		if err != nil {
			return err
		}
		index := catalog.NewPoseIndex()
		index.Build(cat)

		neighbors, err = index.Similar(kp, limit)
		if err != nil {
			return err
		}
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(neighbors)
	}

	if len(neighbors) == 0 {
		fmt.Println("No similar entries found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSPECIES\tDISTANCE\tSCORE")
	fmt.Fprintln(w, "--\t-------\t--------\t-----")
	for _, n := range neighbors {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.1f\n", n.ID, n.Species, n.Distance, n.Score)
	}
	w.Flush()
	return nil
}
