package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/songmatch/internal/apiclient"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/worker"
)

const defaultServer = "http://127.0.0.1:8080"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "songctl",
		Short:         "Command-line client for the songmatch API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("server", envOr("SONGMATCH_SERVER", defaultServer), "API base URL")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().Bool("json", false, "print raw JSON responses")

	root.AddCommand(
		searchCmd(),
		recommendCmd(),
		featuresCmd(),
		describeCmd(),
		playlistCmd(),
		importCmd(),
		infoCmd(),
	)
	return root
}

func client(cmd *cobra.Command) *apiclient.Client {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return apiclient.New(server, timeout)
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search songs by title or artist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			songs, err := client(cmd).Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return output(cmd, songs, func(w io.Writer) {
				printSongs(w, songs)
			})
		},
	}
	cmd.Flags().Int("limit", 20, "maximum results")
	return cmd
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <title>",
		Short: "Recommend songs similar to a catalog song",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artist, _ := cmd.Flags().GetString("artist")
			n, _ := cmd.Flags().GetInt("limit")
			recs, err := client(cmd).RecommendBySong(cmd.Context(), strings.Join(args, " "), artist, n)
			if err != nil {
				return err
			}
			return output(cmd, recs, func(w io.Writer) {
				fmt.Fprintf(w, "Seed: %s by %s\n\n", recs.Seed.Title, recs.Seed.Artist)
				printRecommendations(w, recs.Results)
			})
		},
	}
	cmd.Flags().String("artist", "", "artist of the seed song")
	cmd.Flags().IntP("limit", "n", 0, "number of results (server default when 0)")
	return cmd
}

func featuresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Recommend songs closest to target audio features",
		Example: "  songctl features --set energy=0.9 --set valence=0.8\n" +
			"  unset features default to 0.5; known: " + strings.Join(domain.FeatureNames, ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sets, _ := cmd.Flags().GetStringArray("set")
			features, err := parseFeatureSets(sets)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("limit")
			recs, err := client(cmd).RecommendByFeatures(cmd.Context(), features, n)
			if err != nil {
				return err
			}
			return output(cmd, recs, func(w io.Writer) {
				printRecommendations(w, recs.Results)
			})
		},
	}
	cmd.Flags().StringArray("set", nil, "feature=value, value in [0,1]; repeatable")
	cmd.Flags().IntP("limit", "n", 0, "number of results (server default when 0)")
	return cmd
}

func describeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <text>",
		Short: "Recommend songs from a free-text description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("limit")
			recs, err := client(cmd).RecommendByDescription(cmd.Context(), strings.Join(args, " "), n)
			if err != nil {
				return err
			}
			return output(cmd, recs, func(w io.Writer) {
				if recs.Intent.Explanation != "" {
					fmt.Fprintf(w, "%s\n\n", recs.Intent.Explanation)
				}
				printRecommendations(w, recs.Results)
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "number of results (server default when 0)")
	return cmd
}

func playlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist <seed>",
		Short: "Generate a playlist around a seed song",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			length, _ := cmd.Flags().GetInt("length")
			diversity, _ := cmd.Flags().GetFloat64("diversity")
			name, _ := cmd.Flags().GetString("name")
			pl, err := client(cmd).CreatePlaylist(cmd.Context(), apiclient.PlaylistRequest{
				Seed:      strings.Join(args, " "),
				Length:    length,
				Diversity: diversity,
				Name:      name,
			})
			if err != nil {
				return err
			}
			return output(cmd, pl, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n\n", pl.Name, pl.ID)
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tTITLE\tARTIST\tSCORE")
				for i, t := range pl.Tracks {
					title := t.Song.Title
					if t.IsSeed {
						title += " (seed)"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\n", i+1, title, t.Song.Artist, t.Score)
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().Int("length", 10, "number of tracks, 5 to 25")
	cmd.Flags().Float64("diversity", 0.5, "0.1 (similar) to 1.0 (varied)")
	cmd.Flags().String("name", "", "playlist name")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [source]",
		Short: "Import a dataset (path, file:// or s3:// URL) into the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			c := client(cmd)
			job, err := c.StartImport(cmd.Context(), source)
			if err != nil {
				return err
			}
			if wait, _ := cmd.Flags().GetBool("wait"); wait {
				if job, err = waitForJob(cmd.Context(), c, job.ID); err != nil {
					return err
				}
			}
			return output(cmd, job, func(w io.Writer) {
				fmt.Fprintf(w, "job %s: %s", job.ID, job.Status)
				if job.Status == worker.StatusSucceeded {
					fmt.Fprintf(w, " (%d songs, %d warnings)", job.Songs, job.Warnings)
				}
				if job.Error != "" {
					fmt.Fprintf(w, ": %s", job.Error)
				}
				fmt.Fprintln(w)
			})
		},
	}
	cmd.Flags().Bool("wait", true, "wait for the import to finish")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the loaded catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := client(cmd).Catalog(cmd.Context())
			if err != nil {
				return err
			}
			return output(cmd, info, func(w io.Writer) {
				fmt.Fprintf(w, "source:   %s\n", info.Source)
				fmt.Fprintf(w, "songs:    %d\n", info.Songs)
				fmt.Fprintf(w, "version:  %s\n", info.Version)
				fmt.Fprintf(w, "loaded:   %s\n", info.LoadedAt.Format(time.RFC3339))
				fmt.Fprintf(w, "warnings: %d\n", len(info.Warnings))
				for _, lw := range info.Warnings {
					fmt.Fprintf(w, "  %s\n", lw)
				}
			})
		},
	}
}

func waitForJob(ctx context.Context, c *apiclient.Client, id string) (worker.Job, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, err := c.ImportStatus(ctx, id)
		if err != nil {
			return worker.Job{}, err
		}
		if job.Status == worker.StatusSucceeded || job.Status == worker.StatusFailed {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// parseFeatureSets turns "name=value" pairs into a feature map.
func parseFeatureSets(sets []string) (map[string]float64, error) {
	out := make(map[string]float64, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, want feature=value", s)
		}
		if !domain.IsFeature(name) {
			return nil, fmt.Errorf("unknown feature %q (known: %s)", name, strings.Join(domain.FeatureNames, ", "))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("feature %s: value %q must be a number in [0,1]", name, raw)
		}
		out[name] = v
	}
	return out, nil
}

func output(cmd *cobra.Command, v any, human func(io.Writer)) error {
	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	human(w)
	return nil
}

func printSongs(w io.Writer, songs []domain.Song) {
	if len(songs) == 0 {
		fmt.Fprintln(w, "no songs found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTITLE\tARTIST\tGENRE")
	for _, s := range songs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Index, s.Title, s.Artist, s.Genre)
	}
	tw.Flush()
}

func printRecommendations(w io.Writer, recs []domain.Recommendation) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tARTIST\tSCORE")
	for i, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\n", i+1, r.Song.Title, r.Song.Artist, r.Score)
	}
	tw.Flush()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
