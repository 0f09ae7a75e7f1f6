package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-content-dedup/internal/domain"
	"github.com/tbourn/go-content-dedup/internal/services"
)

// contentFlags are shared by check and remember.
type contentFlags struct {
	text      string
	imagePath string
	videoPath string
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", `post text ("-" reads stdin)`)
	cmd.Flags().StringVar(&f.imagePath, "image", "", "path to the image file")
	cmd.Flags().StringVar(&f.videoPath, "video", "", "path to the video file")
}

func (f *contentFlags) candidate(cmd *cobra.Command) (domain.Candidate, error) {
	var c domain.Candidate
	c.Text = f.text
	if f.text == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return c, fmt.Errorf("read stdin: %w", err)
		}
		c.Text = string(b)
	}
	var err error
	if c.Image, err = readMedia(f.imagePath); err != nil {
		return c, err
	}
	if c.Video, err = readMedia(f.videoPath); err != nil {
		return c, err
	}
	return c, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) checkCommand() *cobra.Command {
	var (
		cf         contentFlags
		withinDays int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether content was already published within the window",
		Long: `Check compares the candidate against stored fingerprints. It exits 3
when a duplicate is found and 0 when the content is new.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.candidate(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("within-days") {
				withinDays = a.cfg.WindowDays
			}
			return a.withStore(func(svc *services.DedupService) error {
				res, err := svc.Check(cmd.Context(), c, withinDays)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if err := writeJSON(out, res); err != nil {
						return err
					}
				} else if res.Duplicate {
					fmt.Fprintln(out, res.Explanation)
				} else {
					fmt.Fprintf(out, "unique within %dd\n", res.WithinDays)
				}
				if res.Duplicate {
					return ErrDuplicateFound
				}
				return nil
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().IntVar(&withinDays, "within-days", 0, "recency window in days (default DEDUP_WINDOW_DAYS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func (a *app) rememberCommand() *cobra.Command {
	var (
		cf        contentFlags
		platform  string
		sourceURL string
		note      string
		ifNew     bool
	)
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Record content as published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.candidate(cmd)
			if err != nil {
				return err
			}
			in := domain.RecordInput{Candidate: c, Platform: platform, SourceURL: sourceURL, Note: note}
			return a.withStore(func(svc *services.DedupService) error {
				if ifNew {
					res, rec, err := svc.InsertIfNew(cmd.Context(), in, a.cfg.WindowDays)
					if err != nil {
						return err
					}
					if res.Duplicate {
						fmt.Fprintln(cmd.OutOrStdout(), res.Explanation)
						return ErrDuplicateFound
					}
					return writeJSON(cmd.OutOrStdout(), rec)
				}
				rec, err := svc.Remember(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&platform, "platform", "", "platform label, e.g. twitter")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "where the content was published")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	cmd.Flags().BoolVar(&ifNew, "if-new", false, "record only when no duplicate exists in the window (exit 3 otherwise)")
	return cmd
}

func (a *app) purgeCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete records older than the retention horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("older-than-days") {
				days = a.cfg.RetentionDays
			}
			if days < 0 {
				return fmt.Errorf("--older-than-days must be >= 0, got %d", days)
			}
			return a.withStore(func(svc *services.DedupService) error {
				n, err := svc.Purge(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records older than %dd\n", n, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than-days", 0, "age cutoff in days (default DEDUP_RETENTION_DAYS)")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(svc *services.DedupService) error {
				st, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}
