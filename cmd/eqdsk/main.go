// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mdhender/eqdsk"
	"github.com/mdhender/eqdsk/config"
	"github.com/mdhender/eqdsk/pipelines/batch"
	store "github.com/mdhender/eqdsk/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().StringP("config-file", "c", "", "load configuration from file")
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", false, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		cmd.PersistentFlags().String("tokenizer", "", "field splitting: auto, fixed or whitespace")
		cmd.PersistentFlags().Bool("verbose", false, "log more information")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "eqdsk",
		Short: "G-EQDSK command line utility",
		Long:  `Parse, convert and catalog G-EQDSK tokamak equilibrium files`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("eqdsk: version %q\n", eqdsk.Version().Core())
			}

			return nil
		},
	}
	cmdRoot.AddCommand(cmdParse())
	cmdRoot.AddCommand(cmdSummary())
	cmdRoot.AddCommand(cmdConvert())
	cmdRoot.AddCommand(cmdIngest())
	cmdRoot.AddCommand(cmdList())
	cmdRoot.AddCommand(cmdTokens())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// settings loads the configuration file, if any, and applies the
// command line overrides.
func settings(cmd *cobra.Command) (*config.Config, []eqdsk.Option, error) {
	cfg := config.Default()
	if configFile, _ := cmd.Flags().GetString("config-file"); configFile != "" {
		var err error
		if cfg, err = config.Load(afero.NewOsFs(), configFile); err != nil {
			return nil, nil, err
		}
	}
	if tokenizer, _ := cmd.Flags().GetString("tokenizer"); tokenizer != "" {
		cfg.Reader.Tokenizer = tokenizer
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	options, err := cfg.Options()
	if err != nil {
		return nil, nil, err
	}
	options = append(options, eqdsk.WithLogger(logger(cmd)))
	return cfg, options, nil
}

// logger returns the structured logger handed to the library packages.
func logger(cmd *cobra.Command) *slog.Logger {
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	debug, _ := cmd.Flags().GetBool("debug")
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	} else if verbose && !quiet {
		level = slog.LevelInfo
	} else if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// load reads and parses a single file, printing a diagnostic on failure.
func load(path string, options []eqdsk.Option) (*eqdsk.Content, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &eqdsk.IOError{Op: "read", Path: path, Err: err}
	}
	c, err := eqdsk.Parse(path, data, options...)
	if err != nil {
		eqdsk.PrintDiagnostic(os.Stderr, err, data)
		return nil, data, err
	}
	return c, data, nil
}

func cmdParse() *cobra.Command {
	var outputFile string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVarP(&outputFile, "output", "o", outputFile, "save parse to file")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "parse <g-eqdsk-file>",
		Short:        "parse a G-EQDSK file and print it as JSON",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1), // require path to the equilibrium file
		RunE: func(cmd *cobra.Command, args []string) error {
			_, options, err := settings(cmd)
			if err != nil {
				return err
			}
			c, _, err := load(args[0], options)
			if err != nil {
				return err
			}
			if data, err := json.MarshalIndent(c, "", "  "); err != nil {
				return fmt.Errorf("json: %w", err)
			} else if outputFile == "" {
				fmt.Printf("%s\n", string(data))
			} else if err = os.WriteFile(outputFile, data, 0o644); err != nil {
				return err
			} else {
				log.Printf("%s: wrote %d bytes\n", outputFile, len(data))
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdSummary() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "summary <g-eqdsk-file> [<g-eqdsk-file>...]",
		Short:        "print the header values of G-EQDSK files",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, options, err := settings(cmd)
			if err != nil {
				return err
			}
			failed := 0
			for _, path := range args {
				started := time.Now()
				c, data, err := load(path, options)
				if err != nil {
					failed++
					continue
				}
				fmt.Printf("%s: %s in %v\n", path, humanize.Bytes(uint64(len(data))), time.Since(started))
				fmt.Printf("  case     %q\n", c.CaseID)
				fmt.Printf("  grid     %d x %d (%s points)\n", c.Nw, c.Nh, humanize.Comma(int64(c.Nw*c.Nh)))
				fmt.Printf("  box      R %g .. %g, Z %g .. %g\n", c.Rleft, c.Rleft+c.Rdim, c.Zmid-c.Zdim/2, c.Zmid+c.Zdim/2)
				fmt.Printf("  axis     R %g, Z %g\n", c.Rmaxis, c.Zmaxis)
				fmt.Printf("  flux     axis %g, boundary %g\n", c.Simag, c.Sibry)
				fmt.Printf("  field    %sT at R %g\n", humanize.SIWithDigits(c.Bcentr, 3, ""), c.Rcentr)
				fmt.Printf("  current  %s\n", humanize.SIWithDigits(c.Current, 3, "A"))
				fmt.Printf("  contours %d boundary, %d limiter\n", c.Nbbbs, c.Limitr)
				if len(c.Trailer) != 0 {
					fmt.Printf("  trailer  %s\n", humanize.Bytes(uint64(len(c.Trailer))))
				}
			}
			if failed != 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}

func cmdConvert() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "convert <input> <output>",
		Short:        "rewrite a G-EQDSK file in the standard fixed-column layout",
		Long:         `Parse the input with the configured tokenizer and write it back with 16 column fields. Use "-" as output for stdout.`,
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, options, err := settings(cmd)
			if err != nil {
				return err
			}
			c, _, err := load(args[0], options)
			if err != nil {
				return err
			}
			if args[1] == "-" {
				return eqdsk.Write(os.Stdout, c)
			}
			fd, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := eqdsk.Write(fd, c); err != nil {
				_ = fd.Close()
				return err
			}
			if err := fd.Close(); err != nil {
				return err
			}
			log.Printf("%s: wrote %s\n", args[1], args[0])
			return nil
		},
	}
	return cmd
}

func cmdIngest() *cobra.Command {
	var database string
	var workers int
	showDBStats := false
	showFailures := true
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&database, "database", database, "catalog database file (default in-memory)")
		cmd.Flags().IntVar(&workers, "workers", workers, "files to parse in parallel")
		cmd.Flags().BoolVar(&showDBStats, "show-db-stats", showDBStats, "dump row counts from each table")
		cmd.Flags().BoolVar(&showFailures, "show-failures", showFailures, "list files that failed to parse")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "ingest <dir|file> [<dir|file>...]",
		Short:        "parse G-EQDSK files in parallel and catalog them",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, options, err := settings(cmd)
			if err != nil {
				return err
			}
			if database != "" {
				cfg.Database = database
			}
			if workers > 0 {
				cfg.Workers = workers
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(ctx, store.StoreConfig{Path: cfg.Database, Create: true})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			svc := batch.NewService(st, cfg.Workers, logger(cmd), options...)
			paths, err := svc.Collect(args...)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no G-EQDSK files found")
			}

			rpt, err := svc.Run(ctx, paths)
			if err != nil {
				return err
			}
			added, duplicates := 0, 0
			for _, res := range rpt.Results {
				if res.Err != nil {
					if showFailures {
						log.Printf("%s: %s: %v\n", res.Path, res.ErrorCode, res.Err)
					}
				} else if res.Duplicate {
					duplicates++
				} else {
					added++
				}
			}
			log.Printf("ingest: run %s: %d files, %d added, %d duplicates, %d failed in %v\n",
				rpt.RunID, len(rpt.Results), added, duplicates, rpt.Failed, rpt.Elapsed)

			if showDBStats {
				stats, err := st.TableStats(ctx)
				if err != nil {
					return err
				}
				for _, table := range []string{"runs", "equilibria", "arrays", "failures"} {
					log.Printf("db: %-12s %8s rows\n", table, humanize.Comma(int64(stats[table])))
				}
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdList() *cobra.Command {
	var database string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&database, "database", database, "catalog database file")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "list",
		Short:        "list the equilibria in a catalog",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := settings(cmd)
			if err != nil {
				return err
			}
			if database != "" {
				cfg.Database = database
			}
			if cfg.Database == "" {
				return errors.New("list: --database is required")
			}

			ctx := context.Background()
			st, err := store.Open(ctx, store.StoreConfig{Path: cfg.Database})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			list, err := st.ListEquilibria(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tCASE\tGRID\tIP\tBT\tDIGEST\tADDED")
			for _, sum := range list {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%s\t%sT\t%.12s\t%s\n",
					sum.ID, filepath.Base(sum.Name), sum.CaseID, sum.Nw, sum.Nh,
					humanize.SIWithDigits(sum.Current, 3, "A"),
					humanize.SIWithDigits(sum.Bcentr, 3, ""),
					sum.Digest, humanize.Time(sum.CreatedAt))
			}
			return tw.Flush()
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdTokens() *cobra.Command {
	width := eqdsk.FloatWidth
	blankLines := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().IntVar(&width, "width", width, "field width for the fixed tokenizer")
		cmd.Flags().BoolVar(&blankLines, "blank-lines", blankLines, "show blank lines")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "tokens <g-eqdsk-file>",
		Short:        "dump the lines and fields the tokenizer sees",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := settings(cmd)
			if err != nil {
				return err
			}
			tokenizer, err := eqdsk.TokenizerByName(cfg.Reader.Tokenizer)
			if err != nil {
				return err
			}
			if width <= 0 {
				return fmt.Errorf("tokens: --width must be positive, got %d", width)
			}
			file := args[0]
			input, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			started := time.Now()
			l := eqdsk.NewLexer(file, input, logger(cmd))
			fields := 0
			for tok := l.Scan(); !tok.Is(eqdsk.EndOfInput); tok = l.Scan() {
				if tok.Is(eqdsk.Blank) {
					if blankLines {
						fmt.Printf("%-28s %-10s\n", fmt.Sprintf("%s:%d:", filepath.Base(file), tok.Line), tok.Kind)
					}
					continue
				}
				for _, field := range tokenizer.Split(input, tok, width) {
					fields++
					fmt.Printf("%-28s %5d %-10s %q\n", fmt.Sprintf("%s:%d:%d:", filepath.Base(file), field.Line, field.Column), fields, field.Kind, field.Lexeme(input))
				}
			}
			log.Printf("%s: %d lines, %d fields (%s) in %v\n", file, l.Lines(), fields, tokenizer, time.Since(started))
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Println(eqdsk.Version().String())
				return nil
			}
			fmt.Println(eqdsk.Version().Core())
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}
