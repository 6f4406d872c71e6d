package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pavel-fokin/rdf-cubes/internal/converter"
	"github.com/pavel-fokin/rdf-cubes/internal/fs"
	"github.com/pavel-fokin/rdf-cubes/internal/uploads"
)

func newConvertCommand() *cobra.Command {
	var (
		measure    string
		uploadsDir string
		command    []string
	)

	cmd := &cobra.Command{
		Use:   "convert <file.csv>",
		Short: "Stage a local CSV file and run the converter on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := converter.New(command)
			if err != nil {
				return err
			}
			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve working directory: %w", err)
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("stat input: %w", err)
			}

			upload := &uploads.Upload{
				Name:    filepath.Base(args[0]),
				Size:    info.Size(),
				Content: file,
			}

			var sink uploads.ProgressSink
			if isTerminal(os.Stdout.Fd()) {
				sink = newBarSink(info.Size())
			}

			service := uploads.NewService(fs.NewStager(uploadsDir), conv, workDir)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging %s (%s)\n", upload.Name, humanize.Bytes(uint64(info.Size())))

			result := service.Process(cmd.Context(), upload, measure, sink)
			if !result.Success {
				return errors.New(result.Message)
			}
			fmt.Fprintln(out, result.Message)
			if result.Warning != "" {
				fmt.Fprintln(out, "Warning:", result.Warning)
				return nil
			}
			fmt.Fprintln(out, result.ArtifactPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&measure, "measure", "m", "value", "Measure column name")
	cmd.Flags().StringVar(&uploadsDir, "uploads-dir", "uploads", "Directory for staged input files")
	cmd.Flags().StringSliceVar(&command, "converter", []string{"python3", "optimized_script.py"}, "Converter command line")
	return cmd
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// barSink draws staging progress as a terminal progress bar
type barSink struct {
	bar *progressbar.ProgressBar
}

func newBarSink(total int64) *barSink {
	return &barSink{bar: progressbar.DefaultBytes(total, "staging")}
}

func (b *barSink) Progress(fraction float64) {
	_ = b.bar.Set64(int64(fraction * float64(b.bar.GetMax64())))
}

func (b *barSink) Clear() {
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}
