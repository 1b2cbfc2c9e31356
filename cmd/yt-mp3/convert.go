package main

import (
	"context"
	"fmt"

	"github.com/nijaru/yt-mp3/client"
	"github.com/spf13/cobra"
)

var convertOutDir string

var convertCmd = &cobra.Command{
	Use:   "convert [url]",
	Short: "Convert a YouTube video to MP3",
	Long: `Fetch video information, convert the audio to MP3 on the server and save
it in the output directory under the video title.

If no URL is given you will be prompted for one.

Example:
  yt-mp3 convert https://youtu.be/dQw4w9WgXcQ --out ./music`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertOutDir, "out", ".", "directory to save the MP3 in")
}

func runConvert(cmd *cobra.Command, args []string) error {
	input, err := urlFromArgs(args, DefaultPrompter)
	if err != nil {
		return err
	}

	return RunConvertWithDependencies(
		cmd.Context(),
		client.NewHTTPGateway(endpoint()),
		input,
		convertOutDir,
		DefaultOutput,
	)
}

// RunConvertWithDependencies runs the convert command with injected dependencies (for testing)
func RunConvertWithDependencies(ctx context.Context, gateway client.Gateway, input, outDir string, out OutputWriter) error {
	if ctx == nil {
		ctx = context.Background()
	}

	controller := client.NewController(gateway, client.WithObserver(func(s client.Snapshot) {
		printSnapshot(out, s)
	}))

	if err := controller.Submit(ctx, input); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	path, err := controller.Download(outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved %s\n", path)
	return nil
}

func printSnapshot(out OutputWriter, s client.Snapshot) {
	switch s.State {
	case client.StateValidating:
		fmt.Fprintf(out, "[%3d%%] Checking URL\n", s.Progress)
	case client.StateFetchingInfo:
		if s.Info != nil {
			fmt.Fprintf(out, "[%3d%%] %s (%s) by %s\n", s.Progress, s.Info.Title, s.Info.Duration, s.Info.Channel)
		} else {
			fmt.Fprintf(out, "[%3d%%] Fetching video information\n", s.Progress)
		}
	case client.StateConverting:
		fmt.Fprintf(out, "[%3d%%] Converting to MP3\n", s.Progress)
	case client.StateReady:
		fmt.Fprintf(out, "[%3d%%] Conversion complete (%d bytes)\n", s.Progress, s.Artifact.Size())
	case client.StateFailed:
		fmt.Fprintf(out, "Error: %s\n", s.Message())
	}
}
