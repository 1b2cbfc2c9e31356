package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/nijaru/yt-mp3/client"
	"github.com/nijaru/yt-mp3/validation"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "Show title, channel and duration of a YouTube video",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	input, err := urlFromArgs(args, DefaultPrompter)
	if err != nil {
		return err
	}
	return RunInfoWithDependencies(cmd.Context(), client.NewHTTPGateway(endpoint()), input, DefaultOutput)
}

// RunInfoWithDependencies runs the info command with injected dependencies (for testing)
func RunInfoWithDependencies(ctx context.Context, gateway client.Gateway, input string, out OutputWriter) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validation.ValidateURL(input); err != nil {
		return err
	}

	info, err := gateway.Info(ctx, strings.TrimSpace(input))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Title:\t%s\n", info.Title)
	fmt.Fprintf(w, "Channel:\t%s\n", info.Channel)
	fmt.Fprintf(w, "Duration:\t%s\n", info.Duration)
	fmt.Fprintf(w, "Video ID:\t%s\n", info.VideoID)
	fmt.Fprintf(w, "Thumbnail:\t%s\n", info.Thumbnail)
	return w.Flush()
}
