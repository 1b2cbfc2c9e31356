package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/nijaru/yt-mp3/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "yt-mp3",
	Short: "Convert YouTube videos to MP3 through a yt-mp3 server",
	Long: `yt-mp3 talks to a running yt-mp3 server to preview a YouTube video and
save its audio track as an MP3 file.

Example:
  yt-mp3 info https://youtu.be/dQw4w9WgXcQ
  yt-mp3 convert https://www.youtube.com/watch?v=dQw4w9WgXcQ --out ~/Music`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", config.GetEnv("YTMP3_SERVER", "http://localhost:8080"), "base URL of the yt-mp3 server")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

func endpoint() string {
	return strings.TrimRight(serverURL, "/") + "/api/convert"
}

// OutputWriter receives command output (allows capturing in tests)
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// DefaultOutput is where commands print by default
var DefaultOutput OutputWriter = os.Stdout
