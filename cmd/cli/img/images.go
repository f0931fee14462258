// Package img holds CLI commands for working with rendered build images.
package img

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/veloforge/dreamride/internal/studio"
)

var Group = &cobra.Group{
	ID:    "img",
	Title: "Image operations",
}

func init() {
	Generate.Flags().String("out", "./out.png", "path to generated image file")
	Generate.Flags().String("studio-url", os.Getenv("DREAMRIDE_STUDIO_URL"), "studio backend base URL")
}

var Generate = &cobra.Command{
	Use:     "gen [session-id]",
	GroupID: "img",
	Short:   "Render a session's image",
	Long:    `Asks the studio backend to render the image for a finished builder session and writes it to a PNG file.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		sessionID := args[0]

		studioURL, err := cmd.Flags().GetString("studio-url")
		if err != nil || studioURL == "" {
			_, _ = fmt.Fprintln(os.Stderr, "studio-url flag or DREAMRIDE_STUDIO_URL is required")
			return
		}
		client := studio.NewClient(studioURL, slog.New(slog.NewTextHandler(io.Discard, nil)))

		encoded, err := client.GenerateImage(ctx, sessionID)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Image creation error: %v\n", err)
			return
		}

		imgBytes, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Base64 decode error: %v\n", err)
			return
		}

		imgData, err := png.Decode(bytes.NewReader(imgBytes))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "PNG decode error: %v\n", err)
			return
		}

		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid out flag: %v\n", err)
			return
		}
		file, err := os.Create(outPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "File creation error: %v\n", err)
			return
		}
		defer func(file *os.File) {
			_ = file.Close()
		}(file)

		if err := png.Encode(file, imgData); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "PNG encode error: %v\n", err)
			return
		}

		fmt.Printf("The image was saved as %s\n", outPath)
	},
}

var Open = &cobra.Command{
	Use:     "open [path]",
	GroupID: "img",
	Short:   "Validate a stored image artifact",
	Long:    `Decodes a stored PNG artifact and prints its dimensions.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, err := os.Open(args[0])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "File open error: %v\n", err)
			return
		}
		defer func(file *os.File) {
			_ = file.Close()
		}(file)

		imgData, err := png.Decode(file)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "PNG decode error: %v\n", err)
			return
		}

		bounds := imgData.Bounds()
		fmt.Printf("%s: %dx%d PNG\n", args[0], bounds.Dx(), bounds.Dy())
	},
}
