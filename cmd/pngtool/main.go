// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command pngtool decodes, encodes and inspects PNG files using the
// pngcodec package.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/elmotec/pngcodec"
	"github.com/elmotec/pngcodec/file"
)

var (
	outputFile  string
	textKeyword string
	textValue   string
	showBar     bool
)

func main() {
	root := &cobra.Command{
		Use:   "pngtool",
		Short: "decode, encode and inspect PNG files",
	}

	decodeCmd := &cobra.Command{
		Use:   "decode <in.png> <out.raw>",
		Short: "decode a PNG file to a raw, channel-interleaved pixel dump",
		Args:  cobra.ExactArgs(2),
		RunE:  runDecode,
	}

	encodeCmd := &cobra.Command{
		Use:   "encode <in.raw> <width> <height> <channels> <out.png>",
		Short: "encode a raw, channel-interleaved pixel dump to a PNG file",
		Args:  cobra.ExactArgs(5),
		RunE:  runEncode,
	}
	encodeCmd.Flags().StringVar(&textKeyword, "text-keyword", "", "optional tEXt chunk keyword")
	encodeCmd.Flags().StringVar(&textValue, "text-value", "", "optional tEXt chunk text")

	infoCmd := &cobra.Command{
		Use:   "info <in.png>",
		Short: "print decode Stats for a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	for _, c := range []*cobra.Command{decodeCmd, encodeCmd, infoCmd} {
		c.Flags().BoolVar(&showBar, "progress", true, "display a progress bar")
	}

	root.AddCommand(decodeCmd, encodeCmd, infoCmd)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func withProgressBar(size int64, label string) *progressbar.ProgressBar {
	isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
	if !showBar || isTTY {
		return nil
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	return bar
}

func runDecode(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	in, out := args[0], args[1]

	data, err := file.ReadAll(ctx, in)
	if err != nil {
		return err
	}
	bar := withProgressBar(int64(len(data)), "decoding")
	if bar != nil {
		bar.Add64(int64(len(data)))
	}

	img, stats, err := pngcodec.Decode(data)
	if err != nil {
		return err
	}
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "decoded %dx%d, %d channels, %d IDAT bytes\n",
		stats.Width, stats.Height, stats.Channels, stats.IDATBytes)
	return file.WriteAll(ctx, out, img.Pix)
}

func runEncode(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	in := args[0]
	width, height, channels, out := args[1], args[2], args[3], args[4]

	w, err := parsePositiveInt(width, "width")
	if err != nil {
		return err
	}
	h, err := parsePositiveInt(height, "height")
	if err != nil {
		return err
	}
	ch, err := parsePositiveInt(channels, "channels")
	if err != nil {
		return err
	}

	raw, err := file.ReadAll(ctx, in)
	if err != nil {
		return err
	}
	img, err := pngcodec.New(w, h, ch)
	if err != nil {
		return err
	}
	if len(raw) != len(img.Pix) {
		return fmt.Errorf("pngtool: raw input is %d bytes, want %d for %dx%dx%d", len(raw), len(img.Pix), w, h, ch)
	}
	copy(img.Pix, raw)

	bar := withProgressBar(int64(len(img.Pix)), "encoding")
	if bar != nil {
		bar.Add64(int64(len(img.Pix)))
	}

	return pngcodec.EncodeFile(ctx, out, img, pngcodec.EncodeOptions{
		TextKeyword: textKeyword,
		Text:        textValue,
	})
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, stats, err := pngcodec.DecodeFile(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("width:          %d\n", stats.Width)
	fmt.Printf("height:         %d\n", stats.Height)
	fmt.Printf("channels:       %d\n", stats.Channels)
	fmt.Printf("idat bytes:     %d\n", stats.IDATBytes)
	fmt.Printf("chunks skipped: %d\n", stats.ChunksSkipped)
	return nil
}

func parsePositiveInt(s, name string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("pngtool: bad %s %q: %w", name, s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("pngtool: %s must be positive, got %d", name, v)
	}
	return v, nil
}
