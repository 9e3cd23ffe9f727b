package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framediff/internal/frames"
)

const describeImagePrompt = "Describe this image in one or two sentences."

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "describe <image>",
		Short: "Describe a single image (smoke test for the model service)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := newModelClient(cfg)
			if err != nil {
				return err
			}
			img, err := frames.DecodeImage(args[0])
			if err != nil {
				return err
			}
			text, err := client.DescribeSingle(cmd.Context(), img, prompt, cfg.VLM.MaxOutputTokens)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", describeImagePrompt, "Instruction sent with the image")
	return cmd
}
