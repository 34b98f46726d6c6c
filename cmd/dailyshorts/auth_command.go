package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dailyshorts/internal/services/youtube"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize publishing accounts",
	}
	authCmd.AddCommand(newAuthYouTubeCommand(ctx))
	return authCmd
}

func newAuthYouTubeCommand(ctx *commandContext) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "youtube",
		Short: "Run the YouTube OAuth consent flow and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := youtube.New(youtube.Config{
				ClientID:     cfg.YouTube.ClientID,
				ClientSecret: cfg.YouTube.ClientSecret,
				RedirectURI:  cfg.YouTube.RedirectURI,
				TokenPath:    cfg.YouTube.TokenPath,
			})
			out := cmd.OutOrStdout()

			code = strings.TrimSpace(code)
			if code == "" {
				authURL, err := client.AuthURL(uuid.NewString())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Open this URL, approve access, and paste the authorization code:")
				fmt.Fprintln(out, authURL)
				fmt.Fprint(out, "Code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return fmt.Errorf("read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}

			if err := client.Exchange(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved YouTube token to %s\n", client.TokenPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from a previous consent page")
	return cmd
}
