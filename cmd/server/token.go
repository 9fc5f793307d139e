package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kestrel/backend/internal/config"
	"kestrel/backend/pkg/jwt"
)

var (
	tokenSubject     string
	tokenNickname    string
	tokenEmail       string
	tokenPermissions string
	tokenTTL         time.Duration
)

func init() { //nolint: gochecknoinits
	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "Subject id, e.g. auth0|123")
	tokenCmd.Flags().StringVar(&tokenNickname, "nickname", "", "Display name hint")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email hint")
	tokenCmd.Flags().StringVar(&tokenPermissions, "permissions", "", "Comma separated permissions, e.g. update:games,delete:games")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")

	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an HS256 development token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.ReadConfig(configPath)
		if err != nil {
			return err
		}

		raw, err := jwt.GenerateToken(cfg.JWTSecret, tokenSubject, tokenNickname, tokenEmail, splitPermissions(tokenPermissions), tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), raw)

		return nil
	},
}

func splitPermissions(s string) []string {
	var perms []string

	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}

	return perms
}
