package main

import (
	"encoding/hex"
	"fmt"
	"os"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/airwire/airwire/internal/config"
	"github.com/airwire/airwire/internal/profile"
)

// ---------------------------------------------------------------------------
// profileCmd
// ---------------------------------------------------------------------------

func profileCmd() *cobra.Command {
	var showQR bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the configured pairing profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dataDir())
			if err != nil {
				return err
			}
			p, err := resolveProfile(cfg)
			if err != nil {
				return err
			}
			return printProfile(p, showQR)
		},
	}

	cmd.Flags().BoolVar(&showQR, "qr", false, "Render the pairing string as a terminal QR code")

	cmd.AddCommand(
		profileDeriveCmd(),
		profileJoinCmd(),
	)

	return cmd
}

// ---------------------------------------------------------------------------
// profileDeriveCmd
// ---------------------------------------------------------------------------

func profileDeriveCmd() *cobra.Command {
	var (
		second bool
		showQR bool
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "derive [passphrase]",
		Short: "Derive a pairing profile from a shared passphrase",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var passphrase string
			if len(args) > 0 {
				passphrase = args[0]
			} else {
				var err error
				passphrase, err = promptPassword("Passphrase: ")
				if err != nil {
					return err
				}
			}

			p, err := profile.Derive(passphrase, second)
			if err != nil {
				return err
			}

			if save {
				dir := dataDir()
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				applyProfile(cfg, p)
				if err := cfg.Save(dir); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, "profile saved")
			}

			return printProfile(p, showQR)
		},
	}

	cmd.Flags().BoolVar(&second, "second", false, "Take the peer orientation of the pairing")
	cmd.Flags().BoolVar(&showQR, "qr", false, "Render the pairing string as a terminal QR code")
	cmd.Flags().BoolVar(&save, "save", false, "Write the derived parameters to the config (the phrase itself is not stored)")

	return cmd
}

// ---------------------------------------------------------------------------
// profileJoinCmd
// ---------------------------------------------------------------------------

func profileJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <pairing>",
		Short: "Adopt a pairing string produced by the peer and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Decode(args[0])
			if err != nil {
				return err
			}

			dir := dataDir()
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			applyProfile(cfg, p)
			if err := cfg.Save(dir); err != nil {
				return err
			}

			fmt.Fprintln(os.Stderr, "profile saved")
			fmt.Println(p.String())
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveProfile builds the pairing profile from the config: a passphrase
// wins, explicit channel and addresses otherwise.
func resolveProfile(cfg *config.Config) (profile.Profile, error) {
	if cfg.Profile.Passphrase != "" {
		return profile.Derive(cfg.Profile.Passphrase, cfg.Profile.Second)
	}
	return profile.Parse(cfg.Profile.Channel, cfg.Profile.LocalAddr, cfg.Profile.PeerAddr)
}

// applyProfile stores explicit pairing parameters in the config, clearing any
// passphrase so the saved values win on the next load.
func applyProfile(cfg *config.Config, p profile.Profile) {
	cfg.Profile.Passphrase = ""
	cfg.Profile.Second = false
	cfg.Profile.Channel = int(p.Channel)
	cfg.Profile.LocalAddr = hex.EncodeToString(p.LocalAddr[:])
	cfg.Profile.PeerAddr = hex.EncodeToString(p.PeerAddr[:])
}

func printProfile(p profile.Profile, showQR bool) error {
	fmt.Println(p.String())
	fmt.Printf("pairing: %s\n", p.Encode())
	if !showQR {
		return nil
	}
	q, err := qrcode.New(p.Encode(), qrcode.Medium)
	if err != nil {
		return fmt.Errorf("rendering qr code: %w", err)
	}
	fmt.Print(q.ToSmallString(false))
	return nil
}
