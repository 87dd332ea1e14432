package commands

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	sshpkg "golang.org/x/crypto/ssh"

	"github.com/rtxops/rtxctl/pkg/config"
	"github.com/rtxops/rtxctl/pkg/stores"
)

func newInitCommand() *cobra.Command {
	var (
		force       bool
		generateKey bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file and history store",
		Long: `Write a sample inventory to the configuration path and create the history
store it points at. With --generate-key an ed25519 key pair is written next
to the configuration for devices using key authentication; register the
public key on the router with "import sshd authorized-keys".`,
		Example: `  # Create ~/.config/rtxctl/config.yaml
  rtxctl init

  # Create a project-local inventory with a key pair
  rtxctl init --config ./rtxctl.yaml --generate-key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(configPath, force)
			if err != nil {
				return err
			}
			fmt.Printf("%s Created config file: %s\n", okStyle.Render("✓"), path)

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			if !cfg.Store.Disabled {
				store, err := stores.Open(cmd.Context(), stores.Config{Path: cfg.Store.Path})
				if err != nil {
					return fmt.Errorf("failed to initialize history store: %w", err)
				}
				if err := store.HealthCheck(cmd.Context()); err != nil {
					_ = store.Close()
					return fmt.Errorf("history store is not usable: %w", err)
				}
				if err := store.Close(); err != nil {
					return err
				}
				fmt.Printf("%s Initialized history store: %s\n", okStyle.Render("✓"), cfg.Store.Path)
			}

			if generateKey {
				keyPath := filepath.Join(filepath.Dir(path), "id_ed25519")
				created, err := writeKeyPair(keyPath)
				if err != nil {
					return err
				}
				if created {
					fmt.Printf("%s Generated SSH key pair: %s\n", okStyle.Render("✓"), keyPath)
				} else {
					fmt.Printf("%s SSH key pair already exists: %s\n", okStyle.Render("✓"), keyPath)
				}
			}

			log.Info().Str("config", path).Msg("Initialized rtxctl")

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Printf("  1. Edit %s and list your routers\n", path)
			fmt.Println("  2. Export RTX_PASSWORD and RTX_ADMIN_PASSWORD")
			fmt.Println(`  3. Run "rtxctl facts" to check connectivity`)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cmd.Flags().BoolVar(&generateKey, "generate-key", false, "generate an ed25519 key pair next to the configuration")

	return cmd
}

// writeKeyPair writes an OpenSSH private key and its authorized_keys line.
// An existing key is left alone.
func writeKeyPair(keyPath string) (bool, error) {
	if _, err := os.Stat(keyPath); err == nil {
		return false, nil
	}

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return false, fmt.Errorf("failed to generate keypair: %w", err)
	}

	block, err := sshpkg.MarshalPrivateKey(privKey, "rtxctl")
	if err != nil {
		return false, fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return false, fmt.Errorf("failed to write private key: %w", err)
	}

	sshPub, err := sshpkg.NewPublicKey(pubKey)
	if err != nil {
		return false, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	if err := os.WriteFile(keyPath+".pub", sshpkg.MarshalAuthorizedKey(sshPub), 0o644); err != nil {
		return false, fmt.Errorf("failed to write public key: %w", err)
	}
	return true, nil
}
