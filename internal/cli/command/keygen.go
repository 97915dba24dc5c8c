package command

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/quotaledger/internal/core/identity"
)

// KeygenCommand creates a local wallet identity file. The same file
// format backs the server authority.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "create a local wallet identity",
		Description: "Writes a new identity file. With --seed or --mnemonic the key is\n" +
			"derived deterministically, otherwise it is random.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Usage:    "identity file to write",
				Required: true,
			},
			passphraseFlag(),
			&cli.StringFlag{
				Name:  "seed",
				Usage: "32-byte seed in hex",
			},
			&cli.StringFlag{
				Name:  "mnemonic",
				Usage: "BIP-39 mnemonic of a seed",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing file",
			},
			&cli.BoolFlag{
				Name:  "show-mnemonic",
				Usage: "print the recovery mnemonic",
			},
		},
		Action: keygen,
	}
}

// keygenResult is the output of keygen.
type keygenResult struct {
	Code      string `json:"code"`
	PublicKey string `json:"public_key" table:"PUBLIC_KEY,wide"`
	Path      string `json:"path"`
	Sealed    bool   `json:"sealed"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

func keygen(c *cli.Context) error {
	s, err := LoadSettings(c)
	if err != nil {
		return err
	}

	path := c.String("out")
	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	id, err := identityFromFlags(c.String("seed"), c.String("mnemonic"))
	if err != nil {
		return err
	}

	store := identity.NewFileStore(path, c.String("passphrase"))
	if err := store.Persist(id); err != nil {
		return err
	}

	res := keygenResult{
		Code:      id.Code(),
		PublicKey: id.Certificate().String(),
		Path:      path,
		Sealed:    store.Passphrase != "",
	}
	if c.Bool("show-mnemonic") {
		if res.Mnemonic, err = id.Mnemonic(); err != nil {
			return err
		}
	}
	return s.Render(c.App.Writer, res)
}

// identityFromFlags derives an identity from a hex seed or a mnemonic, or
// generates one when both are empty.
func identityFromFlags(seedHex, mnemonic string) (*identity.Identity, error) {
	switch {
	case seedHex != "" && mnemonic != "":
		return nil, fmt.Errorf("--seed and --mnemonic are mutually exclusive")
	case seedHex != "":
		seed, err := hex.DecodeString(seedHex)
		if err != nil {
			return nil, fmt.Errorf("--seed: %w", err)
		}
		defer clear(seed)
		return identity.FromSeedBytes(seed)
	case mnemonic != "":
		return identity.FromMnemonic(mnemonic)
	default:
		return identity.Generate()
	}
}

func walletFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "wallet",
		Usage:   "identity file that signs requests (default from config)",
		EnvVars: []string{"QUOTA_CLI_WALLET"},
	}
}

func passphraseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "passphrase",
		Usage:   "passphrase sealing the identity file",
		EnvVars: []string{"QUOTA_CLI_PASSPHRASE"},
	}
}

// loadWallet opens the wallet named by --wallet or the config file.
func loadWallet(c *cli.Context, s *Settings) (*identity.Identity, error) {
	path := s.Wallet
	if c.IsSet("wallet") {
		path = c.String("wallet")
	}
	if path == "" {
		return nil, fmt.Errorf("no wallet: pass --wallet or set wallet in the config file")
	}
	return identity.NewFileStore(path, c.String("passphrase")).Load()
}
