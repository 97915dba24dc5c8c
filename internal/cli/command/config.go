package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/quotaledger/internal/cli/config"
	"github.com/yndnr/quotaledger/internal/cli/output"
	"github.com/yndnr/quotaledger/internal/infra/confloader"
	serverconfig "github.com/yndnr/quotaledger/internal/server/config"
)

// ConfigCommand manages the CLI config file and checks server configs.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "cli",
				Usage: "CLI local configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "show the effective CLI settings",
						Action: configCLIShow,
					},
					{
						Name:      "set",
						Usage:     "set a key in the CLI config file",
						ArgsUsage: "KEY VALUE",
						Action:    configCLISet,
					},
				},
			},
			{
				Name:  "server",
				Usage: "server configuration",
				Subcommands: []*cli.Command{
					{
						Name:      "test",
						Usage:     "load and verify a quota-server config file",
						ArgsUsage: "FILE",
						Action:    configServerTest,
					},
				},
			},
		},
	}
}

type settingRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func configCLIShow(c *cli.Context) error {
	s, err := LoadSettings(c)
	if err != nil {
		return err
	}
	token := s.AdminToken
	if token != "" {
		token = "(set)"
	}
	return s.Render(c.App.Writer, []settingRow{
		{"config", c.String("config")},
		{"server", s.Server},
		{"admin_token", token},
		{"output", string(s.Output)},
		{"ca_file", s.CAFile},
		{"wallet", s.Wallet},
	})
}

func configCLISet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config cli set KEY VALUE")
	}
	path := c.String("config")
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return err
	}

	key, value := c.Args().Get(0), c.Args().Get(1)
	switch key {
	case "server":
		cfg.Server = value
	case "admin_token":
		cfg.AdminToken = value
	case "output":
		f, err := output.ParseFormat(value)
		if err != nil {
			return err
		}
		cfg.Output = string(f)
	case "ca_file":
		cfg.CAFile = value
	case "wallet":
		cfg.Wallet = value
	default:
		return fmt.Errorf("unknown key %q (want server, admin_token, output, ca_file or wallet)", key)
	}

	if err := cliconfig.Save(cfg, path); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s updated in %s\n", key, path)
	return err
}

func configServerTest(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("usage: config server test FILE")
	}

	cfg := serverconfig.Default()
	loader := confloader.NewLoader()
	if err := loader.LoadFile(path); err != nil {
		return err
	}
	if err := loader.Unmarshal(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err := fmt.Fprintf(c.App.Writer, "configuration OK: %s (storage driver %s)\n", path, cfg.Storage.Driver)
	return err
}
