package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/quotaledger/internal/cli/config"
	"github.com/yndnr/quotaledger/internal/cli/connection"
	"github.com/yndnr/quotaledger/internal/cli/output"
	"github.com/yndnr/quotaledger/internal/infra/buildinfo"
	"github.com/yndnr/quotaledger/internal/infra/tlsroots"
)

const (
	requestTimeout = 30 * time.Second
	metaConfig     = "config"
)

// App creates the quota-cli application.
func App() *cli.App {
	return &cli.App{
		Name:                 "quota-cli",
		Usage:                "issue, recycle and convert quota tokens",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			KeygenCommand(),
			IdentityCommand(),
			QuotaCommand(),
			CurrencyCommand(),
			TokenCommand(),
			HealthCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file",
			EnvVars: []string{"QUOTA_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "ledger server URL (e.g. http://127.0.0.1:5080)",
			EnvVars: []string{"QUOTA_CLI_SERVER"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "bearer token for identity commands",
			EnvVars: []string{"QUOTA_CLI_ADMIN_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			EnvVars: []string{"QUOTA_CLI_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show all columns",
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM bundle of extra CAs to trust",
			EnvVars: []string{"QUOTA_CLI_CA_FILE"},
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
	}
}

// Settings is the effective configuration of one invocation: flags and
// environment over the config file over defaults.
type Settings struct {
	Server     string
	AdminToken string
	Output     output.Format
	Wide       bool
	CAFile     string
	Insecure   bool
	Wallet     string
}

// LoadSettings resolves the global settings for c.
func LoadSettings(c *cli.Context) (*Settings, error) {
	cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig)
	if !ok {
		cfg = config.Default()
	}

	pick := func(flag, fromFile string) string {
		if c.IsSet(flag) {
			return c.String(flag)
		}
		return fromFile
	}

	format, err := output.ParseFormat(pick("output", cfg.Output))
	if err != nil {
		return nil, err
	}
	return &Settings{
		Server:     pick("server", cfg.Server),
		AdminToken: pick("admin-token", cfg.AdminToken),
		Output:     format,
		Wide:       c.Bool("wide"),
		CAFile:     pick("ca-file", cfg.CAFile),
		Insecure:   c.Bool("insecure"),
		Wallet:     cfg.Wallet,
	}, nil
}

// Client builds the HTTP client for the configured server.
func (s *Settings) Client() (*connection.HTTPClient, error) {
	if s.Server == "" {
		return nil, fmt.Errorf("no server configured: pass --server or set server in the config file")
	}
	pool, err := tlsroots.LoadPool(nonEmpty(s.CAFile)...)
	if err != nil {
		return nil, err
	}
	return connection.NewHTTPClient(s.Server, s.AdminToken, pool.ClientTLSConfig(s.Insecure)), nil
}

// Render writes data in the configured format.
func (s *Settings) Render(w io.Writer, data any) error {
	return output.NewFormatter(s.Output, s.Wide).Format(w, data)
}

// connect resolves settings and a client in one step.
func connect(c *cli.Context) (*Settings, *connection.HTTPClient, error) {
	s, err := LoadSettings(c)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.Client()
	if err != nil {
		return nil, nil, err
	}
	return s, client, nil
}

func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}

// PrintError writes err to w in the form the CLI uses for failures.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
