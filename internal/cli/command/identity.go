package command

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/quotaledger/internal/cli/connection"
)

// IdentityCommand manages the server authority identity through the
// admin API.
func IdentityCommand() *cli.Command {
	return &cli.Command{
		Name:    "identity",
		Aliases: []string{"id"},
		Usage:   "show or replace the server authority identity (needs --admin-token)",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "show the current authority",
				Action: identityShow,
			},
			{
				Name:   "new",
				Usage:  "replace the authority with a random identity",
				Action: identityNew,
			},
			{
				Name:  "rotate",
				Usage: "replace the authority with one derived from a seed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "seed",
						Usage: "32-byte seed in hex",
					},
					&cli.StringFlag{
						Name:  "mnemonic",
						Usage: "BIP-39 mnemonic of the seed",
					},
				},
				Action: identityRotate,
			},
		},
	}
}

func identityShow(c *cli.Context) error {
	return callAuthority(c, func(client *connection.HTTPClient, c *cli.Context) (*connection.AuthorityView, error) {
		ctx, cancel := requestContext(c)
		defer cancel()
		return client.DescribeAuthority(ctx)
	})
}

func identityNew(c *cli.Context) error {
	return callAuthority(c, func(client *connection.HTTPClient, c *cli.Context) (*connection.AuthorityView, error) {
		ctx, cancel := requestContext(c)
		defer cancel()
		return client.CreateAuthority(ctx)
	})
}

func identityRotate(c *cli.Context) error {
	if c.String("seed") == "" && c.String("mnemonic") == "" {
		return fmt.Errorf("rotate needs --seed or --mnemonic")
	}
	id, err := identityFromFlags(c.String("seed"), c.String("mnemonic"))
	if err != nil {
		return err
	}
	seed := id.Seed()
	seedHex := hex.EncodeToString(seed[:])
	clear(seed[:])

	return callAuthority(c, func(client *connection.HTTPClient, c *cli.Context) (*connection.AuthorityView, error) {
		ctx, cancel := requestContext(c)
		defer cancel()
		return client.RotateAuthority(ctx, seedHex)
	})
}

func callAuthority(c *cli.Context, call func(*connection.HTTPClient, *cli.Context) (*connection.AuthorityView, error)) error {
	s, client, err := connect(c)
	if err != nil {
		return err
	}
	if s.AdminToken == "" {
		return fmt.Errorf("identity commands need --admin-token")
	}
	view, err := call(client, c)
	if err != nil {
		return err
	}
	return s.Render(c.App.Writer, view)
}
