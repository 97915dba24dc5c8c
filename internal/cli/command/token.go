package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/quotaledger/pkg/token"
)

// TokenCommand generates admin tokens for security.admin_token.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "admin token helpers",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "generate a random admin token",
				Action: tokenGenerate,
			},
		},
	}
}

type tokenResult struct {
	Token  string `json:"token"`
	SHA256 string `json:"sha256" table:"SHA256,wide"`
}

func tokenGenerate(c *cli.Context) error {
	s, err := LoadSettings(c)
	if err != nil {
		return err
	}
	t, err := token.Generate()
	if err != nil {
		return err
	}
	return s.Render(c.App.Writer, tokenResult{Token: t, SHA256: token.Hash(t)})
}
