package command

import "github.com/urfave/cli/v2"

// HealthCommand checks that the server answers.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check server health",
		Action: func(c *cli.Context) error {
			s, client, err := connect(c)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(c)
			defer cancel()
			h, err := client.Health(ctx)
			if err != nil {
				return err
			}
			return s.Render(c.App.Writer, h)
		},
	}
}
