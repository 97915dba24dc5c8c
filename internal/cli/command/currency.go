package command

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
	"github.com/yndnr/quotaledger/internal/core/identity"
)

// CurrencyCommand binds quotas to wallets. Binding is local: the wallet
// signs a currency envelope over the quota it holds.
func CurrencyCommand() *cli.Command {
	return &cli.Command{
		Name:  "currency",
		Usage: "bind quotas to a wallet and inspect currency envelopes",
		Subcommands: []*cli.Command{
			{
				Name:      "bind",
				Usage:     "sign a currency envelope binding a quota to the wallet",
				ArgsUsage: "QUOTA_ENVELOPE",
				Flags: []cli.Flag{
					walletFlag(), passphraseFlag(),
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "print only the currency envelope hex",
					},
				},
				Action: currencyBind,
			},
			{
				Name:      "show",
				Usage:     "decode and verify a currency envelope",
				ArgsUsage: "CURRENCY_ENVELOPE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "check",
						Usage: "look up the quota state on the server",
					},
				},
				Action: currencyShow,
			},
		},
	}
}

// currencyView describes one currency envelope.
type currencyView struct {
	QuotaID   string `json:"quota_id"`
	FaceValue uint64 `json:"face_value" table:"VALUE"`
	Issuer    string `json:"issuer"`
	Wallet    string `json:"wallet"`
	Valid     bool   `json:"valid"`
	State     string `json:"state,omitempty"`
	Envelope  string `json:"envelope" table:"ENVELOPE,wide"`
}

func currencyBind(c *cli.Context) error {
	s, err := LoadSettings(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return fmt.Errorf("usage: currency bind QUOTA_ENVELOPE")
	}
	raw, err := hex.DecodeString(strings.TrimSpace(c.Args().First()))
	if err != nil {
		return domain.ErrEncodingInvalid.WithCause(err)
	}
	quota, err := envelope.OpenQuota(raw)
	if err != nil {
		return err
	}

	wallet, err := loadWallet(c, s)
	if err != nil {
		return err
	}
	cur, err := envelope.Sign(envelope.TypeCurrency, domain.NewCurrency(*quota.Body, wallet.Certificate()), wallet)
	if err != nil {
		return err
	}

	if c.Bool("raw") {
		_, err := fmt.Fprintln(c.App.Writer, cur.Hex())
		return err
	}
	return s.Render(c.App.Writer, viewCurrency(cur, true))
}

func currencyShow(c *cli.Context) error {
	s, err := LoadSettings(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return fmt.Errorf("usage: currency show CURRENCY_ENVELOPE")
	}
	cur, err := envelope.DecodeHex(strings.TrimSpace(c.Args().First()), envelope.TypeCurrency, domain.DecodeCurrency)
	if err != nil {
		return err
	}

	// The wallet must sign its own binding.
	valid := cur.Verify() == nil && cur.Signer == cur.Body.Wallet
	view := viewCurrency(cur, valid)

	if c.Bool("check") {
		client, err := s.Client()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		rec, err := client.GetQuota(ctx, view.QuotaID)
		if err != nil {
			return err
		}
		view.State = string(rec.State)
	}
	return s.Render(c.App.Writer, view)
}

func viewCurrency(cur *envelope.CurrencyEnvelope, valid bool) currencyView {
	q := cur.Body.Quota
	return currencyView{
		QuotaID:   q.ID.String(),
		FaceValue: q.FaceValue,
		Issuer:    identity.CodeFor(q.Issuer),
		Wallet:    identity.CodeFor(cur.Body.Wallet),
		Valid:     valid,
		Envelope:  cur.Hex(),
	}
}
