package command

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
	"github.com/yndnr/quotaledger/internal/core/identity"
)

// QuotaCommand groups the ledger operations.
func QuotaCommand() *cli.Command {
	rawFlag := &cli.BoolFlag{
		Name:  "raw",
		Usage: "print only the envelopes, one hex string per line",
	}
	return &cli.Command{
		Name:  "quota",
		Usage: "issue, recycle, convert and look up quotas",
		Subcommands: []*cli.Command{
			{
				Name:      "issue",
				Usage:     "request new quotas",
				ArgsUsage: "FACE_VALUE[xCOUNT]...",
				Flags:     []cli.Flag{walletFlag(), passphraseFlag(), rawFlag},
				Action:    quotaIssue,
			},
			{
				Name:      "recycle",
				Usage:     "recycle issued quotas",
				ArgsUsage: "ENVELOPE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "read envelopes from a file, one per line (- for stdin)",
					},
				},
				Action: quotaRecycle,
			},
			{
				Name:      "convert",
				Usage:     "exchange quotas for new denominations of the same total",
				ArgsUsage: "FACE_VALUE[xCOUNT]...",
				Flags: []cli.Flag{
					walletFlag(), passphraseFlag(), rawFlag,
					&cli.StringSliceFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "quota envelope to consume (repeatable)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "read input envelopes from a file, one per line (- for stdin)",
					},
				},
				Action: quotaConvert,
			},
			{
				Name:      "get",
				Usage:     "show the stored record of a quota",
				ArgsUsage: "QUOTA_ID",
				Action:    quotaGet,
			},
		},
	}
}

// quotaRow is one quota in command output.
type quotaRow struct {
	ID        string    `json:"id"`
	FaceValue uint64    `json:"face_value" table:"VALUE"`
	IssuedAt  time.Time `json:"issued_at" table:"ISSUED"`
	Issuer    string    `json:"issuer" table:"ISSUER,wide"`
	Envelope  string    `json:"envelope" table:"ENVELOPE,wide"`
}

// recycledRow is one recycled quota id.
type recycledRow struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func quotaIssue(c *cli.Context) error {
	s, client, err := connect(c)
	if err != nil {
		return err
	}
	issue, err := parseIssue(c.Args().Slice())
	if err != nil {
		return err
	}
	wallet, err := loadWallet(c, s)
	if err != nil {
		return err
	}

	req, err := envelope.Sign(envelope.TypeIssueQuotaRequest, issue, wallet)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	issued, err := client.IssueQuota(ctx, req.Hex())
	if err != nil {
		return err
	}
	return renderQuotas(c, s, issued)
}

func quotaRecycle(c *cli.Context) error {
	s, client, err := connect(c)
	if err != nil {
		return err
	}
	envs, err := envelopeArgs(c, c.Args().Slice())
	if err != nil {
		return err
	}
	if len(envs) == 0 {
		return fmt.Errorf("no envelopes given")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	ids, err := client.RecycleQuota(ctx, envs)
	if err != nil {
		return err
	}

	rows := make([]recycledRow, len(ids))
	for i, id := range ids {
		rows[i] = recycledRow{ID: id, State: string(domain.StateRecycled)}
	}
	return s.Render(c.App.Writer, rows)
}

func quotaConvert(c *cli.Context) error {
	s, client, err := connect(c)
	if err != nil {
		return err
	}
	target, err := parseIssue(c.Args().Slice())
	if err != nil {
		return err
	}
	inputs, err := envelopeArgs(c, c.StringSlice("input"))
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs: pass --input or --file")
	}

	req := &domain.ConvertRequest{Target: target}
	for i, in := range inputs {
		raw, err := hex.DecodeString(in)
		if err != nil {
			return fmt.Errorf("input %d: %w", i+1, err)
		}
		req.Inputs = append(req.Inputs, raw)
	}

	wallet, err := loadWallet(c, s)
	if err != nil {
		return err
	}
	signed, err := envelope.Sign(envelope.TypeConvertQuotaRequest, req, wallet)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	minted, err := client.ConvertQuota(ctx, signed.Hex())
	if err != nil {
		return err
	}
	return renderQuotas(c, s, minted)
}

func quotaGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: quota get QUOTA_ID")
	}
	id, err := domain.ParseQuotaID(c.Args().First())
	if err != nil {
		return err
	}
	s, client, err := connect(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	rec, err := client.GetQuota(ctx, id.String())
	if err != nil {
		return err
	}
	return s.Render(c.App.Writer, rec)
}

// renderQuotas prints envelopes as rows, or raw with --raw.
func renderQuotas(c *cli.Context, s *Settings, envs []string) error {
	if c.Bool("raw") {
		for _, e := range envs {
			fmt.Fprintln(c.App.Writer, e)
		}
		return nil
	}

	rows := make([]quotaRow, 0, len(envs))
	for _, e := range envs {
		q, err := envelope.DecodeHex(e, envelope.TypeQuotaControlField, domain.DecodeQuota)
		if err != nil {
			return fmt.Errorf("server returned a malformed quota: %w", err)
		}
		rows = append(rows, quotaRow{
			ID:        q.Body.ID.String(),
			FaceValue: q.Body.FaceValue,
			IssuedAt:  q.Body.Time(),
			Issuer:    identity.CodeFor(q.Signer),
			Envelope:  e,
		})
	}
	return s.Render(c.App.Writer, rows)
}

// parseIssue parses denominations written as FACE_VALUE or
// FACE_VALUExCOUNT, e.g. "100x3".
func parseIssue(args []string) (domain.Issue, error) {
	if len(args) == 0 {
		return domain.Issue{}, fmt.Errorf("no denominations given (e.g. 100x3 50)")
	}
	denoms := make([]domain.Denomination, 0, len(args))
	for _, arg := range args {
		d, err := parseDenomination(arg)
		if err != nil {
			return domain.Issue{}, err
		}
		denoms = append(denoms, d)
	}
	return domain.NewIssue(denoms...), nil
}

func parseDenomination(s string) (domain.Denomination, error) {
	value, count, hasCount := strings.Cut(strings.ToLower(s), "x")
	d := domain.Denomination{Count: 1}

	var err error
	if d.FaceValue, err = strconv.ParseUint(value, 10, 64); err != nil {
		return d, fmt.Errorf("denomination %q: bad face value", s)
	}
	if hasCount {
		if d.Count, err = strconv.ParseUint(count, 10, 64); err != nil {
			return d, fmt.Errorf("denomination %q: bad count", s)
		}
	}
	return d, nil
}

// envelopeArgs merges envelopes from args and the --file flag.
func envelopeArgs(c *cli.Context, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}

	path := c.String("file")
	if path == "" {
		return out, nil
	}
	var r io.Reader = c.App.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return append(out, lines...), nil
}

// readLines returns the non-empty lines of r that are not # comments.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}
