package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/stats/view"
	"golang.org/x/xerrors"

	"github.com/govrealm/govchain/build"
	"github.com/govrealm/govchain/chain/actors/builtin/governance"
	"github.com/govrealm/govchain/chain/gen"
	"github.com/govrealm/govchain/chain/types"
	"github.com/govrealm/govchain/metrics"
	"github.com/govrealm/govchain/node/config"
)

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "Initialize a govsim repo with the default config",
	Action: func(cctx *cli.Context) error {
		r, err := fsRepo(cctx)
		if err != nil {
			return err
		}
		exists, err := r.Exists()
		if err != nil {
			return err
		}
		if exists {
			return xerrors.Errorf("repo at '%s' is already initialized", r.Path())
		}
		if err := r.Init(nil); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cctx.App.Writer, "initialized repo at %s\n", r.Path())
		return nil
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "Print the repo config as TOML",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "default",
			Usage: "print the default config instead",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg := config.DefaultSimulator()
		if !cctx.Bool("default") {
			lr, err := openRepo(cctx)
			if err != nil {
				return err
			}
			defer lr.Close() //nolint:errcheck
			cfg = lr.Config()
		}
		b, err := config.ToBytes(cfg)
		if err != nil {
			return err
		}
		_, err = cctx.App.Writer.Write(b)
		return err
	},
}

var selectorCmd = &cli.Command{
	Name:  "selector",
	Usage: "Print the selectors of the reward accrual operations",
	Action: func(cctx *cli.Context) error {
		for _, m := range governance.RemoteMethods() {
			_, _ = fmt.Fprintf(cctx.App.Writer, "%s\t%s\n", m, m.Selector())
		}
		return nil
	},
}

var genesisCmd = &cli.Command{
	Name:  "genesis",
	Usage: "Seed the repo datastore with a realm and an owner ready to withdraw",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "accrual",
			Usage: "accrual profile the withdrawal delegates to (folio or rewards)",
			Value: "folio",
		},
		&cli.Uint64Flag{
			Name:  "deposit",
			Value: 1_000_000,
		},
		&cli.Uint64Flag{
			Name:  "other-deposits",
			Usage: "custody held for other owners",
		},
		&cli.IntFlag{
			Name:  "reward-groups",
			Value: 1,
		},
		&cli.DurationFlag{
			Name:  "lock",
			Usage: "lock the owner record for this long",
		},
		&cli.BoolFlag{
			Name:  "membership",
			Usage: "make the community token a non-withdrawable membership token",
		},
	},
	Action: func(cctx *cli.Context) error {
		lr, err := openRepo(cctx)
		if err != nil {
			return err
		}
		defer lr.Close() //nolint:errcheck

		if _, err := readManifest(lr); err == nil {
			return xerrors.Errorf("repo at '%s' already has a devnet", lr.Path())
		}

		opts, err := devnetOpts(lr)
		if err != nil {
			return err
		}
		opts.Accrual = cctx.String("accrual")
		opts.Deposit = cctx.Uint64("deposit")
		opts.OtherDeposits = cctx.Uint64("other-deposits")
		opts.RewardGroups = cctx.Int("reward-groups")
		if cctx.Bool("membership") {
			opts.CommunityTokenType = governance.GoverningTokenTypeMembership
		}
		if d := cctx.Duration("lock"); d > 0 {
			expiry := build.Clock.Now().Add(d).Unix()
			opts.Locks = []governance.TokenOwnerRecordLock{{LockType: 1, Authority: opts.GovernanceProgramID, Expiry: &expiry}}
		}

		d, err := gen.NewDevnet(cctx.Context, opts)
		if err != nil {
			return err
		}
		if err := writeManifest(lr, d.Manifest()); err != nil {
			return err
		}

		w := cctx.App.Writer
		_, _ = fmt.Fprintf(w, "realm:        %s\n", d.Realm)
		_, _ = fmt.Fprintf(w, "owner:        %s\n", d.Owner)
		_, _ = fmt.Fprintf(w, "owner record: %s\n", d.OwnerRecord)
		_, _ = fmt.Fprintf(w, "deposit:      %s\n", humanize.Comma(metrics.ClampInt64(opts.Deposit)))
		_, _ = fmt.Fprintf(w, "accrual:      %s (%s)\n", d.Accrual.Name, d.Accrual.ProgramID)
		return nil
	},
}

var withdrawCmd = &cli.Command{
	Name:  "withdraw",
	Usage: "Withdraw the owner's governing tokens from custody",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "print the recorded metrics after applying",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.Bool("metrics") {
			if err := view.Register(metrics.DefaultViews...); err != nil {
				return xerrors.Errorf("registering views: %w", err)
			}
			defer view.Unregister(metrics.DefaultViews...)
		}

		lr, err := openRepo(cctx)
		if err != nil {
			return err
		}
		defer lr.Close() //nolint:errcheck

		d, err := openDevnet(lr)
		if err != nil {
			return err
		}
		before, err := d.TokenOwnerRecord(cctx.Context)
		if err != nil {
			return err
		}

		tx, err := d.WithdrawTransaction()
		if err != nil {
			return err
		}
		ret, err := d.VM.ApplyTransaction(cctx.Context, tx)
		if err != nil {
			return err
		}
		if err := d.VM.Flush(cctx.Context); err != nil {
			return err
		}

		w := cctx.App.Writer
		if ret.ExitCode != exitcode.Ok {
			_, _ = fmt.Fprintf(w, "withdrawal %s: exit %d %s\n", color.RedString("failed"), ret.ExitCode, governance.ErrorName(ret.ExitCode))
			_, _ = fmt.Fprintf(w, "  %s\n", ret.ActorErr)
		} else {
			_, _ = fmt.Fprintf(w, "withdrawal %s: %s tokens to %s\n", color.GreenString("ok"),
				humanize.Comma(metrics.ClampInt64(before.GoverningTokenDepositAmount)), d.Destination)
		}
		_, _ = fmt.Fprintf(w, "took %s\n", ret.Duration)
		for _, tr := range ret.Traces {
			printTrace(cctx, tr)
		}

		if cctx.Bool("metrics") {
			return printMetrics(cctx)
		}
		if ret.ExitCode != exitcode.Ok {
			return xerrors.Errorf("withdrawal failed with exit code %d", ret.ExitCode)
		}
		return nil
	},
}

func printTrace(cctx *cli.Context, tr *types.InvocationTrace) {
	tr.Walk(func(it *types.InvocationTrace) {
		status := color.GreenString("ok")
		if it.ExitCode != exitcode.Ok {
			status = color.RedString("exit %d", it.ExitCode)
		}
		_, _ = fmt.Fprintf(cctx.App.Writer, "%*s%s accounts=%d [%s]\n", 2*it.Depth, "", it.ProgramID, len(it.Accounts), status)
	})
}

func printMetrics(cctx *cli.Context) error {
	tw := tabwriter.NewWriter(cctx.App.Writer, 2, 4, 2, ' ', 0)
	for _, v := range metrics.DefaultViews {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			return xerrors.Errorf("retrieving %s: %w", v.Name, err)
		}
		for _, row := range rows {
			tags := ""
			for _, t := range row.Tags {
				tags += t.Key.Name() + "=" + t.Value + " "
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\n", v.Name, tags, row.Data)
		}
	}
	return tw.Flush()
}

var inspectCmd = &cli.Command{
	Name:  "inspect",
	Usage: "List the accounts in the repo datastore",
	Action: func(cctx *cli.Context) error {
		lr, err := openRepo(cctx)
		if err != nil {
			return err
		}
		defer lr.Close() //nolint:errcheck

		d, err := openDevnet(lr)
		if err != nil {
			return err
		}
		tree := d.VM.Tree()
		keys, err := tree.Keys(cctx.Context)
		if err != nil {
			return err
		}

		names := d.Manifest().Names()
		sort.SliceStable(keys, func(i, j int) bool {
			return names[keys[i]] != "" && names[keys[j]] == ""
		})

		tw := tabwriter.NewWriter(cctx.App.Writer, 2, 4, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "Account\tRole\tOwner\tExec\tData\n")
		for _, k := range keys {
			acct, err := tree.GetAccount(cctx.Context, k)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", k, names[k], acct.Owner, acct.Executable, humanize.Bytes(uint64(len(acct.Data))))
		}
		return tw.Flush()
	},
}
