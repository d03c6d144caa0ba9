// Package admin holds the commands served on the daemon's unix socket.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/zeptools/gw-impose/impose"
	"github.com/zeptools/gw-impose/jobs"
	"github.com/zeptools/gw-impose/uds"
)

var errUsage = errors.New("bad arguments")

// Deps are what the commands act on. Nil reloaders leave their command out.
type Deps struct {
	Catalogs      jobs.CatalogSource
	Tracker       jobs.Tracker
	TempDir       string
	SweepAge      time.Duration
	ReloadSheets  func(ctx context.Context) (int, error)
	ReloadKeys    func(ctx context.Context) (int, error)
	ReloadClients func() error
	Now           func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func Commands(d Deps) map[string]uds.CmdHnd {
	cmds := map[string]uds.CmdHnd{
		"sheets": {
			Desc: "list the sheet sizes in effect",
			Fn:   d.sheets,
		},
		"plan": {
			Desc:  "best automatic layout for a page size in pt",
			Usage: "plan <width_pt> <height_pt>",
			Fn:    d.plan,
		},
		"jobs": {
			Desc:  "recent jobs, newest first",
			Usage: "jobs [n]",
			Fn:    d.jobs,
		},
		"sweep": {
			Desc: "remove stale temp files now",
			Fn:   d.sweep,
		},
	}
	if d.ReloadSheets != nil {
		cmds["reload-sheets"] = uds.CmdHnd{Desc: "reload the sheet catalog table", Fn: reloadFn("sheets", d.ReloadSheets)}
	}
	if d.ReloadKeys != nil {
		cmds["reload-keys"] = uds.CmdHnd{Desc: "reload API verification keys", Fn: reloadFn("keys", d.ReloadKeys)}
	}
	if d.ReloadClients != nil {
		cmds["reload-clients"] = uds.CmdHnd{Desc: "reload .clients.json", Fn: func(ctx context.Context, args []string, w io.Writer) error {
			if err := d.ReloadClients(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w, "clients reloaded")
			return err
		}}
	}
	return cmds
}

func reloadFn(what string, reload func(ctx context.Context) (int, error)) func(context.Context, []string, io.Writer) error {
	return func(ctx context.Context, args []string, w io.Writer) error {
		n, err := reload(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%d %s loaded\n", n, what)
		return err
	}
}

func (d Deps) sheets(ctx context.Context, args []string, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSHORT(in)\tLONG(in)")
	for _, s := range d.Catalogs.Catalog() {
		_, _ = fmt.Fprintf(tw, "%s\t%g\t%g\n", s.Name, s.ShortSide, s.LongSide)
	}
	return tw.Flush()
}

func (d Deps) plan(ctx context.Context, args []string, w io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	pw, err1 := strconv.ParseFloat(args[0], 64)
	ph, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil || pw <= 0 || ph <= 0 {
		return errUsage
	}
	l, err := impose.AutoPlan(d.Catalogs.Catalog(), pw, ph)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%dx%d on %s %s\n", l.Columns, l.Rows, l.Sheet.Name, l.Orientation)
	return err
}

func (d Deps) jobs(ctx context.Context, args []string, w io.Writer) error {
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return errUsage
		}
		n = v
	}
	recent, err := d.Tracker.Recent(ctx, n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "JOB\tSTATE\tSHEETS\tCLIENT\tUPDATED\tERROR")
	for _, st := range recent {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			st.JobID, st.State, st.Sheets, st.ClientID, st.Updated.Format(time.RFC3339), st.Error)
	}
	return tw.Flush()
}

func (d Deps) sweep(ctx context.Context, args []string, w io.Writer) error {
	n, err := jobs.SweepTemp(d.TempDir, d.SweepAge, d.now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d files removed\n", n)
	return err
}
