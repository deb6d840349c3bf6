package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/driver"
	"github.com/dmitrijs2005/quicksend/internal/client/subscription"
	"github.com/dmitrijs2005/quicksend/internal/tier"
)

var errUnknownSession = errors.New("no such upload")

// Upload starts path in the background and reports the outcome when it ends.
func (a *App) Upload(ctx context.Context, path string) error {
	current := a.plans.Current()

	s, err := a.uploads.Start(ctx, path, a.progress.track(path))
	if err != nil {
		a.printAlert(err, current)
		return err
	}
	fmt.Fprintf(a.out, "Upload %s started: %s (%s, %s)\n", s.ID, s.FileName, sizeText(s.Size), s.Strategy)

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		res, err := s.Wait()
		if err != nil {
			a.printAlert(err, s.Tier)
			return
		}
		fmt.Fprintf(a.out, "Upload %s done: %s\n  %s\n  expires %s\n",
			s.ID, res.FileName, res.DownloadLink, res.ExpiresAt.Local().Format(time.DateTime))
	}()
	return nil
}

func (a *App) Cancel(id string) error {
	if !a.uploads.Cancel(id) {
		fmt.Fprintf(a.out, "No running upload with id %s\n", id)
		return errUnknownSession
	}
	fmt.Fprintf(a.out, "Cancelling upload %s\n", id)
	return nil
}

func (a *App) CancelAll() error {
	n := a.uploads.CancelAll()
	fmt.Fprintf(a.out, "Cancelling %d upload(s)\n", n)
	return nil
}

func (a *App) Active() error {
	active := a.uploads.Active()
	if len(active) == 0 {
		fmt.Fprintln(a.out, "No running uploads")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSIZE\tSTRATEGY\tDONE")
	for _, s := range active {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\n", s.ID, s.FileName, sizeText(s.Size), s.Strategy, int(s.Progress*100))
	}
	return tw.Flush()
}

// Tier lists the plans when name is empty and switches to name otherwise.
func (a *App) Tier(ctx context.Context, name string) error {
	if name == "" {
		a.printPlans()
		return nil
	}
	if !tier.Known(name) {
		fmt.Fprintf(a.out, "Unknown plan %q, choose one of free, pro, business\n", name)
		return fmt.Errorf("unknown tier %q", name)
	}

	t := tier.Parse(name)
	if t == a.plans.Current() {
		fmt.Fprintf(a.out, "Already on the %s plan\n", t.DisplayName())
		return nil
	}
	if err := a.plans.Set(ctx, t); err != nil {
		fmt.Fprintf(a.out, "Could not change plan: %v\n", err)
		return err
	}
	return nil
}

func (a *App) printPlans() {
	current := a.plans.Current()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, t := range tier.All() {
		l := tier.LimitsFor(t)
		mark := " "
		if t == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s per file\t%d uploads/month\t%d-day links\t%s\n",
			mark, t.DisplayName(), tier.FormatBytes(l.MaxFileSize), l.MaxUploadsPerMonth, l.RetentionDays, l.PriceText)
	}
	_ = tw.Flush()
}

func (a *App) Usage(ctx context.Context) error {
	u, err := a.uploads.Usage(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Could not read usage: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Uploads in %s: %d of %d (%s plan)\n", u.Period, u.Used, u.Limit, u.Tier.DisplayName())

	history, err := a.history.History(ctx)
	if err != nil || len(history) < 2 {
		return nil
	}
	periods := make([]string, 0, len(history))
	for p := range history {
		if p != u.Period {
			periods = append(periods, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	fmt.Fprintln(a.out, "Earlier months:")
	for _, p := range periods {
		fmt.Fprintf(a.out, "  %s  %d\n", p, history[p])
	}
	return nil
}

// onTierChanged re-runs the monthly check under the new plan.
func (a *App) onTierChanged(ctx context.Context, ev subscription.TierChanged) {
	fmt.Fprintf(a.out, "Plan changed: %s -> %s\n", ev.Previous.DisplayName(), ev.Current.DisplayName())

	u, err := a.uploads.Usage(ctx)
	if err != nil {
		return
	}
	limits := tier.LimitsFor(ev.Current)
	if u.Used >= limits.MaxUploadsPerMonth {
		fmt.Fprintf(a.out, "Monthly upload limit reached for the %s plan (%d of %d)\n",
			ev.Current.DisplayName(), u.Used, limits.MaxUploadsPerMonth)
		return
	}
	fmt.Fprintf(a.out, "Files up to %s, %d uploads left this month\n",
		tier.FormatBytes(limits.MaxFileSize), limits.MaxUploadsPerMonth-u.Used)
}

func (a *App) printAlert(err error, t tier.Tier) {
	alert := driver.AlertFor(err, t)
	fmt.Fprintf(a.out, "%s: %s\n", alert.Title, alert.Message)
	if alert.OfferUpgrade {
		a.printUpgradeOptions(t)
	}
}

func (a *App) printUpgradeOptions(current tier.Tier) {
	var options []tier.Tier
	above := false
	for _, t := range tier.All() {
		if above {
			options = append(options, t)
		}
		if t == current {
			above = true
		}
	}
	if len(options) == 0 {
		fmt.Fprintln(a.out, "You are already on the largest plan.")
		return
	}
	fmt.Fprintln(a.out, "Upgrade your plan:")
	for _, t := range options {
		fmt.Fprintf(a.out, "  tier %s\t%s - %s\n", t, t.DisplayName(), tier.LimitsFor(t).PriceText)
	}
}

func sizeText(n int64) string {
	if n < 0 {
		return "unknown size"
	}
	return tier.FormatBytes(n)
}
