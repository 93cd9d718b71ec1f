package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wardenproc/warden"
	"github.com/wardenproc/warden/pkg/client"
)

// command dispatches each CLI operation either to a local supervisor built
// from the config file, or to a running daemon when --api-url is set.
type command struct {
	flags *GlobalFlags
}

func (c command) remote() *client.Client {
	if c.flags.APIUrl == "" {
		return nil
	}
	return client.New(client.Config{
		BaseURL: c.flags.APIUrl,
		Timeout: c.flags.APITimeout,
	})
}

// localSetup builds a supervisor (and optional event store) from the config
// file. The returned cleanup closes the store.
func (c command) localSetup() (*warden.Supervisor, warden.Store, func(), error) {
	if c.flags.ConfigPath == "" {
		return nil, nil, nil, fmt.Errorf("--config is required (or use --api-url for a running daemon)")
	}
	fc, err := warden.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	prober, err := fc.Probe.BuildProber()
	if err != nil {
		return nil, nil, nil, err
	}
	sup := warden.New(fc.SupervisorConfig(), prober)

	var st warden.Store
	cleanup := func() {}
	if fc.Store != nil {
		st, err = warden.NewStore(*fc.Store)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open event store: %w", err)
		}
		sup.SetStore(st)
		cleanup = func() { _ = st.Close() }
	}
	return sup, st, cleanup, nil
}

// opContext is cancelled on SIGINT/SIGTERM so a shutdown request mid-wait
// aborts the readiness poll instead of blocking until timeout.
func opContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (c command) Start(debug bool) error {
	if rc := c.remote(); rc != nil {
		ctx, cancel := opContext()
		defer cancel()
		if err := rc.Start(ctx); err != nil {
			return err
		}
		fmt.Println("started")
		return nil
	}

	if debug {
		return c.startDebug()
	}
	sup, _, cleanup, err := c.localSetup()
	if err != nil {
		return err
	}
	defer cleanup()
	ctx, cancel := opContext()
	defer cancel()
	if err := sup.Start(ctx); err != nil {
		return err
	}
	st := sup.Status()
	fmt.Printf("started %s (pid %d)\n", st.Service, st.PID)
	return nil
}

// startDebug launches the service attached to this terminal. No readiness
// tracking, no pid file: the session owns the process.
func (c command) startDebug() error {
	fc, err := warden.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return err
	}
	cfg := fc.SupervisorConfig()
	cfg.Service.Mode = warden.ModeInteractiveDebug
	sup := warden.New(cfg, nil)
	ctx, cancel := opContext()
	defer cancel()
	return sup.Start(ctx)
}

func (c command) Stop() error {
	ctx, cancel := opContext()
	defer cancel()

	if rc := c.remote(); rc != nil {
		if err := rc.Stop(ctx); err != nil {
			return err
		}
		fmt.Println("stopped")
		return nil
	}

	sup, _, cleanup, err := c.localSetup()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := sup.Stop(ctx); err != nil {
		return err
	}
	fmt.Println("stopped")
	return nil
}

func (c command) Restart() error {
	ctx, cancel := opContext()
	defer cancel()

	if rc := c.remote(); rc != nil {
		if err := rc.Restart(ctx); err != nil {
			return err
		}
		fmt.Println("restarted")
		return nil
	}

	sup, _, cleanup, err := c.localSetup()
	if err != nil {
		return err
	}
	defer cleanup()
	if err := sup.Restart(ctx); err != nil {
		return err
	}
	st := sup.Status()
	fmt.Printf("restarted %s (pid %d)\n", st.Service, st.PID)
	return nil
}

func (c command) Status() error {
	var st warden.Status
	if rc := c.remote(); rc != nil {
		ctx, cancel := opContext()
		defer cancel()
		remote, err := rc.Status(ctx)
		if err != nil {
			return err
		}
		st = warden.Status(remote)
	} else {
		sup, _, cleanup, err := c.localSetup()
		if err != nil {
			return err
		}
		defer cleanup()
		sup.Recover()
		st = sup.Status()
	}

	if st.Running {
		fmt.Printf("%s: %s (pid %d, uptime %s)\n", st.Service, st.State, st.PID, st.Uptime)
		return nil
	}
	fmt.Printf("%s: %s\n", st.Service, st.State)
	return codedError{code: exitGeneric}
}

func (c command) History(limit int) error {
	if rc := c.remote(); rc != nil {
		ctx, cancel := opContext()
		defer cancel()
		events, err := rc.History(ctx, limit)
		if err != nil {
			return err
		}
		for _, e := range events {
			printEvent(e.OccurredAt.Local().Format("2006-01-02 15:04:05"), e.State, e.PID, e.Detail)
		}
		return nil
	}

	_, st, cleanup, err := c.localSetup()
	if err != nil {
		return err
	}
	defer cleanup()
	if st == nil {
		return fmt.Errorf("no [store] configured in %s", c.flags.ConfigPath)
	}
	fc, err := warden.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return err
	}
	ctx, cancel := opContext()
	defer cancel()
	events, err := st.Recent(ctx, fc.Service.Name, limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		printEvent(e.OccurredAt.Local().Format("2006-01-02 15:04:05"), e.State, e.PID, e.Detail)
	}
	return nil
}

func printEvent(ts, state string, pid int, detail string) {
	if detail != "" {
		fmt.Printf("%s  %-9s pid=%-7d %s\n", ts, state, pid, detail)
		return
	}
	fmt.Printf("%s  %-9s pid=%d\n", ts, state, pid)
}
