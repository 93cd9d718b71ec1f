package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/wardenproc/warden"
)

// This example loads a TOML config file and drives the service through one
// start/status/stop cycle using the public warden facade.
func main() {
	// Use the sample config in the repo (adjust path if running from a different cwd)
	cfgPath := filepath.Join("config", "warden.toml")
	fc, err := warden.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	prober, err := fc.Probe.BuildProber()
	if err != nil {
		panic(err)
	}
	sup := warden.New(fc.SupervisorConfig(), prober)

	if fc.Store != nil {
		st, err := warden.NewStore(*fc.Store)
		if err != nil {
			panic(err)
		}
		defer func() { _ = st.Close() }()
		sup.SetStore(st)
	}

	ctx := context.Background()
	if err := sup.Start(ctx); err != nil {
		panic(err)
	}
	b, _ := json.MarshalIndent(sup.Status(), "", "  ")
	fmt.Println(string(b))
	if err := sup.Stop(ctx); err != nil {
		panic(err)
	}
}
