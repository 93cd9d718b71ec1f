package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wardenproc/warden"
)

// This example embeds the warden supervisor directly: start a service, wait
// for readiness via an HTTP probe, print its status, then stop it.
func main() {
	cfg := warden.Config{
		Service: warden.Spec{
			Name:    "demo",
			Command: "python3 -m http.server 8099",
		},
		PIDFile:       "/tmp/warden-demo.pid",
		StartTimeout:  15 * time.Second,
		ProbeInterval: 250 * time.Millisecond,
		StopTimeout:   5 * time.Second,
	}

	pc := warden.ProbeConfig{Type: "http", URL: "http://127.0.0.1:8099/"}
	prober, err := pc.BuildProber()
	if err != nil {
		panic(err)
	}

	sup := warden.New(cfg, prober)
	ctx := context.Background()

	if err := sup.Start(ctx); err != nil {
		panic(err)
	}
	b, _ := json.MarshalIndent(sup.Status(), "", "  ")
	fmt.Println(string(b))

	if err := sup.Stop(ctx); err != nil {
		panic(err)
	}
	fmt.Println("stopped")
}
