// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// The doctor command is a pre-flight check: it resolves the same
// config.Config the run command would start from and prints it next to
// the host's available resources, the same "tell me what you're about
// to run on" step an operator reaches for before starting the real
// binary on an unfamiliar box.
package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli/v2"

	"github.com/basalt-chain/basalt/config"
)

var doctorCommand = &cli.Command{
	Name:  "doctor",
	Usage: "print the resolved configuration and host resource headroom",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "data-dir"},
	},
	Action: runDoctor,
}

func runDoctor(c *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}

	fmt.Println("configuration:")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"chain_id", fmt.Sprint(cfg.ChainID)})
	table.Append([]string{"network_name", cfg.NetworkName})
	table.Append([]string{"validator_index", fmt.Sprint(cfg.ValidatorIndex)})
	table.Append([]string{"http_port", fmt.Sprint(cfg.HTTPPort)})
	table.Append([]string{"p2p_port", fmt.Sprint(cfg.P2PPort)})
	table.Append([]string{"data_dir", cfg.DataDir})
	table.Append([]string{"peers", fmt.Sprint(cfg.Peers)})
	table.Append([]string{"use_pipelining", fmt.Sprint(cfg.UsePipelining)})
	table.Append([]string{"use_sandbox", fmt.Sprint(cfg.UseSandbox)})
	table.Render()

	if err := cfg.Validate(); err != nil {
		fmt.Printf("configuration is NOT valid: %v\n", err)
	} else {
		fmt.Println("configuration is valid")
	}

	fmt.Println()
	fmt.Println("host resources:")
	counts, err := cpu.Counts(true)
	if err != nil {
		return fmt.Errorf("reading cpu count: %w", err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("reading memory stats: %w", err)
	}
	hostTable := tablewriter.NewWriter(os.Stdout)
	hostTable.SetHeader([]string{"resource", "value"})
	hostTable.Append([]string{"logical cpus", fmt.Sprint(counts)})
	hostTable.Append([]string{"memory total", fmt.Sprintf("%d MiB", vm.Total/1024/1024)})
	hostTable.Append([]string{"memory available", fmt.Sprintf("%d MiB", vm.Available/1024/1024)})
	hostTable.Render()
	return nil
}
