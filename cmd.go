// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"

	"github.com/ffutop/modbus-simulator/internal/client"
	"github.com/ffutop/modbus-simulator/internal/config"
	"github.com/ffutop/modbus-simulator/internal/simulator"
)

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "modbus-simulator",
		Short: "Simulated Modbus register bank with synthetic signals.",
		Long: `modbus-simulator publishes counters, sine and cosine waves, a ramp and ` +
			`a triangle wave into holding registers and serves them over Modbus TCP ` +
			`(and optionally RTU). The read command fetches and decodes the block.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "log to this file instead of stderr")
	v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))

	load := func() (*config.Config, error) {
		cfg, err := config.LoadConfig(v, configFile)
		if err != nil {
			return nil, err
		}
		setupLogger(cfg.Log)
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCmd(v, load), newReadCmd(v, load))
	return rootCmd
}

func newServeCmd(v *viper.Viper, load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			slog.Info("Starting Modbus Simulator...",
				"address", cfg.Server.Address,
				"byteOrder", cfg.Simulator.ByteOrder,
				"bankSize", cfg.Simulator.BankSize)

			sim, err := simulator.New(cfg)
			if err != nil {
				return err
			}
			atexit.Register(func() { sim.Close() })

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sim.Start(ctx); err != nil {
				return err
			}
			slog.Info("Goodbye.")
			return nil
		},
	}
	cmd.Flags().String("address", "", "Modbus TCP listen address")
	cmd.Flags().String("byte-order", "", "word order of multi-register values: big or little")
	cmd.Flags().String("monitor", "", "HTTP monitor listen address")
	bindFlag(v, "server.address", cmd, "address")
	bindFlag(v, "simulator.byte_order", cmd, "byte-order")
	bindFlag(v, "monitor.address", cmd, "monitor")
	return cmd
}

func newReadCmd(v *viper.Viper, load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read and decode the register block once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			order, err := cfg.Client.Order()
			if err != nil {
				return err
			}

			reader, err := client.Dial(client.Config{
				URL:     cfg.Client.URL,
				UnitID:  cfg.Client.UnitID,
				Timeout: cfg.Client.Timeout,
			})
			if err != nil {
				return err
			}
			atexit.Register(func() { reader.Close() })

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.Timeout)
			defer cancel()

			reading, err := client.FetchRange(ctx, reader, cfg.Client.Start, cfg.Client.Count, order)
			if err != nil {
				slog.Error("Read failed", "url", cfg.Client.URL, "start", cfg.Client.Start, "count", cfg.Client.Count, "err", err)
				return err
			}
			return client.Render(cmd.OutOrStdout(), reading)
		},
	}
	cmd.Flags().String("url", "", "tcp://host:port or rtu:///dev/ttyUSB0")
	cmd.Flags().Uint8("unit-id", 1, "Modbus unit id")
	cmd.Flags().String("byte-order", "", "word order of multi-register values: big or little")
	cmd.Flags().Uint16("start", 0, "first register to read")
	cmd.Flags().Uint16("count", 0, "number of registers to read (1-125)")
	bindFlag(v, "client.url", cmd, "url")
	bindFlag(v, "client.start", cmd, "start")
	bindFlag(v, "client.count", cmd, "count")
	bindFlag(v, "client.unit_id", cmd, "unit-id")
	bindFlag(v, "client.byte_order", cmd, "byte-order")
	return cmd
}

// bindFlag makes an explicitly set flag override key.
func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	v.BindPFlag(key, cmd.Flags().Lookup(name))
}
