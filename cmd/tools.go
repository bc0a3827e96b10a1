package main

import (
	"fmt"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"smart_switch/internal/meter"
	"smart_switch/internal/models"
	"smart_switch/internal/rules"
	"smart_switch/internal/service"
)

func quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <units>",
		Short: "Price a monthly consumption with the configured tariff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("units: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tariff, err := cfg.Tariff()
			if err != nil {
				return err
			}
			return printJSON(cmd, service.NewBillingService(tariff).Quote(units))
		},
	}
}

func checkCmd() *cobra.Command {
	var voltage, current, power, temperature float64
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a reading against the safety thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			now := time.Now()
			snap := models.SensorSnapshot{
				Voltage:     voltage,
				Current:     current,
				Power:       power,
				LastUpdated: now,
			}
			if cmd.Flags().Changed("temperature") {
				snap.Temperature = &temperature
			}
			return printJSON(cmd, rules.EvaluateSafety(cfg.Thresholds(), snap, now))
		},
	}
	cmd.Flags().Float64Var(&voltage, "voltage", 0, "line voltage (V)")
	cmd.Flags().Float64Var(&current, "current", 0, "load current (A)")
	cmd.Flags().Float64Var(&power, "power", 0, "load power (W)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "device temperature (°C)")
	_ = cmd.MarkFlagRequired("voltage")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("power")
	return cmd
}

func readMeterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-meter",
		Short: "Read the Modbus energy meter once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := meter.NewClient(cfg.Meter.URL, cfg.Meter.Speed, cfg.Meter.UnitID, cfg.Meter.Timeout)
			defer client.Close()

			r, err := meter.Read(client)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]float64{
				"voltage":     r.Voltage,
				"current":     r.Current,
				"power":       r.Power,
				"energyKwh":   r.EnergyKWh(),
				"frequency":   r.Frequency,
				"powerFactor": r.PowerFactor,
			})
		},
	}
}

func genVAPIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-vapid",
		Short: "Generate a VAPID key pair for web push",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "push:\n  vapid_public_key: %s\n  vapid_private_key: %s\n", pub, priv)
			return nil
		},
	}
}
