package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/goveeplug/internal/ble"
	"github.com/muurk/goveeplug/internal/config"
	"github.com/muurk/goveeplug/internal/discovery"
	"github.com/muurk/goveeplug/internal/plug"
	"github.com/muurk/goveeplug/internal/protocol"
	"github.com/muurk/goveeplug/internal/wizard/tui"
)

// Command flags
var (
	scanTimeout    int
	pairTimeout    int
	commandTimeout int
	portArg        string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(wizardCmd)
}

// scanCmd discovers plugs over BLE
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Govee plugs over Bluetooth",
	Long: `Scan for Govee smart plugs by listening for their BLE broadcasts.

Plugs broadcast continuously while powered, including their current power
state, so scanning is completely passive and never connects to anything.`,
	Example: `  # Scan for 10 seconds (default)
  goveeplug-ctl scan

  # Quick 3-second scan
  goveeplug-ctl scan --timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	fmt.Printf("Scanning for Govee plugs (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner(ble.NewTinyGoAdapter())
	devices, err := scanner.Scan(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No plugs found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Plugs only broadcast while powered")
		fmt.Println("  - Move closer to the plug")
		fmt.Println("  - Check that Bluetooth is enabled")
		fmt.Println("  - Try increasing --timeout in noisy RF environments")
		return nil
	}

	fmt.Printf("Found %d plug(s):\n\n", len(devices))

	for i, device := range devices {
		paired := ""
		if entry := registry.GetDevice(device.Address); entry != nil && entry.AccessToken != "" {
			paired = " (paired)"
		}
		fmt.Printf("%d. %s%s\n", i+1, device.Name, paired)
		fmt.Printf("   Model:   %s\n", device.Model)
		fmt.Printf("   Address: %s\n", device.Address)
		fmt.Printf("   Signal:  %d dBm\n", device.RSSI)
		fmt.Printf("   State:   %s\n", device.StateSummary())
		fmt.Println()
	}

	fmt.Println("Use 'goveeplug-ctl pair <address>' to pair with a plug")
	fmt.Println("Use 'goveeplug-ctl wizard' for interactive setup")

	return nil
}

// pairCmd performs the button-hold pairing exchange and stores the token
var pairCmd = &cobra.Command{
	Use:   "pair <address>",
	Short: "Pair with a plug and store its access token",
	Long: `Pair with a Govee plug over BLE.

The plug declines pairing until its power button is held down, so be ready
to hold the button (until the LED flashes) once pairing starts. The plug
then issues a 16-byte access token, which is stored in the device registry
and used to authenticate every later command.

Pairing again replaces any previously stored token.`,
	Example: `  # Pair with a plug found by 'scan'
  goveeplug-ctl pair A4:C1:38:01:02:03

  # Allow more time to reach the button
  goveeplug-ctl pair A4:C1:38:01:02:03 --timeout 120`,
	Args: cobra.ExactArgs(1),
	RunE: runPair,
}

func init() {
	pairCmd.Flags().IntVar(&pairTimeout, "timeout", 60, "Pairing timeout in seconds")
}

func runPair(cmd *cobra.Command, args []string) error {
	address := args[0]

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	adapter := ble.NewTinyGoAdapter()

	// The model decides the frame bytes, so identify the plug from its
	// broadcast before connecting
	fmt.Printf("Looking for %s...\n", address)
	findCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	device, err := discovery.NewScanner(adapter).Find(findCtx, address, 10*time.Second)
	cancel()
	if err != nil {
		return fmt.Errorf("plug not heard from: %w (is it powered and in range?)", err)
	}

	fmt.Printf("Found %s (%s)\n\n", device.Name, device.Model)
	fmt.Println("Hold the power button on the plug until its LED flashes...")

	pairCtx, cancel := context.WithTimeout(cmd.Context(), time.Duration(pairTimeout)*time.Second)
	defer cancel()

	token, err := plug.Pair(pairCtx, adapter, device.Address, device.Model, plug.DefaultOptions())
	if err != nil {
		fmt.Printf("\n✗ Pairing failed: %v\n", err)
		if hint := plug.GetTroubleshootingHint(err); hint != "" {
			fmt.Printf("  %s\n", hint)
		}
		return fmt.Errorf("pairing failed")
	}

	registry.SetDevice(&config.Device{
		Address:     device.Address,
		Model:       string(device.Model),
		Name:        device.Name,
		AccessToken: token,
		PairedAt:    time.Now(),
	})
	if err := registry.Save(); err != nil {
		return fmt.Errorf("paired, but failed to save token: %w", err)
	}

	fmt.Printf("\n✓ Paired with %s\n", device.Name)
	fmt.Printf("Use 'goveeplug-ctl on %s' to switch it on\n", device.Address)

	return nil
}

// onCmd switches a port on
var onCmd = &cobra.Command{
	Use:   "on <device>",
	Short: "Switch a plug on",
	Long: `Switch a paired plug (or one of its ports) on.

The device may be given as a BLE address or as the plug's advertised name
as stored in the registry. Dual-outlet plugs take --port to pick a port by
index or by name; without it every port is switched.`,
	Example: `  # Switch a single-outlet plug on
  goveeplug-ctl on A4:C1:38:01:02:03

  # Switch only the left outlet of an H5082
  goveeplug-ctl on ihoment_H5082_ABCD --port Left`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, args[0], true)
	},
}

// offCmd switches a port off
var offCmd = &cobra.Command{
	Use:   "off <device>",
	Short: "Switch a plug off",
	Long: `Switch a paired plug (or one of its ports) off.

See 'goveeplug-ctl on --help' for how devices and ports are addressed.`,
	Example: `  # Switch a plug off
  goveeplug-ctl off A4:C1:38:01:02:03

  # Switch only port 1 (the right outlet of an H5082)
  goveeplug-ctl off A4:C1:38:01:02:03 --port 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, args[0], false)
	},
}

func init() {
	for _, c := range []*cobra.Command{onCmd, offCmd} {
		c.Flags().StringVar(&portArg, "port", "", "Port to switch, by index or name (default: all ports)")
		c.Flags().IntVar(&commandTimeout, "timeout", 30, "Command timeout in seconds")
	}
}

func runSwitch(cmd *cobra.Command, deviceArg string, on bool) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	entry, err := lookupDevice(registry, deviceArg)
	if err != nil {
		return err
	}

	spec, ok := protocol.SpecFor(protocol.Model(entry.Model))
	if !ok {
		return fmt.Errorf("registry entry for %s has unsupported model %q", entry.Address, entry.Model)
	}

	ports, err := resolvePorts(spec, portArg)
	if err != nil {
		return err
	}

	handle, err := plug.New(ble.NewTinyGoAdapter(), entry.Address, spec.Model, entry.AccessToken, plug.DefaultOptions())
	if err != nil {
		return err
	}
	defer handle.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(commandTimeout)*time.Second)
	defer cancel()

	verb := "on"
	if !on {
		verb = "off"
	}

	for _, port := range ports {
		var confirmed bool
		if on {
			confirmed, err = handle.TurnOn(ctx, port)
		} else {
			confirmed, err = handle.TurnOff(ctx, port)
		}
		if err != nil {
			fmt.Printf("✗ %s: %v\n", spec.PortNames[port], err)
			if hint := plug.GetTroubleshootingHint(err); hint != "" {
				fmt.Printf("  %s\n", hint)
			}
			return fmt.Errorf("switch %s failed", verb)
		}
		if !confirmed {
			return fmt.Errorf("plug did not confirm switching %s %s", spec.PortNames[port], verb)
		}
		fmt.Printf("✓ %s %s\n", spec.PortNames[port], verb)
	}

	return nil
}

// statusCmd reports a plug's power state from its broadcasts
var statusCmd = &cobra.Command{
	Use:   "status <device>",
	Short: "Show a plug's power state",
	Long: `Show the current power state of a plug.

State is read passively from the plug's BLE broadcasts, so this works for
unpaired plugs too and never connects to the device.`,
	Example: `  goveeplug-ctl status A4:C1:38:01:02:03
  goveeplug-ctl status ihoment_H5082_ABCD`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Listen timeout in seconds")
}

func runStatus(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	address := args[0]
	if entry, lookupErr := lookupDevice(registry, args[0]); lookupErr == nil {
		address = entry.Address
	}

	fmt.Printf("Listening for %s...\n", address)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(scanTimeout+5)*time.Second)
	defer cancel()

	scanner := discovery.NewScanner(ble.NewTinyGoAdapter())
	device, err := scanner.Find(ctx, address, time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("plug not heard from: %w", err)
	}

	spec, _ := protocol.SpecFor(device.Model)

	fmt.Printf("\n%s (%s, %d dBm)\n", device.Name, device.Model, device.RSSI)
	if !device.HasState {
		fmt.Println("  State: unknown (broadcast carried no state data)")
		return nil
	}
	for i, on := range device.States {
		state := "off"
		if on {
			state = "on"
		}
		fmt.Printf("  %s: %s\n", spec.PortNames[i], state)
	}

	// Best effort: remember when a paired plug was last heard from
	if registry.GetDevice(device.Address) != nil {
		registry.UpdateLastSeen(device.Address, time.Now())
		_ = registry.Save()
	}
	return nil
}

// watchCmd streams state changes from plug broadcasts
var watchCmd = &cobra.Command{
	Use:   "watch [device]",
	Short: "Stream plug state changes from broadcasts",
	Long: `Continuously listen for plug broadcasts and print every state change.

With a device argument only that plug is watched; without one every
supported plug in range is. Runs until interrupted.`,
	Example: `  # Watch everything in range
  goveeplug-ctl watch

  # Watch one plug
  goveeplug-ctl watch A4:C1:38:01:02:03`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	address := ""
	if len(args) == 1 {
		address = args[0]
		registry, err := config.LoadRegistry()
		if err == nil {
			if entry, lookupErr := lookupDevice(registry, address); lookupErr == nil {
				address = entry.Address
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if address == "" {
		fmt.Println("Watching all plugs in range (ctrl+c to stop)...")
	} else {
		fmt.Printf("Watching %s (ctrl+c to stop)...\n", address)
	}

	// Only print when the decoded state actually changes per address
	last := make(map[string]string)

	monitor := discovery.NewMonitor(ble.NewTinyGoAdapter())
	detach := monitor.Attach(address, func(adv ble.Advertisement) {
		info, ok := protocol.ParseAdvertisement(protocol.Advertisement{
			LocalName:        adv.LocalName,
			ManufacturerData: adv.ManufacturerData,
		})
		if !ok || !info.HasState {
			return
		}

		spec, _ := protocol.SpecFor(info.Model)
		parts := make([]string, len(info.States))
		for i, on := range info.States {
			state := "off"
			if on {
				state = "on"
			}
			parts[i] = fmt.Sprintf("%s=%s", spec.PortNames[i], state)
		}
		summary := strings.Join(parts, " ")

		key := strings.ToLower(adv.Address)
		if last[key] == summary {
			return
		}
		last[key] = summary

		fmt.Printf("%s  %s  %s\n", time.Now().Format("15:04:05"), adv.Address, summary)
	})
	defer detach()

	return monitor.Run(ctx)
}

// devicesCmd lists paired plugs from the registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List paired plugs",
	Long:  `List every plug in the device registry along with when it was paired.`,
	RunE:  runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	devices := registry.List()
	if len(devices) == 0 {
		fmt.Println("No paired plugs.")
		fmt.Println("Use 'goveeplug-ctl pair <address>' or 'goveeplug-ctl wizard' to pair one.")
		return nil
	}

	fmt.Printf("%d paired plug(s):\n\n", len(devices))
	for _, device := range devices {
		fmt.Printf("%s\n", device.Name)
		fmt.Printf("   Model:    %s\n", device.Model)
		fmt.Printf("   Address:  %s\n", device.Address)
		fmt.Printf("   Paired:   %s\n", device.PairedAt.Format("2006-01-02 15:04"))
		if !device.LastSeen.IsZero() {
			fmt.Printf("   Last seen: %s\n", device.LastSeen.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}

	return nil
}

// wizardCmd launches the interactive TUI wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard [address]",
	Short: "Launch interactive setup wizard",
	Long: `Launch an interactive TUI wizard for plug setup and control.

The wizard walks through:
- Scanning for plugs in range
- Pairing (hold the plug's button when prompted)
- Switching ports on and off

This is the recommended way to set up plugs for most users.`,
	Example: `  # Launch wizard with a scan
  goveeplug-ctl wizard
  # Or simply (wizard is default in a terminal):
  goveeplug-ctl

  # Skip the scan and go straight to one plug
  goveeplug-ctl wizard A4:C1:38:01:02:03`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}

	adapter := ble.NewTinyGoAdapter()

	var device *discovery.Device
	if len(args) == 1 {
		// Direct to one plug: it still has to be heard from first, both to
		// confirm it is in range and to learn its model
		fmt.Printf("Looking for %s...\n", args[0])
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		device, err = discovery.NewScanner(adapter).Find(ctx, args[0], 10*time.Second)
		cancel()
		if err != nil {
			return fmt.Errorf("plug not heard from: %w", err)
		}
	}

	model := tui.NewAppModel(adapter, registry, device)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}

	return nil
}

// lookupDevice resolves a CLI device argument (address or advertised name)
// against the registry
func lookupDevice(registry *config.Registry, arg string) (*config.Device, error) {
	if entry := registry.GetDevice(arg); entry != nil {
		return entry, nil
	}
	for _, entry := range registry.List() {
		if strings.EqualFold(entry.Name, arg) {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("no paired plug matches %q (see 'goveeplug-ctl devices', or pair it first)", arg)
}

// resolvePorts turns the --port flag into port indices. An empty flag means
// every port of the model.
func resolvePorts(spec *protocol.Spec, arg string) ([]int, error) {
	if arg == "" {
		ports := make([]int, spec.Ports())
		for i := range ports {
			ports[i] = i
		}
		return ports, nil
	}

	if idx, err := strconv.Atoi(arg); err == nil {
		if idx < 0 || idx >= spec.Ports() {
			return nil, fmt.Errorf("model %s has no port %d (ports 0-%d)", spec.Model, idx, spec.Ports()-1)
		}
		return []int{idx}, nil
	}

	for i, name := range spec.PortNames {
		if strings.EqualFold(name, arg) {
			return []int{i}, nil
		}
	}
	return nil, fmt.Errorf("model %s has no port named %q (ports: %s)", spec.Model, arg, strings.Join(spec.PortNames, ", "))
}
