package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/rover/pkg/rover"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const noPort = "none"

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Rover Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}

	// Step 1: rover link
	if err := chooseLink(cfg); err != nil {
		return err
	}

	// Step 2: serial bridge and tilt servo
	ports := listPorts()
	if err := chooseSerialBridge(cfg, ports); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Camera Tilt Servo ━━━"))
	fmt.Println()
	if tilt, ok := findTiltServo(ports, cfg.Link.SerialPort); ok {
		if err := calibrateTilt(tilt, &cfg.Tilt); err != nil {
			fmt.Fprintf(os.Stderr, "Error calibrating tilt servo: %v\n", err)
		}
	} else {
		fmt.Println("No tilt servo found, camera tilt keys will only be sent to the rover.")
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("rover drive"))
	return nil
}

func chooseLink(cfg *rover.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How does the console reach the rover?").
				Options(
					huh.NewOption("WebSocket", rover.LinkWebSocket),
					huh.NewOption("Simulator (no hardware)", rover.LinkSim),
					huh.NewOption("No link (local peripherals only)", rover.LinkNone),
				).
				Value(&cfg.Link.Kind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Rover WebSocket URL").
				Placeholder("ws://rover.local:8080/rover").
				Value(&cfg.Link.URL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "ws://") && !strings.HasPrefix(s, "wss://") {
						return fmt.Errorf("URL must start with ws:// or wss://")
					}
					return nil
				}),
		).WithHideFunc(func() bool {
			return cfg.Link.Kind != rover.LinkWebSocket
		}),
	)
	return form.Run()
}

func listPorts() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out
}

func chooseSerialBridge(cfg *rover.Config, ports []string) error {
	if len(ports) == 0 {
		cfg.Link.SerialPort = ""
		return nil
	}

	options := []huh.Option[string]{huh.NewOption("No serial bridge", noPort)}
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}

	choice := cfg.Link.SerialPort
	if choice == "" {
		choice = noPort
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Serial port of the drive microcontroller").
				Description("Commands are written as CSV lines at the configured baud rate").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if choice == noPort {
		choice = ""
	}
	cfg.Link.SerialPort = choice
	return nil
}

type tiltInfo struct {
	port  string
	servo feetech.FoundServo
}

// findTiltServo scans the servo buses for a single servo to use for the
// camera tilt. The serial bridge port is skipped.
func findTiltServo(ports []string, skip string) (tiltInfo, bool) {
	fmt.Println("Scanning for servos...")

	var found []tiltInfo
	for _, port := range ports {
		if port == skip {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, 10)
		cancel()
		bus.Close()
		if err != nil {
			continue
		}
		for _, s := range servos {
			fmt.Printf("  Found servo %d on %s\n", s.ID, port)
			found = append(found, tiltInfo{port: port, servo: s})
		}
	}

	switch len(found) {
	case 0:
		return tiltInfo{}, false
	case 1:
		return found[0], true
	}

	var options []huh.Option[int]
	for i, f := range found {
		options = append(options, huh.NewOption(fmt.Sprintf("Servo %d on %s", f.servo.ID, f.port), i))
	}
	options = append(options, huh.NewOption("None of these", -1))

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which servo tilts the camera?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil || choice < 0 {
		return tiltInfo{}, false
	}
	return found[choice], true
}

func calibrateTilt(info tiltInfo, tiltCfg *rover.TiltConfig) error {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     info.port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer bus.Close()

	servo := feetech.NewServo(bus, info.servo.ID, info.servo.Model)

	// Release torque so the camera can be moved by hand
	ctx := context.Background()
	servo.Disable(ctx)

	pos, err := servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}

	fmt.Println(subHeaderStyle.Render("Record tilt range"))
	fmt.Println("Tilt the camera fully down AND fully up by hand.")
	fmt.Println()

	p := tea.NewProgram(calibrationModel{servo: servo, cur: pos, min: pos, max: pos})
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if cm.max-cm.min < 50 {
		return fmt.Errorf("range %d..%d too small, tilt servo not configured", cm.min, cm.max)
	}

	*tiltCfg = rover.TiltConfig{
		Port:     info.port,
		ID:       info.servo.ID,
		RangeMin: cm.min,
		RangeMax: cm.max,
	}
	fmt.Printf("Tilt servo %d calibrated: %d..%d\n", info.servo.ID, cm.min, cm.max)
	return nil
}

// Calibration TUI model
type calibrationModel struct {
	servo    *feetech.Servo
	cur      int
	min      int
	max      int
	quitting bool
}

type calibrationTickMsg time.Time

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return calibrationTickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case calibrationTickMsg:
		pos, err := m.servo.Position(context.Background())
		if err == nil {
			m.cur = pos
			m.min = min(m.min, pos)
			m.max = max(m.max, pos)
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rangeSize := m.max - m.min
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Current", "Min", "Max", "Range").
		Row(fmt.Sprint(m.cur), fmt.Sprint(m.min), fmt.Sprint(m.max), fmt.Sprint(rangeSize)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableCurrentStyle
			case col == 3 && rangeSize > 500:
				return tableRangeGoodStyle
			case col == 3:
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
