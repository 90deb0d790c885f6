package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/rover/internal/logging"
	"github.com/gwillem/rover/pkg/brainstore"
	"github.com/gwillem/rover/pkg/link"
	"github.com/gwillem/rover/pkg/render"
	"github.com/gwillem/rover/pkg/rover"
	"github.com/gwillem/rover/pkg/snapshot"
	"github.com/gwillem/rover/pkg/teleop"
)

type DriveCommand struct {
	Link     string `long:"link" choice:"sim" choice:"ws" choice:"none" description:"Rover link (overrides config)"`
	URL      string `long:"url" description:"Rover WebSocket URL, e.g. ws://rover.local:8080/rover"`
	FPS      int    `long:"fps" description:"Target frame rate (overrides config)"`
	Headless bool   `long:"headless" description:"Run without the terminal UI"`
	Frames   int    `long:"frames" description:"Stop after this many frames (headless only)"`
	Neurons  int    `long:"neurons" default:"5" description:"Hidden neurons of the simulated rover"`
}

const (
	chartHeight = 8
	maxLogs     = 5 // number of log messages to show
	borderSize  = 2 // chart border
)

// Tread colors
var treadColors = map[string]string{
	"left":  "46", // green
	"right": "51", // cyan
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	waitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type driveModel struct {
	ctrl     *teleop.Controller
	display  *render.TerminalDisplay
	chart    *streamlinechart.Model
	width    int // terminal width
	height   int // terminal height
	logs     []string
	state    teleop.State
	quitting bool
	lastCmd  *rover.DriveCommand
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string
type tickMsg time.Time

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// nextFrame schedules the next loop iteration after the rest of the frame
// budget.
func nextFrame(ctrl *teleop.Controller) tea.Cmd {
	return tea.Tick(ctrl.Limiter().Remaining(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *driveModel) chartWidth() int {
	if m.width == 0 {
		return 80
	}
	return max(40, m.width-borderSize-2)
}

func initialDriveModel(ctrl *teleop.Controller, display *render.TerminalDisplay) driveModel {
	chart := streamlinechart.New(80, chartHeight,
		streamlinechart.WithYRange(-1, 1),
	)
	for name, color := range treadColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return driveModel{
		ctrl:    ctrl,
		display: display,
		chart:   &chart,
	}
}

func (m driveModel) Init() tea.Cmd {
	return tea.Batch(
		nextFrame(m.ctrl),
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.display.Resize(msg.Width - 2)
		m.chart.Resize(m.chartWidth(), chartHeight)
		return m, nil

	case tea.KeyMsg:
		m.ctrl.Press(msg.String())
		if m.ctrl.Quitting() {
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.ctrl.Limiter().Begin()
		m.ctrl.Step()
		if m.ctrl.Quitting() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nextFrame(m.ctrl)

	case stateMsg:
		m.state = teleop.State(msg)
		// Only move the chart when the treads change (freeze when idle)
		drive := m.state.Command.Drive
		if m.lastCmd == nil || *m.lastCmd != drive {
			m.chart.PushDataSet("left", drive.Left)
			m.chart.PushDataSet("right", drive.Right)
			m.chart.DrawAll()
			m.lastCmd = &drive
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Console stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Rover Console"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	if m.state.Render.Decoded == 0 {
		sb.WriteString(waitingStyle.Render("Waiting for the first camera frame..."))
		sb.WriteString("\n")
	}
	sb.WriteString(m.display.View())
	sb.WriteString("\n")

	sb.WriteString(renderStatus(m.state))
	sb.WriteString("\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(20, m.width-4)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("wasd/qezc drive, r autonomous, l export, space snapshot, esc quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderStatus(s teleop.State) string {
	p := s.Command.Peripherals
	flag := func(name string, on bool) string {
		if on {
			return onStyle.Render(name)
		}
		return statusStyle.Render(name)
	}
	tilt := "level"
	switch p.CameraTilt {
	case 1:
		tilt = "up"
	case -1:
		tilt = "down"
	}

	parts := []string{
		fmt.Sprintf("%-15s %s", s.DriveState, s.Command.Drive),
		"tilt " + tilt,
		flag("stealth", p.Stealth),
		flag("lights", p.Lights),
		flag("detect", p.Detect),
		statusStyle.Render(fmt.Sprintf("%.0f fps", s.FPS)),
		statusStyle.Render(fmt.Sprintf("%d neurons", s.Render.Neurons)),
	}
	if s.Dropped > 0 {
		parts = append(parts, statusStyle.Render(fmt.Sprintf("%d dropped", s.Dropped)))
	}
	if s.Render.DecodeErrors > 0 {
		parts = append(parts, waitingStyle.Render(fmt.Sprintf("%d bad frames", s.Render.DecodeErrors)))
	}
	if !s.Render.LastFrameAt.IsZero() {
		parts = append(parts, statusStyle.Render("frame "+humanize.Time(s.Render.LastFrameAt)))
	}
	return strings.Join(parts, "  ")
}

func renderLegend() string {
	var items []string
	for _, name := range []string{"left", "right"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(treadColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name+" tread")
	}
	return strings.Join(items, "  ")
}

func loadConfig(path string) (*rover.Config, error) {
	cfg, err := rover.LoadConfigFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		return rover.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	if c.Link != "" {
		cfg.Link.Kind = c.Link
	}
	if c.URL != "" {
		cfg.Link.URL = c.URL
	}
	if c.FPS > 0 {
		cfg.Display.FPS = c.FPS
	}
	if cfg.Link.Kind == rover.LinkWebSocket && cfg.Link.URL == "" {
		return errors.New("the ws link needs --url or link.url in the config")
	}

	headless := c.Headless || !isatty.IsTerminal(os.Stdout.Fd())

	// The terminal belongs to the UI, so logs go to a file unless headless.
	var logOut io.Writer = os.Stderr
	if !headless {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New("rover", cfg.Log.Level, logOut)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	handle := rover.NewHandle()

	var exporter teleop.WeightExporter
	store := brainstore.NewSQLiteStore(cfg.Export.Database)
	if err := store.Init(ctx); err != nil {
		logger.Warn("weight export disabled", "database", cfg.Export.Database, "error", err)
	} else {
		defer store.Close()
		exporter = store
	}

	var display *render.TerminalDisplay
	ctrlCfg := teleop.Config{
		Handle:     handle,
		Snapshots:  snapshot.NewWriter(cfg.Snapshot.Dir, cfg.Snapshot.Extension),
		Exporter:   exporter,
		FPS:        cfg.Display.FPS,
		KeyRelease: cfg.Display.KeyRelease,
		Logger:     logger.Named("console"),
	}
	if !headless {
		display = render.NewTerminalDisplay(80)
		ctrlCfg.Display = display
	}
	ctrl, err := teleop.NewController(ctrlCfg)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	linkCtx, stopLinks := context.WithCancel(ctx)
	waitLinks := startLinks(linkCtx, cfg, c.Neurons, handle, logger)
	defer func() {
		stopLinks()
		waitLinks()
	}()
	defer ctrl.Close()

	logger.Info("console starting", "link", cfg.Link.Kind, "fps", cfg.Display.FPS, "headless", headless)

	if headless {
		return runHeadless(ctx, ctrl, c.Frames)
	}

	p := tea.NewProgram(initialDriveModel(ctrl, display), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}

// runHeadless drives the loop without a UI, stopping after frames
// iterations when frames > 0.
func runHeadless(ctx context.Context, ctrl *teleop.Controller, frames int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if frames > 0 {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case s := <-ctrl.States():
					if s.Render.Iterations >= uint64(frames) {
						fmt.Printf("%d frames, %d decoded, %d unreadable, %.1f fps\n",
							s.Render.Iterations, s.Render.Decoded, s.Render.DecodeErrors, s.FPS)
						cancel()
						return
					}
				}
			}
		}()
	}

	err := ctrl.Run(ctx, nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startLinks starts the configured rover link and the optional serial
// sink and tilt servo. The returned function waits for all of them to stop.
func startLinks(ctx context.Context, cfg *rover.Config, neurons int, h *rover.Handle, logger hclog.Logger) func() {
	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Error("link stopped", "link", name, "error", err)
			}
		}()
	}

	switch cfg.Link.Kind {
	case rover.LinkSim:
		sim := link.NewSimulator(neurons, logger.Named("sim"))
		run("sim", func() error { return sim.Run(ctx, h) })
	case rover.LinkWebSocket:
		ws := link.NewWebSocketLink(cfg.Link.URL, cfg.Link.SendEvery, logger.Named("ws"))
		run("ws", func() error { return ws.Run(ctx, h) })
	case rover.LinkNone:
	default:
		logger.Warn("unknown link kind, running without a rover", "kind", cfg.Link.Kind)
	}

	if cfg.Link.SerialPort != "" {
		sink, err := link.OpenSerialSink(cfg.Link.SerialPort, cfg.Link.SerialBaud, logger.Named("serial"))
		if err != nil {
			logger.Error("serial sink disabled", "error", err)
		} else {
			run("serial", func() error {
				defer sink.Close()
				return sink.Run(ctx, h, cfg.Link.SendEvery)
			})
		}
	}

	if cfg.Tilt.Enabled() {
		cal := link.TiltCalibration{RangeMin: cfg.Tilt.RangeMin, RangeMax: cfg.Tilt.RangeMax}
		tilt, err := link.NewTiltServo(ctx, cfg.Tilt.Port, cfg.Tilt.ID, cal, logger.Named("tilt"))
		if err != nil {
			logger.Error("tilt servo disabled", "error", err)
		} else {
			run("tilt", func() error {
				defer tilt.Close()
				return tilt.Run(ctx, h, cfg.Link.SendEvery)
			})
		}
	}

	return wg.Wait
}
