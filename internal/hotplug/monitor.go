package hotplug

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/config"
)

// defaultDebounce applies when the configured debounce is not positive.
const defaultDebounce = 250 * time.Millisecond

// Logger defines the logging interface used by the Monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Change is one card touched by a burst of uevents.
type Change struct {
	// Card is the kernel card name, "card1".
	Card string

	// Action is the last action seen for the card: add, remove or change.
	Action string
}

// Handler receives the cards changed by one debounced burst, ordered by
// card name. It runs on the debounce timer goroutine.
type Handler func(changes []Change)

// Monitor listens for udev sound events.
type Monitor struct {
	debounce time.Duration
	handler  Handler
	logger   Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	pending map[string]string
	timer   *time.Timer
}

// New creates a Monitor. It returns nil when hotplug is disabled; a nil
// Monitor is safe to Start and Stop.
func New(cfg config.HotplugConfig, handler Handler) *Monitor {
	if !cfg.Enabled {
		return nil
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Monitor{
		debounce: debounce,
		handler:  handler,
		logger:   noopLogger{},
		pending:  make(map[string]string),
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	if m == nil {
		return
	}
	m.logger = logger
}

// Start begins listening for udev events. Failing to open the netlink
// socket is logged and not returned.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; hotplug relies on audio server events",
			"error", err)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("hotplug monitor started", "debounce", m.debounce)
	return nil
}

// Stop shuts the monitor down and drops any burst still being debounced.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	clear(m.pending)

	if !m.running {
		return
	}

	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close() //nolint:errcheck // Best effort on shutdown
		m.conn = nil
	}
	m.running = false

	m.logger.Info("hotplug monitor stopped")
}

// Running reports whether the monitor is listening.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", "error", err)
		}
	}
}

// buildMatcher matches add, remove and change events of the sound subsystem.
func buildMatcher() netlink.Matcher {
	action := "add|remove|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}

// handleEvent records the card of uevent and restarts the debounce timer.
func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	card := cardName(uevent)
	if card == "" {
		m.logger.Debug("ignoring sound event without card", "action", string(uevent.Action), "kobj", uevent.KObj)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending[card] = string(uevent.Action)
	if m.timer != nil {
		m.timer.Reset(m.debounce)
		return
	}
	m.timer = time.AfterFunc(m.debounce, m.flush)
}

// flush hands the pending burst to the handler.
func (m *Monitor) flush() {
	m.mu.Lock()
	m.timer = nil
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	changes := make([]Change, 0, len(m.pending))
	for card, action := range m.pending {
		changes = append(changes, Change{Card: card, Action: action})
	}
	clear(m.pending)
	m.mu.Unlock()

	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Card, b.Card) })
	m.logger.Info("sound cards changed", "cards", len(changes))
	if m.handler != nil {
		m.handler(changes)
	}
}

// cardName extracts the kernel card name from a sound uevent. DEVPATH
// ends in the card itself ("/devices/.../sound/card1") or in one of its
// devices ("/devices/.../sound/card1/pcmC1D0p"); DEVNAME names a device
// node ("snd/controlC1").
func cardName(uevent netlink.UEvent) string {
	for seg := range strings.SplitSeq(uevent.Env["DEVPATH"], "/") {
		if isCardSegment(seg) {
			return seg
		}
	}
	if name := uevent.Env["DEVNAME"]; name != "" {
		base := name[strings.LastIndexByte(name, '/')+1:]
		if num, ok := strings.CutPrefix(base, "controlC"); ok && isNumber(num) {
			return "card" + num
		}
	}
	return ""
}

func isCardSegment(seg string) bool {
	num, ok := strings.CutPrefix(seg, "card")
	return ok && isNumber(num)
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return s != "" && err == nil
}
