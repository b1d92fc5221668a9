//go:build linux

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/jyeno/coremem/pkg/collector/memory"
	"github.com/jyeno/coremem/pkg/config"
	"github.com/jyeno/coremem/pkg/procfs"
	"github.com/jyeno/coremem/pkg/report"
	"github.com/jyeno/coremem/pkg/ui"
)

// ownerUnset distinguishes "--owner not given" from "--owner with an empty
// value", which selects the invoking user.
const ownerUnset = "\x00unset"

func main() {
	os.Exit(run())
}

func run() int {
	app := kingpin.New("coremem", "Report physical memory usage per program, aggregated from the kernel's per-process accounting.")
	var (
		showSwap   = app.Flag("show-swap", "show swap information").Short('S').Bool()
		showArgs   = app.Flag("show-args", "show the full command line instead of the program name").Short('a').Bool()
		reverse    = app.Flag("reverse", "reverse the sort order").Short('r').Bool()
		totalOnly  = app.Flag("total", "show only the RAM total, human readable").Short('t').Bool()
		totalRaw   = app.Flag("total-machine", "show only the RAM total as raw kilobytes").Short('m').Bool()
		perPID     = app.Flag("per-pid", "report each process on its own row instead of merging by program").Short('d').Bool()
		watch      = app.Flag("watch", "measure and report every N seconds until interrupted").Short('w').PlaceHolder("N").Int()
		limit      = app.Flag("limit", "show only the last N rows").Short('l').PlaceHolder("N").Int()
		owner      = app.Flag("owner", "only consider processes owned by UID; an empty value selects the invoking user").Short('U').PlaceHolder("UID").Default(ownerUnset).String()
		pidList    = app.Flag("pids", "only consider the comma-separated PIDs").Short('p').PlaceHolder("PID[,PID...]").String()
		procRoot   = app.Flag("proc-root", "read process accounting from this tree instead of /proc").PlaceHolder("DIR").String()
		configPath = app.Flag("config", "YAML defaults file").Short('c').PlaceHolder("FILE").String()
		debug      = app.Flag("debug", "enable debug logging").Bool()
	)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg, ok := loadConfig(*configPath)
	if !ok {
		return 1
	}

	cfg.ShowSwap = cfg.ShowSwap || *showSwap
	cfg.ShowArgs = cfg.ShowArgs || *showArgs
	cfg.Reverse = cfg.Reverse || *reverse
	cfg.TotalOnly = cfg.TotalOnly || *totalOnly
	cfg.TotalMachine = cfg.TotalMachine || *totalRaw
	cfg.PerPID = cfg.PerPID || *perPID
	cfg.Debug = cfg.Debug || *debug
	if *watch != 0 {
		cfg.WatchSeconds = *watch
	}
	if *limit != 0 {
		cfg.Limit = *limit
	}
	if *procRoot != "" {
		cfg.ProcRoot = *procRoot
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *owner != ownerUnset {
		var uid uint32
		if *owner == "" {
			uid = procfs.CurrentUID()
		} else {
			v, err := strconv.ParseUint(*owner, 10, 32)
			if err != nil {
				logrus.Errorf("invalid owner uid %q", *owner)
				return 1
			}
			uid = uint32(v)
		}
		cfg.OwnerUID = &uid
	}

	pids, err := config.ParsePIDList(*pidList)
	if err != nil {
		logrus.Error(err)
		return 1
	}
	cfg.PIDs = pids

	if err := cfg.Validate(); err != nil {
		logrus.Error(err)
		return 1
	}

	tree := procfs.New(cfg.ProcRoot)
	opts := memory.Options{
		Explicit: cfg.PIDs,
		OwnerUID: cfg.OwnerUID,
		ShowArgs: cfg.ShowArgs,
	}
	render := report.RenderConfig{
		ShowSwap:     cfg.ShowSwap,
		PerPID:       cfg.PerPID,
		TotalOnly:    cfg.TotalOnly || cfg.TotalMachine,
		TotalMachine: cfg.TotalMachine,
	}

	out := bufio.NewWriter(os.Stdout)
	tick := func() error {
		samples, totals, err := memory.Collect(tree, opts)
		if err != nil {
			return err
		}
		rows := report.Aggregate(samples, cfg.PerPID)
		rows = report.Order(rows, cfg.Reverse, cfg.Limit)
		report.Render(out, rows, totals, render)
		return out.Flush()
	}

	if cfg.WatchSeconds == 0 {
		if err := tick(); err != nil {
			logrus.Error(err)
			return 1
		}
		return 0
	}

	interval := time.Duration(cfg.WatchSeconds) * time.Second
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	cleanupTerminal := enableSingleView()
	defer cleanupTerminal()

	refresh := func() error {
		if interactive {
			clearScreen()
			fmt.Print(ui.Header(time.Now(), interval))
		}
		return tick()
	}
	if err := refresh(); err != nil {
		logrus.Error(err)
		return 1
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			if err := refresh(); err != nil {
				logrus.Error(err)
				return 1
			}
		}
	}
}

// loadConfig resolves the defaults file: an explicit --config must load,
// the per-user default is used only when present.
func loadConfig(path string) (config.Config, bool) {
	explicit := path != ""
	if path == "" {
		if p := config.DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path == "" {
		return config.Default(), true
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			logrus.Errorf("loading config %s: %v", path, err)
			return config.Config{}, false
		}
		return config.Default(), true
	}
	return cfg, true
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func enableSingleView() func() {
	stdoutFD := int(os.Stdout.Fd())
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdoutFD) {
		return func() {}
	}

	fmt.Print("\033[?1049h") // switch to alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	var restore []func()
	if term.IsTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err != nil {
			logrus.Warnf("unable to suppress stdin echo: %v", err)
		} else if undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Print("\033[?25h")   // show cursor
		fmt.Print("\033[?1049l") // restore main buffer
	}
}

// disableInputEcho turns off stdin echo so the alternate-screen view stays clean.
func disableInputEcho(fd int) (func(), error) {
	termState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	updated := *termState
	updated.Lflag &^= unix.ECHO

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &updated); err != nil {
		return nil, err
	}

	return func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, termState)
	}, nil
}
