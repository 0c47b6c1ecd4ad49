package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/undertow/internal/bridge"
	"github.com/llehouerou/undertow/internal/config"
	"github.com/llehouerou/undertow/internal/engine"
	"github.com/llehouerou/undertow/internal/errmsg"
	"github.com/llehouerou/undertow/internal/interrupt"
	"github.com/llehouerou/undertow/internal/library"
	"github.com/llehouerou/undertow/internal/notify"
	"github.com/llehouerou/undertow/internal/queue"
	"github.com/llehouerou/undertow/internal/renderer"
	"github.com/llehouerou/undertow/internal/session"
)

const sessionName = "music"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpInitialize, err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)

	store, err := session.OpenStore(cfg.StateDir)
	if err != nil {
		return err
	}
	defer store.Close()

	lib := library.New(log.With().Str("component", "library").Logger())
	if len(cfg.LibrarySources) > 0 {
		lib.Scan(cfg.LibrarySources)
	}
	if lib.Len() == 0 {
		log.Warn().Msg("library is empty, check library_sources in config")
	}

	rend, err := renderer.NewBeep()
	if err != nil {
		return err
	}

	engLog := log.With().Str("component", "engine").Logger()
	opts := []engine.Option{engine.WithLogger(engLog)}
	if d := cfg.TickInterval(); d > 0 {
		opts = append(opts, engine.WithTickInterval(d))
	}
	if d := cfg.PreviousThreshold(); d > 0 {
		opts = append(opts, engine.WithQueueOptions(queue.WithPreviousThreshold(d)))
	}

	eng := engine.New(rend, engine.TrackPolicy{Counts: store, Log: engLog}, opts...)
	defer eng.Close()

	restoreSession(eng, store, lib, log)

	stopAutoSave := session.AutoSave(eng, store, sessionName, log)
	defer stopAutoSave()

	mpris, err := bridge.NewMPRIS(eng)
	if err != nil {
		log.Warn().Err(err).Msg(string(errmsg.OpBridgeStart))
	} else {
		defer mpris.Close()
	}

	if notifier, err := notify.New(); err == nil {
		stopNotify := notify.Watch(eng, notifier)
		defer stopNotify()
	}

	focus := interrupt.NewChannelSource()
	go watchFocusSignals(focus)
	coord := interrupt.New(eng, focus, log.With().Str("component", "interrupt").Logger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	return commandLoop(eng, lib, store, log)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

// restoreSession brings back the previous queue and transport state.
// Failure is not fatal: the stale snapshot is discarded and playback
// starts Idle.
func restoreSession(eng engine.Service, store *session.Store, lib *library.Library, log zerolog.Logger) {
	persisted, err := store.Load(sessionName)
	if err != nil {
		log.Warn().Err(err).Msg(string(errmsg.OpSessionLoad))
		return
	}
	if persisted == nil {
		return
	}

	rs, err := session.Restore(*persisted, lib)
	if err != nil {
		log.Warn().Err(err).Msg(string(errmsg.OpSessionRestore))
		_ = store.Delete(sessionName)
		return
	}
	if err := eng.RestoreSession(rs); err != nil {
		log.Warn().Err(err).Msg(string(errmsg.OpSessionRestore))
		return
	}
	log.Info().
		Str("item", rs.Current.Title).
		Dur("position", rs.Position).
		Msg("session restored")
}

func commandLoop(eng engine.Service, lib *library.Library, store *session.Store, log zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	printStatus(eng)

	for {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			flush(eng, store)
			return nil
		case line, ok := <-lines:
			if !ok {
				flush(eng, store)
				return nil
			}
			if quit := handleCommand(eng, lib, line, log); quit {
				flush(eng, store)
				return nil
			}
		}
	}
}

// flush writes the final session state synchronously before exit.
func flush(eng engine.Service, store *session.Store) {
	if sess, ok := session.Snapshot(eng); ok {
		_ = store.SaveNow(sessionName, sess)
	}
}

//nolint:gocyclo // one case per command keeps this flat and readable
func handleCommand(eng engine.Service, lib *library.Library, line string, log zerolog.Logger) (quit bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "play":
		if len(args) > 0 {
			startPlayback(eng, lib, strings.Join(args, " "), log)
		} else if err := eng.Play(); err != nil {
			fmt.Println(errmsg.Format(errmsg.OpPlaybackStart, err))
		}
	case "pause":
		_ = eng.Pause()
	case "toggle", "p":
		if err := eng.Toggle(); err != nil {
			fmt.Println(errmsg.Format(errmsg.OpPlaybackToggle, err))
		}
	case "next", "n":
		if err := eng.Next(); err != nil {
			fmt.Println(errmsg.Format(errmsg.OpPlaybackNext, err))
		}
	case "prev":
		if err := eng.Previous(); err != nil {
			fmt.Println(errmsg.Format(errmsg.OpPlaybackPrev, err))
		}
	case "seek":
		if len(args) == 1 {
			if secs, err := strconv.ParseFloat(args[0], 64); err == nil {
				delta := time.Duration(secs * float64(time.Second))
				if err := eng.Seek(delta); err != nil {
					fmt.Println(errmsg.Format(errmsg.OpPlaybackSeek, err))
				}
			}
		}
	case "shuffle":
		fmt.Printf("shuffle: %v\n", eng.ToggleShuffle())
	case "repeat":
		fmt.Printf("repeat: %s\n", eng.CycleRepeatMode())
	case "volume":
		if len(args) == 1 {
			if level, err := strconv.ParseFloat(args[0], 64); err == nil {
				eng.SetVolume(level)
			}
		}
		fmt.Printf("volume: %.0f%%\n", eng.Volume()*100)
	case "rate":
		if len(args) == 1 {
			if rate, err := strconv.ParseFloat(args[0], 64); err == nil {
				if err := eng.SetRate(rate); err != nil {
					fmt.Println(errmsg.Format(errmsg.OpPlaybackRate, err))
				}
			}
		}
	case "clear":
		eng.Clear()
	case "status", "s":
		printStatus(eng)
	case "quit", "q":
		return true
	default:
		fmt.Printf("unknown command %q\n", cmd)
	}
	return false
}

// startPlayback starts the whole library as the queue, positioned at the
// first item whose title or artist matches the filter.
func startPlayback(eng engine.Service, lib *library.Library, filter string, log zerolog.Logger) {
	items := lib.Items()
	if len(items) == 0 {
		fmt.Println("library is empty")
		return
	}

	index := 0
	needle := strings.ToLower(filter)
	for i, it := range items {
		if strings.Contains(strings.ToLower(it.Title), needle) ||
			strings.Contains(strings.ToLower(it.Artist), needle) {
			index = i
			break
		}
	}

	if err := eng.Start(items, index); err != nil {
		fmt.Println(errmsg.Format(errmsg.OpPlaybackStart, err))
		return
	}
	log.Debug().Int("queue", len(items)).Int("index", index).Msg("playback started")
}

func printStatus(eng engine.Service) {
	np := bridge.Project(eng)

	if np.Title == "" {
		fmt.Printf("[%s] nothing playing\n", np.State)
		return
	}

	fmt.Printf("[%s] %s - %s (%s / %s)  shuffle=%v repeat=%s volume=%.0f%%\n",
		np.State, np.Artist, np.Title,
		formatDuration(np.Position), formatDuration(np.Duration),
		np.Shuffle, np.Repeat, np.Volume*100)
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
