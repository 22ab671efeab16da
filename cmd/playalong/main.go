package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	playalong "github.com/cbegin/playalong-go"
	"github.com/cbegin/playalong-go/internal/catalog"
	"github.com/cbegin/playalong-go/internal/config"
	"github.com/cbegin/playalong-go/internal/tui"
)

type options struct {
	configPath string
	songsPath  string
	assets     string
	songID     string
	logLevel   string
	logFile    string
	countIn    int
	headless   bool
	solo       string
}

func main() {
	defaultConfig, _ := config.DefaultPath()
	var opts options
	flag.StringVar(&opts.configPath, "config", defaultConfig, "path to the YAML config file")
	flag.StringVar(&opts.songsPath, "songs", "", "song list (JSON or YAML); overrides songsData from the config")
	flag.StringVar(&opts.assets, "assets", "", "assets directory; overrides assetsRoot from the config")
	flag.StringVar(&opts.songID, "song", "", "load this song id on start")
	flag.StringVar(&opts.logLevel, "log-level", "", "trace|debug|info|warn|error")
	flag.StringVar(&opts.logFile, "log-file", "", "log file (default: playalong.log in the config directory)")
	flag.IntVar(&opts.countIn, "count-in", -1, "count-in beats before playback (-1 keeps the config value)")
	flag.BoolVar(&opts.headless, "headless", false, "play -song once without the terminal UI")
	flag.StringVar(&opts.solo, "solo", "", "with -headless, play along with this instrument")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.songsPath != "" {
		cfg.SongsData = opts.songsPath
	}
	if opts.assets != "" {
		cfg.AssetsRoot = opts.assets
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.countIn >= 0 {
		cfg.CountInBeats = opts.countIn
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.SongsData == "" {
		cfg.SongsData = filepath.Join(cfg.AssetsRoot, catalog.DefaultOutput)
	}
	if opts.headless && opts.songID == "" {
		return errors.New("-headless needs -song")
	}

	logger, closeLog, err := openLogger(cfg, opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	songs, err := catalog.Load(cfg.SongsData)
	if err != nil {
		return fmt.Errorf("reading song list: %w", err)
	}
	catalog.SortByName(songs)
	logger.WithField("songs", len(songs)).Info("song list loaded")

	session, err := playalong.NewSession(playalong.WithConfig(cfg), playalong.WithLogger(logger))
	if err != nil {
		return err
	}
	defer session.Close()

	if opts.songID != "" {
		song, err := catalog.Find(songs, opts.songID)
		if err != nil {
			return err
		}
		fmt.Printf("loading %s...\n", song.Name)
		if err := session.LoadSong(*song); err != nil {
			return err
		}
	}
	if opts.headless {
		return playHeadless(session, opts.solo)
	}

	m := tui.NewModel(session, songs, cfg.RefreshRate)
	if opts.songID != "" {
		m = m.WithSong(opts.songID)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// playHeadless plays the loaded song once, printing session events, until it
// ends or the process is interrupted.
func playHeadless(session *playalong.Session, solo string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	events := session.Watch()
	if solo != "" {
		if err := session.SetSoloInstrument(solo); err != nil {
			return err
		}
	}
	if err := session.TogglePlayback(); err != nil {
		return err
	}
	go session.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("interrupted")
			return session.Stop()
		case ev := <-events:
			switch ev.Kind {
			case playalong.EventCountInBeat:
				fmt.Printf("count-in %d\n", ev.Beat)
			case playalong.EventStateChanged:
				fmt.Printf("state %s\n", ev.State)
			case playalong.EventWarning:
				fmt.Printf("warning: %v\n", ev.Err)
			case playalong.EventEndReached:
				fmt.Println("playback completed")
				return nil
			}
		}
	}
}

// openLogger sends logs to a file; the terminal belongs to the UI.
func openLogger(cfg *config.Config, path string) (*logrus.Logger, func(), error) {
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "playalong.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, err
	}
	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	return logger, func() { f.Close() }, nil
}
