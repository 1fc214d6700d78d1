package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crystal-mush/riftcore/pkg/boltstore"
	"github.com/crystal-mush/riftcore/pkg/navgrid"
)

// Server owns a match and everything around it: storage, the replay log,
// the web transport and the nav grid watcher.
type Server struct {
	Conf  *Conf
	Game  *Game
	Web   *WebServer
	Auth  *AuthService
	Store *boltstore.Store
}

// NewServer opens storage and wires a game to its transport.
func NewServer(conf *Conf) (*Server, error) {
	var grid *navgrid.Grid
	if conf.NavGridPath != "" {
		g, err := navgrid.Load(conf.NavGridPath)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		grid = g
		log.Printf("Loaded nav grid %s (%dx%d)", conf.NavGridPath, g.Width, g.Height)
	}

	game, err := NewGame(conf, grid)
	if err != nil {
		return nil, err
	}

	s := &Server{Conf: conf, Game: game}
	if conf.BoltPath != "" {
		store, err := boltstore.Open(conf.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.Store = store
		game.Store = store
		log.Printf("Opened account store %s (schema v%d)", store.Path(), store.Version())
	}
	if conf.ReplayEnabled && conf.ReplayDatabase != "" {
		replay, err := OpenReplayLog(conf.ReplayDatabase, conf.MatchName)
		if err != nil {
			if s.Store != nil {
				s.Store.Close()
			}
			return nil, fmt.Errorf("server: %w", err)
		}
		replay.SetClock(game.SystemTimers.Now)
		game.Replay = replay
		game.EventBus.SubscribeGlobal(replay)
		log.Printf("Replay log enabled: %s", conf.ReplayDatabase)
	}

	s.Auth = NewAuthService(s.Store, conf.JWTSecret, conf.JWTExpiry, conf.MatchName)
	if conf.JWTSecret == "" {
		log.Printf("WARNING: jwt_secret not set, tokens will not survive a restart")
	}
	s.Web = NewWebServer(game, s.Auth)
	return s, nil
}

// Run serves the match until ctx is cancelled or a component fails, then
// records the match and closes storage.
func (s *Server) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.Game.Run(ctx)
	})
	eg.Go(func() error {
		return s.Game.WatchNavGrid(ctx, s.Conf.NavGridPath)
	})
	eg.Go(func() error {
		return s.Web.sweepLoop(ctx)
	})
	eg.Go(func() error {
		return s.Web.Start()
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Web.Stop(shutdownCtx)
	})

	err := eg.Wait()
	log.Printf("Shutting down %s after %d ticks", s.Conf.MatchName, s.Game.Ticks())
	s.closeStores()
	return err
}

func (s *Server) closeStores() {
	if s.Store != nil {
		if err := s.Store.PutMatch(s.Game.MatchRecord()); err != nil {
			log.Printf("ERROR: saving match record: %v", err)
		}
		if err := s.Store.Close(); err != nil {
			log.Printf("ERROR: closing store: %v", err)
		}
	}
	if s.Game.Replay != nil {
		if err := s.Game.Replay.Close(); err != nil {
			log.Printf("ERROR: closing replay log: %v", err)
		}
	}
}
