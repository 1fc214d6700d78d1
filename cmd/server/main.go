package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/crystal-mush/riftcore/pkg/archive"
	"github.com/crystal-mush/riftcore/pkg/boltstore"
	"github.com/crystal-mush/riftcore/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("RIFT_CONF", ""), "Path to match config file (env: RIFT_CONF)")
	port := flag.Int("port", 0, "HTTP port to listen on, overrides config (env: RIFT_PORT)")
	boltPath := flag.String("bolt", envDefault("RIFT_BOLT", ""), "Path to bbolt account database (env: RIFT_BOLT)")
	navPath := flag.String("navgrid", envDefault("RIFT_NAVGRID", ""), "Path to navigation grid YAML (env: RIFT_NAVGRID)")
	replayDB := flag.String("replaydb", envDefault("RIFT_REPLAYDB", ""), "Path to SQLite replay log; enables replay logging (env: RIFT_REPLAYDB)")
	jwtSecret := flag.String("jwt-secret", envDefault("RIFT_JWT_SECRET", ""), "JWT signing secret (env: RIFT_JWT_SECRET)")
	genJWT := flag.Bool("genjwt", false, "Print a random jwt_secret and exit")
	promote := flag.String("admin", "", "Grant admin to the named account and exit")
	backup := flag.String("backup", "", "Copy the account database to this path and exit")
	archiveDir := flag.String("archive", envDefault("RIFT_ARCHIVE", ""), "Write a data archive into this directory and exit (env: RIFT_ARCHIVE)")
	restore := flag.String("restore", envDefault("RIFT_RESTORE", ""), "Restore data files from an archive before boot (env: RIFT_RESTORE)")
	flag.Parse()

	log.Printf("Welcome to %s", server.VersionString())

	if *genJWT {
		fmt.Println(server.GenerateJWTSecret())
		return
	}

	conf := server.DefaultConf()
	if *confFile != "" {
		c, err := server.LoadConf(*confFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		conf = c
		log.Printf("Loaded config %s", *confFile)
	}

	if *port == 0 {
		if envPort := os.Getenv("RIFT_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*port = p
			}
		}
	}
	if *port != 0 {
		conf.WebPort = *port
	}
	if *boltPath != "" {
		conf.BoltPath = *boltPath
	}
	if *navPath != "" {
		conf.NavGridPath = *navPath
	}
	if *replayDB != "" {
		conf.ReplayEnabled = true
		conf.ReplayDatabase = *replayDB
	}
	if *jwtSecret != "" {
		conf.JWTSecret = *jwtSecret
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if *restore != "" {
		n, err := archive.Restore(*restore, map[string]string{
			archive.EntryStore:   conf.BoltPath,
			archive.EntryReplay:  conf.ReplayDatabase,
			archive.EntryNavGrid: conf.NavGridPath,
		})
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("Restored %d files from %s", n, *restore)
	}

	if *promote != "" || *backup != "" || *archiveDir != "" {
		if err := maintain(conf, *confFile, *promote, *backup, *archiveDir); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	srv, err := server.NewServer(conf)
	if err != nil {
		log.Fatalf("Error starting server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Printf("Server stopped.")
}

// maintain runs one-shot data operations against a stopped server.
func maintain(conf *server.Conf, confPath, promote, backup, archiveDir string) error {
	if conf.BoltPath == "" {
		return fmt.Errorf("no account database configured (use -bolt)")
	}
	store, err := boltstore.Open(conf.BoltPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if promote != "" {
		if err := store.SetAdmin(promote, true); err != nil {
			return fmt.Errorf("granting admin to %s: %w", promote, err)
		}
		log.Printf("%s is now an admin.", promote)
	}
	if backup != "" {
		if err := store.Backup(backup); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		log.Printf("Account database copied to %s", backup)
	}
	if archiveDir != "" {
		src := archive.Sources{
			Snapshot:    store.Backup,
			ConfPath:    confPath,
			NavGridPath: conf.NavGridPath,
			Match:       conf.MatchName,
			Server:      server.VersionString(),
		}
		if conf.ReplayEnabled {
			src.ReplayPath = conf.ReplayDatabase
		}
		path, err := archive.Create(archiveDir, src)
		if err != nil {
			return err
		}
		log.Printf("Archive written to %s", path)
	}
	return nil
}
