package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// SpawnPoint is a team's fountain position.
type SpawnPoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Conf holds match-level configuration parameters.
type Conf struct {
	// --- Identity ---
	MatchName string `yaml:"match_name"`

	// --- Simulation ---
	TickMS      int     `yaml:"tick_ms"`
	ResumeDelay float64 `yaml:"resume_delay"` // seconds
	ChatPrefix  string  `yaml:"chat_prefix"`
	ScriptDebug bool    `yaml:"script_debug"`

	// --- Web ---
	WebHost     string   `yaml:"web_host"`
	WebPort     int      `yaml:"web_port"`
	WebDomain   string   `yaml:"web_domain"`
	TLSCert     string   `yaml:"tls_cert"`
	TLSKey      string   `yaml:"tls_key"`
	CertDir     string   `yaml:"cert_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
	RateLimit   int      `yaml:"rate_limit"` // requests per minute per IP
	JWTSecret   string   `yaml:"jwt_secret"`
	JWTExpiry   int      `yaml:"jwt_expiry"` // seconds

	// --- Storage ---
	BoltPath       string `yaml:"bolt_path"`
	NavGridPath    string `yaml:"navgrid_path"`
	ReplayEnabled  bool   `yaml:"replay_enabled"`
	ReplayDatabase string `yaml:"replay_database"`

	// --- Players ---
	AdminNames []string              `yaml:"admin_names"`
	Spawn      map[string]SpawnPoint `yaml:"spawn"` // keyed by team name
}

// DefaultConf returns a configuration that runs a local match.
func DefaultConf() *Conf {
	return &Conf{
		MatchName:      "riftcore",
		TickMS:         33,
		ResumeDelay:    5,
		ChatPrefix:     ".",
		WebHost:        "",
		WebPort:        8080,
		RateLimit:      120,
		JWTExpiry:      86400,
		BoltPath:       "data/rift.bolt",
		ReplayEnabled:  false,
		ReplayDatabase: "data/replay.sqlite",
		Spawn: map[string]SpawnPoint{
			"blue":   {X: 500, Y: 500},
			"purple": {X: 13500, Y: 13500},
		},
	}
}

// LoadConf reads a YAML file on top of DefaultConf. Relative paths in the
// file are resolved against the file's directory.
func LoadConf(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c := DefaultConf()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for _, p := range []*string{&c.BoltPath, &c.NavGridPath, &c.ReplayDatabase, &c.CertDir, &c.TLSCert, &c.TLSKey} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate rejects values the simulation cannot run with.
func (c *Conf) Validate() error {
	switch {
	case c.TickMS <= 0:
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMS)
	case c.ResumeDelay < 0:
		return fmt.Errorf("resume_delay must not be negative, got %v", c.ResumeDelay)
	case c.WebPort < 0 || c.WebPort > 65535:
		return fmt.Errorf("web_port out of range: %d", c.WebPort)
	}
	for team := range c.Spawn {
		if parseTeam(team) == world.TeamNone {
			return fmt.Errorf("spawn: unknown team %q", team)
		}
	}
	return nil
}

// TickInterval is the wall-clock and simulated length of one tick.
func (c *Conf) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// ResumeDelayDuration is how long an unpause countdown lasts.
func (c *Conf) ResumeDelayDuration() time.Duration {
	return time.Duration(c.ResumeDelay * float64(time.Second))
}

// SpawnFor returns the spawn position of team, or the origin.
func (c *Conf) SpawnFor(team world.TeamID) world.Vec2 {
	for name, p := range c.Spawn {
		if parseTeam(name) == team {
			return world.Vec2{X: p.X, Y: p.Y}
		}
	}
	return world.Vec2{}
}

// IsAdmin reports whether name is listed in admin_names.
func (c *Conf) IsAdmin(name string) bool {
	for _, n := range c.AdminNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// parseTeam maps a config team name (or numeric id) to a TeamID.
func parseTeam(s string) world.TeamID {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blue", "order", "100":
		return world.TeamBlue
	case "purple", "chaos", "200":
		return world.TeamPurple
	case "neutral", "300":
		return world.TeamNeutral
	default:
		return world.TeamNone
	}
}
