// Package chat runs the prefixed commands players type into chat.
package chat

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/crystal-mush/riftcore/pkg/api"
	"github.com/crystal-mush/riftcore/pkg/players"
	"github.com/crystal-mush/riftcore/pkg/world"
)

// CommandHandler runs one command. hasArgs is false when nothing followed
// the command name.
type CommandHandler func(d *Dispatcher, peer world.ClientID, hasArgs bool, args string)

// Command is a registered chat command.
type Command struct {
	Name      string
	Syntax    string
	AdminOnly bool
	Handler   CommandHandler
}

// Execute runs the command for peer.
func (c *Command) Execute(d *Dispatcher, peer world.ClientID, hasArgs bool, args string) {
	c.Handler(d, peer, hasArgs, args)
}

// Dispatcher resolves the first token of a chat command and runs it.
type Dispatcher struct {
	api     *api.API
	players *players.Manager
	prefix  string
	cmds    map[string]*Command
}

// NewDispatcher creates a dispatcher with the built-in commands.
func NewDispatcher(a *api.API, pm *players.Manager, prefix string) *Dispatcher {
	return &Dispatcher{api: a, players: pm, prefix: prefix, cmds: InitCommands()}
}

// InitCommands registers all built-in chat commands.
func InitCommands() map[string]*Command {
	cmds := make(map[string]*Command)
	register := func(c *Command) {
		cmds[strings.ToLower(c.Name)] = c
	}

	register(&Command{Name: "help", Syntax: "help", Handler: cmdHelp})
	register(&Command{Name: "kill", Syntax: "kill minions", Handler: cmdKill})
	register(&Command{Name: "spawn", Syntax: "spawn minions [count]", AdminOnly: true, Handler: cmdSpawn})

	return cmds
}

// Register adds or replaces a command.
func (d *Dispatcher) Register(c *Command) {
	d.cmds[strings.ToLower(c.Name)] = c
}

// Execute runs a chat line such as ".kill minions". It returns false when
// the line names no known command.
func (d *Dispatcher) Execute(peer world.ClientID, message string) bool {
	input := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(message), d.prefix))
	if input == "" {
		return false
	}

	var name, args string
	if idx := strings.IndexByte(input, ' '); idx >= 0 {
		name = input[:idx]
		args = strings.TrimSpace(input[idx+1:])
	} else {
		name = input
	}

	cmd, ok := d.cmds[strings.ToLower(name)]
	if !ok {
		d.api.PrintChatTo(peer, fmt.Sprintf("Unknown command %q. Type %shelp.", name, d.prefix))
		return false
	}
	if cmd.AdminOnly {
		if info := d.players.PeerInfo(peer); info == nil || !info.Admin {
			d.api.PrintChatTo(peer, "Permission denied.")
			return true
		}
	}
	log.Printf("CHAT: %q runs %s", peer, input)
	cmd.Execute(d, peer, args != "", args)
	return true
}

// SyntaxError tells only the issuer that the command was malformed and
// echoes its usage.
func (d *Dispatcher) SyntaxError(peer world.ClientID, c *Command) {
	d.api.PrintChatTo(peer, "Incorrect command syntax.")
	d.api.PrintChatTo(peer, "Usage: "+d.prefix+c.Syntax)
}

// Commands returns the registered commands sorted by name.
func (d *Dispatcher) Commands() []*Command {
	out := make([]*Command, 0, len(d.cmds))
	for _, c := range d.cmds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Dispatcher) command(name string) *Command {
	return d.cmds[name]
}
