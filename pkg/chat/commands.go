package chat

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/crystal-mush/riftcore/pkg/world"
)

const (
	defaultSpawnCount = 3
	maxSpawnCount     = 20
	spawnRadius       = 150.0
)

func cmdHelp(d *Dispatcher, peer world.ClientID, hasArgs bool, args string) {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range d.Commands() {
		b.WriteString(" ")
		b.WriteString(d.prefix + c.Syntax)
		b.WriteString(";")
	}
	d.api.PrintChatTo(peer, strings.TrimSuffix(b.String(), ";"))
}

// cmdKill handles "kill minions". Only the first argument is checked;
// anything after it is ignored. Kills are credited to the issuer's
// champion; an issuer without one cannot run it.
func cmdKill(d *Dispatcher, peer world.ClientID, hasArgs bool, args string) {
	fields := strings.Fields(args)
	if !hasArgs || len(fields) == 0 || !strings.EqualFold(fields[0], "minions") {
		d.SyntaxError(peer, d.command("kill"))
		return
	}
	killer := d.players.Champion(peer)
	if killer == nil {
		d.api.PrintChatTo(peer, "You need a champion to use this command.")
		return
	}

	killed := 0
	for _, u := range d.api.Objects().Units() {
		if u.Kind() != world.KindMinion || u.IsDead() {
			continue
		}
		if d.api.KillUnit(u, killer) {
			killed++
		}
	}
	d.api.PrintChatTo(peer, fmt.Sprintf("Killed %d minions.", killed))
}

// cmdSpawn handles "spawn minions [count]", placing count minions per
// playing team in a ring around the issuer's champion.
func cmdSpawn(d *Dispatcher, peer world.ClientID, hasArgs bool, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 || !strings.EqualFold(fields[0], "minions") {
		d.SyntaxError(peer, d.command("spawn"))
		return
	}
	count := defaultSpawnCount
	if len(fields) == 2 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > maxSpawnCount {
			d.SyntaxError(peer, d.command("spawn"))
			return
		}
		count = n
	}
	champ := d.players.Champion(peer)
	if champ == nil {
		d.api.PrintChatTo(peer, "You need a champion to use this command.")
		return
	}

	var teams []world.TeamID
	for _, t := range d.api.GetTeams() {
		if t != world.TeamNeutral {
			teams = append(teams, t)
		}
	}
	total := count * len(teams)
	center := champ.Position()
	i := 0
	for _, team := range teams {
		for n := 0; n < count; n++ {
			angle := 2 * math.Pi * float64(i) / float64(total)
			pos := center.Add(world.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(spawnRadius))
			d.api.SpawnUnit(fmt.Sprintf("Minion %s %d", team, n+1), world.KindMinion, team, pos)
			i++
		}
	}
	d.api.PrintChatTo(peer, fmt.Sprintf("Spawned %d minions.", total))
}
