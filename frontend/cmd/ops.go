package cmd

import (
	"fmt"
	"os"
	"strconv"

	ishell "github.com/abiosoft/ishell"
	"github.com/common-nighthawk/go-figure"
	"github.com/skmehra/ecotrace/frontend/client"
	"github.com/skmehra/ecotrace/lib/utils"
)

// shell represents the interactive shell instance for the ops tool.
var shell *ishell.Shell

// Command defines one ops command: a Name, a Desc (short for description),
// and the Func executed when the command is invoked.
type Command struct {
	Name string
	Desc string
	Func func(c *ishell.Context)
}

// opsCommands is the set of commands available in the shell.
var opsCommands []Command

// InitOpsCmd initializes the interactive shell and registers the ops commands.
func InitOpsCmd() {
	shell = ishell.New()

	banner := figure.NewFigure("EcoTrace", "", true)
	shell.Println(banner.String())
	shell.Println("ops shell - type 'help' for commands")

	opsCommands = []Command{
		{
			Name: "profile",
			Desc: "profile <user-id>: show a user's point ledger and badges",
			Func: cmdProfile,
		},
		{
			Name: "streak",
			Desc: "streak <user-id>: show a user's current day streak",
			Func: cmdStreak,
		},
		{
			Name: "leaderboard",
			Desc: "leaderboard [n]: show the weekly top n (default 10)",
			Func: cmdLeaderboard,
		},
		{
			Name: "evaluate",
			Desc: "evaluate <user-id>: re-run achievement evaluation for a user",
			Func: cmdEvaluate,
		},
	}

	for _, command := range opsCommands {
		cmd := command
		shell.AddCmd(&ishell.Cmd{
			Name: cmd.Name,
			Help: cmd.Desc,
			Func: cmd.Func,
		})
	}
}

// Execute runs the interactive shell until the user exits.
func Execute() {
	if shell == nil {
		utils.PrintError("ops shell not initialized")
		os.Exit(1)
	}
	shell.Run()
}

func cmdProfile(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: profile <user-id>")
		return
	}

	profile, err := client.Profile(c.Args[0])
	if err != nil {
		utils.PrintError(err.Error())
		return
	}

	c.Printf("display name:  %v\n", profile["display_name"])
	c.Printf("total points:  %v\n", profile["total_points"])
	c.Printf("weekly points: %v\n", profile["weekly_points"])
	c.Printf("badges:        %v\n", profile["badges"])
}

func cmdStreak(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: streak <user-id>")
		return
	}

	streak, err := client.Streak(c.Args[0])
	if err != nil {
		utils.PrintError(err.Error())
		return
	}

	c.Printf("current streak: %d days\n", streak)
}

func cmdLeaderboard(c *ishell.Context) {
	limit := 10
	if len(c.Args) == 1 {
		parsed, err := strconv.Atoi(c.Args[0])
		if err != nil || parsed < 1 {
			c.Println("usage: leaderboard [n]")
			return
		}
		limit = parsed
	}

	rows, err := client.Leaderboard(limit)
	if err != nil {
		utils.PrintError(err.Error())
		return
	}

	for _, row := range rows {
		c.Printf("%3v. %-24v %v pts\n", row["rank"], row["display_name"], row["weekly_points"])
	}
}

func cmdEvaluate(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println("usage: evaluate <user-id>")
		return
	}

	earned, err := client.Evaluate(c.Args[0])
	if err != nil {
		utils.PrintError(err.Error())
		return
	}

	if len(earned) == 0 {
		c.Println("nothing new")
		return
	}
	for _, a := range earned {
		c.Printf("earned: %v (+%v pts)\n", a["name"], a["bonus"])
	}
	fmt.Println()
}
