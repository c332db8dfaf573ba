package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/maendeleo/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                  - create the database and app user if they do not exist")
	fmt.Println("  migrate [command]         - run DB migrations; commands: up (default), up-by-one, down, redo, status, version")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)

	switch args[1] {
	case "createdb":
		return cli.createDB()
	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return err
		}
		command := "up"
		if migrateCmd.NArg() > 0 {
			command = migrateCmd.Arg(0)
		}
		return cli.migrate(command, migrateCmd.Args())
	default:
		cli.printUsage()
		return errHelp
	}
}
