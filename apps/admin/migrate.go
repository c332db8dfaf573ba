package main

import (
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/maendeleo/fs"
	"github.com/trezcool/maendeleo/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) createDB() error {
	return errors.Wrap(database.CreateIfNotExist(cli.conf), "creating database")
}

func (cli *commandLine) migrate(command string, args []string) error {
	db, err := database.Open(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(appfs.FS)
	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}
	if err := gooseRunFunc(command, db, "migrations", cmdArgs...); err != nil {
		return errors.Wrapf(err, "running migration command %q", command)
	}
	return nil
}
