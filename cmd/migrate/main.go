package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/tbeaudouin05/subscription-reconciler/api/config"
	"github.com/tbeaudouin05/subscription-reconciler/api/database"
)

const usage = `usage: migrate [flags] <command>

commands:
  up           apply all pending migrations
  down [n]     roll back n migrations (default 1)
  goto <v>     migrate to version v
  force <v>    mark version v as applied without running it
  status       print the current version`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fatal(err)
	}
	if err := run(cfg.DatabaseURL, flag.Arg(0), flag.Args()[1:]); err != nil {
		fatal(err)
	}
}

func run(databaseURL, cmd string, args []string) error {
	if cmd == "up" {
		return database.MigrateUp(databaseURL)
	}

	m, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	switch cmd {
	case "down":
		n := 1
		if len(args) > 0 {
			if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
		}
		err = m.Steps(-n)
	case "goto", "force":
		if len(args) == 0 {
			return fmt.Errorf("%s requires a version", cmd)
		}
		v, convErr := strconv.ParseUint(args[0], 10, 32)
		if convErr != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		if cmd == "goto" {
			err = m.Migrate(uint(v))
		} else {
			err = m.Force(int(v))
		}
	case "status":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return nil
	}
	return err
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
