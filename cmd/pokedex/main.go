package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-pokedex/internal/config"
	"github.com/jrsteele09/go-pokedex/internal/logging"
	"github.com/rs/zerolog/log"
)

const usageText = `usage: pokedex [-config file] <command> [arguments]

commands:
  login <user> <password>   start a session
  logout                    end the session
  list [-sort number|name] [-pages n]
                            show cached Pokémon, fetching more as needed
  detail <id|name>          show one Pokémon
  favorite <id>             add or remove a favorite
  favorites                 list favorites
  reset                     clear the cached list
  serve                     run the development backend
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("pokedex failed")
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pokedex", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	c, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup(c.GetLogLevel(), c.GetEnv())

	command, commandArgs := fs.Arg(0), fs.Args()[1:]
	if command == "serve" {
		displayAppname(c.GetAppName(), out)
		return serve(ctx, c)
	}

	a, err := newApp(ctx, c, out)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "login":
		return a.login(ctx, commandArgs)
	case "logout":
		return a.logout(ctx)
	case "list":
		return a.list(ctx, commandArgs)
	case "detail":
		return a.detail(ctx, commandArgs)
	case "favorite":
		return a.favorite(ctx, commandArgs)
	case "favorites":
		return a.favorites(ctx)
	case "reset":
		return a.reset(ctx)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}

func displayAppname(appname string, out io.Writer) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}
