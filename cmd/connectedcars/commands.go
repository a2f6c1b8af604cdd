package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jnxxx/connectedcars-go/pkg/cli"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
	"github.com/jnxxx/connectedcars-go/pkg/vehicle"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrNotAvailable    = errors.New("value not available")
	ErrRequiresAPI     = errors.New("command requires the connectedcars.io API (remove -snapshot)")
)

type Argument struct {
	name string
	help string
}

// environment is what a command handler operates on.
type environment struct {
	session     *cli.Session
	sensitivity vehicle.Sensitivity
	out         io.Writer
}

type Handler func(ctx context.Context, env *environment, args map[string]string) error

type Command struct {
	help        string
	requiresAPI bool // True if the command cannot be served from a snapshot file.
	args        []Argument
	optional    []Argument
	handler     Handler
}

func execute(ctx context.Context, env *environment, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, ok := commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}
	if info.requiresAPI && env.session.Cache == nil {
		return ErrRequiresAPI
	}

	var err error
	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(ctx, env, keywords)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" [")
	}
	for _, arg := range c.optional {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" ]")
	}
	fmt.Printf("\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

func printJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}

func parsePath(s string) (lookup.Path, error) {
	path, err := lookup.ParsePath(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandLineArgs, err)
	}
	return path, nil
}

// parseFlagArg accepts an optional argument that must equal name (with or without a leading dash).
func parseFlagArg(value, name string) (bool, error) {
	switch strings.TrimLeft(value, "-") {
	case "":
		return false, nil
	case name:
		return true, nil
	}
	return false, fmt.Errorf("%w: expected %s", ErrCommandLineArgs, name)
}

var idArg = Argument{name: "ID", help: "Vehicle ID (see `vehicles`)"}

var commands = map[string]*Command{
	"login": &Command{
		help:        "Verify the account credentials",
		requiresAPI: true,
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			if _, err := env.session.Account.Token(ctx); err != nil {
				field, reason := cli.FieldError(err)
				return fmt.Errorf("login failed (%s: %s): %w", field, reason, err)
			}
			credential := env.session.Account.Credential()
			fmt.Fprintf(env.out, "Logged in as %s. Token valid until %s.\n", env.session.Account.Email, credential.ExpiresAt.Format(time.RFC3339))
			if subject := credential.Subject(); subject != "" {
				fmt.Fprintf(env.out, "Subject: %s\n", subject)
			}
			return nil
		},
	},
	"token": &Command{
		help:        "Print a bearer token for the account",
		requiresAPI: true,
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			token, err := env.session.Account.Token(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.out, token)
			return nil
		},
	},
	"vehicles": &Command{
		help: "List vehicles and the data they report",
		optional: []Argument{
			Argument{name: "EXTENDED", help: "Pass 'extended' to probe trip statistics and odometer (one query per vehicle and probe)"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			extended, err := parseFlagArg(args["EXTENDED"], "extended")
			if err != nil {
				return err
			}
			if extended && env.session.Cache == nil {
				return ErrRequiresAPI
			}
			summaries, err := env.session.Vehicles.Vehicles(ctx, extended)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprintf(env.out, "%s\t%s\t%s %s (%s)\t%s\n", s.ID, s.VIN, s.Make, s.Model, s.Name, s.LicensePlate)
				fmt.Fprintf(env.out, "\tcapabilities: %s\n", strings.Join(s.Capabilities, ", "))
				if len(s.LampStates) > 0 {
					fmt.Fprintf(env.out, "\tlamps: %s\n", strings.Join(s.LampStates, ", "))
				}
			}
			return nil
		},
	},
	"value": &Command{
		help: "Print the value at PATH for a vehicle",
		args: []Argument{
			idArg,
			Argument{name: "PATH", help: "Location of the value, e.g. outdoorTemperatures[0].celsius"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			path, err := parsePath(args["PATH"])
			if err != nil {
				return err
			}
			value, ok := env.session.Vehicles.Value(ctx, args["ID"], path)
			if !ok {
				return ErrNotAvailable
			}
			return printJSON(env.out, value)
		},
	},
	"float": &Command{
		help: "Print the numeric value at PATH for a vehicle",
		args: []Argument{
			idArg,
			Argument{name: "PATH", help: "Location of the value, e.g. fuelPercentage.percent"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			path, err := parsePath(args["PATH"])
			if err != nil {
				return err
			}
			value, ok := env.session.Vehicles.Float(ctx, args["ID"], path)
			if !ok {
				return ErrNotAvailable
			}
			fmt.Fprintln(env.out, value)
			return nil
		},
	},
	"lamp": &Command{
		help: "Print whether a warning lamp is lit",
		args: []Argument{
			idArg,
			Argument{name: "TYPE", help: "Lamp type, e.g. engine_check"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			enabled, ok := env.session.Vehicles.LampStatus(ctx, args["ID"], args["TYPE"])
			if !ok {
				return ErrNotAvailable
			}
			fmt.Fprintln(env.out, enabled)
			return nil
		},
	},
	"leads": &Command{
		help:        "Print open maintenance and fault leads",
		requiresAPI: true,
		args:        []Argument{idArg},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			leads, err := env.session.Vehicles.Leads(ctx, args["ID"])
			if err != nil {
				return err
			}
			return printJSON(env.out, leads)
		},
	},
	"health": &Command{
		help:        "Print whether open leads warrant attention at the configured -sensitivity",
		requiresAPI: true,
		args:        []Argument{idArg},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			leads, err := env.session.Vehicles.Leads(ctx, args["ID"])
			if err != nil {
				return err
			}
			status := "ok"
			if vehicle.HealthAlert(leads, env.sensitivity) {
				status = "alert"
			}
			fmt.Fprintf(env.out, "%s (%d open leads, sensitivity %s)\n", status, len(leads), env.sensitivity)
			if ok, found := env.session.Vehicles.Value(ctx, args["ID"], lookup.Path{"health", "ok"}); found {
				fmt.Fprintf(env.out, "vehicle health ok: %v\n", ok)
			}
			return nil
		},
	},
	"service": &Command{
		help: "Print the predicted date of the next service",
		args: []Argument{idArg},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			date, ok := env.session.Vehicles.NextServicePredicted(ctx, args["ID"])
			if !ok {
				return ErrNotAvailable
			}
			fmt.Fprintln(env.out, date.Format(time.DateOnly))
			return nil
		},
	},
	"mileage": &Command{
		help:        "Print the distance driven during the past year (or month)",
		requiresAPI: true,
		args:        []Argument{idArg},
		optional: []Argument{
			Argument{name: "MONTHLY", help: "Pass 'monthly' to report the past month"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			monthly, err := parseFlagArg(args["MONTHLY"], "monthly")
			if err != nil {
				return err
			}
			mileage, ok, attributes := env.session.Vehicles.LatestMileage(ctx, args["ID"], monthly)
			if !ok {
				return ErrNotAvailable
			}
			return printJSON(env.out, map[string]any{"mileage_km": mileage, "attributes": attributes})
		},
	},
	"trip": &Command{
		help:        "Print the first trip starting at or after TIME",
		requiresAPI: true,
		args: []Argument{
			idArg,
			Argument{name: "TIME", help: "RFC 3339 timestamp, e.g. 2024-02-20T17:30:00Z"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			trip, ok := env.session.Vehicles.TripAtTime(ctx, args["ID"], args["TIME"])
			if !ok {
				return ErrNotAvailable
			}
			return printJSON(env.out, trip)
		},
	},
	"refuel-mileage": &Command{
		help:        "Print the distance driven since the last refuel",
		requiresAPI: true,
		args:        []Argument{idArg},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			distance, ok := env.session.Vehicles.MileageSinceRefuel(ctx, args["ID"])
			if !ok {
				return ErrNotAvailable
			}
			fmt.Fprintln(env.out, distance)
			return nil
		},
	},
	"dump": &Command{
		help:        "Write the vehicle snapshot as JSON (usable with -snapshot)",
		requiresAPI: true,
		optional: []Argument{
			Argument{name: "FILE", help: "Output file; defaults to stdout"},
		},
		handler: func(ctx context.Context, env *environment, args map[string]string) error {
			if _, err := env.session.Cache.Snapshot(ctx); err != nil {
				return err
			}
			if filename := args["FILE"]; filename != "" {
				return env.session.Cache.ExportToFile(filename)
			}
			return env.session.Cache.Export(env.out)
		},
	},
}
