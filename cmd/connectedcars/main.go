package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/cli"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * The account email is required; the password is read from $CONNECTEDCARS_PASSWORD, the system
   keyring (see connectedcars-password), or a prompt.
 * Commands that only read the vehicle snapshot also work offline with -snapshot FILE.
 * Values are addressed by path, e.g. position.latitude or outdoorTemperatures[0].celsius.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(env *environment, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, env, args); err != nil {
		if errors.Is(err, ErrNotAvailable) {
			writeErr("No value available")
		} else {
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(env *environment, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		runCommand(env, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Metrics server stopped: %s", err)
	}
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		commandTimeout time.Duration
		metricsAddr    string
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential configuration: %s\n", err)
		os.Exit(1)
	}
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&commandTimeout, "command-timeout", 60*time.Second, "Set timeout for each command.")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on `address` (e.g. :9090)")

	config.RegisterCommandLineFlags()
	flag.Parse()
	if !debug {
		if debugEnv, ok := os.LookupEnv(cli.EnvVerbose); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	config.ReadFromEnvironment()

	args := flag.Args()
	if len(args) > 0 && args[0] == "help" {
		if len(args) == 1 {
			Usage()
			status = 0
			return
		}
		info, ok := commands[args[1]]
		if !ok {
			writeErr("Unrecognized command: %s", args[1])
			return
		}
		info.Usage(args[1])
		status = 0
		return
	}
	if len(args) > 0 {
		if _, ok := commands[args[0]]; !ok {
			writeErr("Unrecognized command: %s", args[0])
			return
		}
	}

	if config.Email == "" {
		writeErr("Missing required flag: -email or $%s", cli.EnvEmail)
		return
	}
	if err := config.LoadCredentials(); err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}

	session, err := config.Connect()
	if err != nil {
		writeErr("Error: %s", err)
		return
	}

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	env := &environment{
		session:     session,
		sensitivity: config.Sensitivity.Sensitivity,
		out:         os.Stdout,
	}
	if flag.NArg() > 0 {
		status = runCommand(env, flag.Args(), commandTimeout)
	} else {
		status = runInteractiveShell(env, commandTimeout)
	}
}
