// Utility for storing the account password in the system keyring

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jnxxx/connectedcars-go/pkg/cli"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [-email address] [-delete] [file]\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Reads the connectedcars.io account password from stdin or file and saves it in the")
	fmt.Fprintf(w, "system keyring. The address defaults to $%s.\n", cli.EnvEmail)
	fmt.Fprintln(w, "")
	flag.PrintDefaults()
}

func main() {
	returnCode := 1
	defer func() {
		os.Exit(returnCode)
	}()

	config, err := cli.NewConfig(cli.FlagAccount | cli.FlagKeyring)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential configuration: %s\n", err)
		return
	}

	var remove bool
	flag.BoolVar(&remove, "delete", false, "Remove the stored password instead of saving one")
	config.RegisterCommandLineFlags()
	flag.Usage = usage
	flag.Parse()
	config.ReadFromEnvironment()

	if config.Email == "" {
		fmt.Fprintf(os.Stderr, "Must provide the account email address using -email or $%s\n", cli.EnvEmail)
		return
	}

	if remove {
		if err := config.DeletePasswordFromKeyring(); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing password from keyring: %s\n", err)
			return
		}
		returnCode = 0
		return
	}

	var r io.Reader
	switch flag.NArg() {
	case 0:
		r = os.Stdin
	case 1:
		file, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading password from file: %s\n", err)
			return
		}
		defer file.Close()
		r = file
	default:
		fmt.Fprintln(os.Stderr, "Too many command-line arguments")
		return
	}

	// Only the first line is used so that files ending with a newline work as expected.
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "Error reading password: %s\n", err)
		return
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "Password is empty")
		return
	}

	if err := config.SavePasswordToKeyring(password); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving password to keyring: %s\n", err)
		return
	}

	returnCode = 0
}
