/*
Package cli facilitates building command-line applications that read data from connectedcars.io.
It defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package) and environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing the account password in an
OS-dependent credential store.

# Examples

	import flag

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for the account, keyring, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	config.LoadCredentials()          // Prompt for the account password if needed

	session, err := config.Connect()
	if err != nil {
		panic(err)
	}
	summaries, err := session.Vehicles.Vehicles(ctx, false)

Each call to [Config.Connect] builds an independent client stack, so a program that serves several
accounts uses one Config per account.
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/account"
	"github.com/jnxxx/connectedcars-go/pkg/cache"
	"github.com/jnxxx/connectedcars-go/pkg/connector"
	"github.com/jnxxx/connectedcars-go/pkg/graphql"
	"github.com/jnxxx/connectedcars-go/pkg/vehicle"
)

// SensitivityValue adapts [vehicle.Sensitivity] to the flag.Value interface.
type SensitivityValue struct {
	Sensitivity vehicle.Sensitivity
	set         bool
}

// Set updates s from a command-line argument.
func (s *SensitivityValue) Set(value string) error {
	sensitivity, err := vehicle.ParseSensitivity(value)
	if err != nil {
		return err
	}
	s.Sensitivity = sensitivity
	s.set = true
	return nil
}

func (s *SensitivityValue) String() string {
	if s == nil {
		return vehicle.DefaultSensitivity.String()
	}
	return s.Sensitivity.String()
}

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvEmail        = "CONNECTEDCARS_EMAIL"
	EnvNamespace    = "CONNECTEDCARS_NAMESPACE"
	EnvPassword     = "CONNECTEDCARS_PASSWORD"
	EnvSensitivity  = "CONNECTEDCARS_SENSITIVITY"
	EnvKeyringType  = "CONNECTEDCARS_KEYRING_TYPE"
	EnvKeyringPass  = "CONNECTEDCARS_KEYRING_PASSWORD"
	EnvKeyringPath  = "CONNECTEDCARS_KEYRING_PATH"
	EnvKeyringDebug = "CONNECTEDCARS_KEYRING_DEBUG"
	EnvVerbose      = "CONNECTEDCARS_VERBOSE"
	EnvSnapshotFile = "CONNECTEDCARS_SNAPSHOT_FILE"
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagAccount     Flag = 1 // Enable account options (email, namespace, password).
	FlagKeyring     Flag = 2 // Enable keyring options. Required for storing the password.
	FlagSensitivity Flag = 4 // Enable the health alert sensitivity option.
	FlagSnapshot    Flag = 8 // Enable reading the snapshot from a file.
	FlagAll         Flag = FlagAccount | FlagKeyring | FlagSensitivity | FlagSnapshot
)

var (
	ErrNoEmail       = errors.New("account email address not provided")
	ErrNoPassword    = errors.New("account password not provided")
	ErrNoCredentials = errors.New("configuration does not permit account options")
	ErrKeyNotFound   = keyring.ErrKeyNotFound
)

// Config fields determine which account a client reads data from and how credentials are found.
type Config struct {
	Flags            Flag // Controls which set of environment variables/CLI flags to use.
	Email            string
	Namespace        string
	AuthURL          string
	GraphURL         string
	SnapshotFilename string // Serve the snapshot from a file written by `dump` instead of the API.
	Sensitivity      SensitivityValue
	Backend          keyring.Config
	BackendType      backendType
	Debug            bool // Enable keyring debug messages

	// HTTPClient is used for all requests. Defaults to a client with inet.DefaultTimeout.
	HTTPClient *http.Client

	keyringPassword *string
	password        *string
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getKeyringPassword
	c.Backend.FilePasswordFunc = c.getKeyringPassword
	c.Sensitivity.Sensitivity = vehicle.DefaultSensitivity

	return &c, nil
}

// RegisterCommandLineFlags adds the options enabled by c.Flags to the default flag set.
func (c *Config) RegisterCommandLineFlags() {
	c.RegisterFlagSet(flag.CommandLine)
}

// RegisterFlagSet adds the options enabled by c.Flags to fs.
func (c *Config) RegisterFlagSet(fs *flag.FlagSet) {
	if c.Flags.isSet(FlagAccount) {
		fs.StringVar(&c.Email, "email", "", "Account email `address`. Defaults to $"+EnvEmail+".")
		fs.StringVar(&c.Namespace, "namespace", "", "Organization `namespace` (e.g. minvolkswagen). Defaults to $"+EnvNamespace+".")
		fs.StringVar(&c.AuthURL, "auth-url", account.DefaultAuthURL, "Base `URL` of the authentication API")
		fs.StringVar(&c.GraphURL, "graph-url", graphql.DefaultGraphURL, "Base `URL` of the GraphQL API")
	}
	if c.Flags.isSet(FlagSensitivity) {
		fs.Var(&c.Sensitivity, "sensitivity", "Health alert `sensitivity` (low|medium|high). Defaults to $"+EnvSensitivity+".")
	}
	if c.Flags.isSet(FlagSnapshot) {
		fs.StringVar(&c.SnapshotFilename, "snapshot", "", "Read vehicle data from `file` instead of the API. Defaults to $"+EnvSnapshotFile+".")
	}
	if c.Flags.isSet(FlagKeyring) {
		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		fs.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $"+EnvKeyringType+".")
		fs.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		fs.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagAccount) {
		if c.Email == "" {
			c.Email = os.Getenv(EnvEmail)
			log.Debug("Set email to '%s'", c.Email)
		}
		if c.Namespace == "" {
			c.Namespace = os.Getenv(EnvNamespace)
			if c.Namespace == "" {
				c.Namespace = connector.DefaultNamespace
			}
			log.Debug("Set namespace to '%s'", c.Namespace)
		}
		if c.password == nil {
			if password, ok := os.LookupEnv(EnvPassword); ok && password != "" {
				c.password = &password
				log.Debug("Set account password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
	}
	if c.Flags.isSet(FlagSensitivity) && !c.Sensitivity.set {
		if value := os.Getenv(EnvSensitivity); value != "" {
			if err := c.Sensitivity.Set(value); err != nil {
				log.Warning("Ignoring %s: %s", EnvSensitivity, err)
			} else {
				log.Debug("Set sensitivity to '%s'", c.Sensitivity.String())
			}
		}
	}
	if c.Flags.isSet(FlagSnapshot) && c.SnapshotFilename == "" {
		c.SnapshotFilename = os.Getenv(EnvSnapshotFile)
	}
	if c.Flags.isSet(FlagKeyring) {
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.keyringPassword == nil {
			password := os.Getenv(EnvKeyringPass)
			c.keyringPassword = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" || c.Backend.FileDir == keyringDirectory {
			if dir := os.Getenv(EnvKeyringPath); dir != "" {
				c.Backend.FileDir = dir
				log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
			}
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
		keyring.Debug = c.Debug
	}
}

// SetPassword sets the account password, bypassing the environment and the keyring.
func (c *Config) SetPassword(password string) {
	c.password = &password
}

// Password returns the account password. It's taken from (in order) an earlier call to
// [Config.SetPassword] or $CONNECTEDCARS_PASSWORD, the system keyring, or an interactive prompt.
// The password is cached after it's first loaded.
func (c *Config) Password() (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}
	if !c.Flags.isSet(FlagAccount) {
		return "", ErrNoCredentials
	}
	if c.Email == "" {
		return "", ErrNoEmail
	}
	if c.Flags.isSet(FlagKeyring) {
		password, err := c.LoadPasswordFromKeyring()
		if err == nil {
			c.password = &password
			return password, nil
		}
		log.Debug("Password not loaded from keyring: %s", err)
	}
	password, err := promptSecret(fmt.Sprintf("Password for %s", c.Email))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoPassword, err)
	}
	if password == "" {
		return "", ErrNoPassword
	}
	c.password = &password
	return password, nil
}

// LoadCredentials resolves the account password, prompting for it if needed. Call this method
// before [Config.Connect] to prevent interactive prompts from counting against timeouts.
func (c *Config) LoadCredentials() error {
	if c.SnapshotFilename != "" {
		return nil
	}
	_, err := c.Password()
	return err
}

// Session is a client stack for one account.
type Session struct {
	Account   *account.Account
	Graph     *graphql.Client
	Snapshots vehicle.SnapshotSource
	// Cache is nil when the snapshot is read from a file.
	Cache    *cache.SnapshotCache
	Vehicles *vehicle.Client
}

// Connect builds a client stack for the configured account. No requests are sent until data is
// needed. If c.SnapshotFilename is set, cached data is served from that file; on-demand queries
// still go to the API.
func (c *Config) Connect() (*Session, error) {
	if !c.Flags.isSet(FlagAccount) {
		return nil, ErrNoCredentials
	}
	if c.Email == "" {
		return nil, ErrNoEmail
	}
	var password string
	if c.password != nil {
		password = *c.password
	} else if c.SnapshotFilename == "" {
		var err error
		if password, err = c.Password(); err != nil {
			return nil, err
		}
	}
	namespace := c.Namespace
	if namespace == "" {
		namespace = connector.DefaultNamespace
	}

	session := &Session{Account: account.New(c.Email, password, namespace, c.HTTPClient)}
	if c.AuthURL != "" {
		session.Account.AuthURL = c.AuthURL
	}
	session.Graph = graphql.NewClient(session.Account.Connection(), session.Account)
	if c.GraphURL != "" {
		session.Graph.GraphURL = c.GraphURL
	}

	if c.SnapshotFilename != "" {
		log.Debug("Loading snapshot from %s...", c.SnapshotFilename)
		static, err := cache.ImportFromFile(c.SnapshotFilename)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		session.Snapshots = static
	} else {
		session.Cache = cache.New(session.Graph)
		session.Snapshots = session.Cache
	}
	session.Vehicles = vehicle.New(session.Snapshots, session.Graph)
	return session, nil
}

// FieldError maps a login failure to the configuration field that caused it ("email", "password",
// or "namespace") and a short reason. Failures that aren't attributable to a field map to "base".
func FieldError(err error) (field, reason string) {
	kind, ok := account.Kind(err)
	if !ok {
		return "base", "unknown"
	}
	switch kind {
	case account.KindInvalidEmail:
		return "email", "invalid_email"
	case account.KindInvalidPassword:
		return "password", "invalid_password"
	case account.KindUnknownNamespace:
		return "namespace", "invalid_namespace"
	case account.KindTransport:
		return "base", "cannot_connect"
	}
	return "base", "unknown"
}
