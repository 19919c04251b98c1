package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/config"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app holds what every subcommand shares: the resolved config and logger.
type app struct {
	confFile string
	storage  storageValue
	envFile  string
	verbose  bool

	cfg sms.Config
	log sms.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "smsctl",
		Short: "Inspect and edit the records of a school management store",

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.confFile, "config", "c", "", "Path to a JSON or YAML configuration file")
	pf.Var(&a.storage, "storage", "Storage connection string; overrides the configured storage")
	pf.StringVar(&a.envFile, "env-file", ".env", "Dotenv file to read environment variables from")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log store operations to stderr")

	root.AddCommand(
		a.seedCommand(),
		a.typesCommand(),
		a.listCommand(),
		a.getCommand(),
		a.createCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.clearCommand(),
		a.reportCommand(),
	)

	return root
}

// loadConfig builds the config from, in increasing priority, defaults, the
// config file, the environment, and the command line.
func (a *app) loadConfig() error {
	var cfg sms.Config
	if a.confFile != "" {
		var err error
		cfg, err = config.Load(a.confFile)
		if err != nil {
			return err
		}
	}

	if err := config.ApplyEnv(&cfg, a.envFile); err != nil {
		return err
	}

	if a.storage.set {
		cfg.Storage = a.storage.st
	}
	if a.verbose {
		cfg.Log.Enabled = true
	}

	a.cfg = cfg.FillDefaults()
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.FromConfig(a.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.log = log
	return nil
}

// withStore opens the configured store, runs fn against it, and closes it
// again.
func (a *app) withStore(fn func(store *entity.Store) error) (err error) {
	store, err := entity.Open(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	}()

	a.log.Debugf("opened %s storage", a.cfg.Storage.Type)
	return fn(store)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// storageValue is a pflag.Value holding a parsed storage connection string.
type storageValue struct {
	st  sms.Storage
	set bool
}

var _ pflag.Value = (*storageValue)(nil)

func (v *storageValue) String() string {
	if !v.set {
		return ""
	}
	return v.st.String()
}

func (v *storageValue) Set(s string) error {
	st, err := sms.ParseStorageConnString(s)
	if err != nil {
		return err
	}
	v.st, v.set = st, true
	return nil
}

func (v *storageValue) Type() string {
	return "CONN"
}
