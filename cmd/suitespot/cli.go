package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/internal/logging"
	"github.com/SuiteSpot/extension/internal/mapmanager"
	"github.com/SuiteSpot/extension/internal/packdb"
	"github.com/SuiteSpot/extension/internal/paths"
	"github.com/SuiteSpot/extension/internal/storage"
	"github.com/SuiteSpot/extension/internal/util"
)

const usage = `usage: suitespot [command]

With no command, serve the plugin pipe on stdin/stdout.

commands:
  version                   print the version
  list [training|workshop|bag]
                            print a catalog as JSON
  discover                  rescan workshop folders and print the maps found
  pick [n]                  draw n packs from the shuffle bag (default 1)
  import-packs [file]       load a pack database JSON file into the storage backend
  migrate                   create or update the storage backend schema
`

// cliEnv is the minimal state the maintenance commands share.
type cliEnv struct {
	fs     afero.Fs
	layout paths.Layout
	logger *slog.Logger
}

func newCLIEnv() *cliEnv {
	m := logging.NewSlogManager()
	m.Setup(nil, "warn", nil)
	logger := m.Logger()

	if err := config.Load(configDir()); err != nil {
		logger.Debug("Using default config", "error", err)
	}
	layout := paths.NewLayout(util.ExpandEnvAndHome(config.GetString("dataRoot")))
	if layout.Root == "" {
		layout = paths.NewLayout(".")
	}
	return &cliEnv{fs: afero.NewOsFs(), layout: layout, logger: logger}
}

func (c *cliEnv) manager() *mapmanager.Manager {
	m := mapmanager.New(mapmanager.Options{
		Fs:            c.fs,
		Layout:        c.layout,
		FallbackRoots: config.GetWorkshopConfig().FallbackRoots,
		Logger:        c.logger,
	})
	m.LoadTraining()
	m.LoadShuffleBag()
	return m
}

// runCLI runs one maintenance command and returns the process exit code.
func runCLI(args []string, out io.Writer) int {
	if err := dispatchCLI(args, out); err != nil {
		fmt.Fprintf(os.Stderr, "suitespot: %v\n", err)
		return 1
	}
	return 0
}

func dispatchCLI(args []string, out io.Writer) error {
	cmd := strings.ToLower(args[0])
	rest := args[1:]

	switch cmd {
	case "version":
		_, err := fmt.Fprintf(out, "%s (%s)\n", CurrentVersion, BuildDate)
		return err
	case "help", "-h", "--help":
		_, err := io.WriteString(out, usage)
		return err
	}

	env := newCLIEnv()
	switch cmd {
	case "list":
		return listCatalog(env, rest, out)
	case "discover":
		m := mapmanager.New(mapmanager.Options{
			Fs:            env.fs,
			Layout:        env.layout,
			FallbackRoots: config.GetWorkshopConfig().FallbackRoots,
			Logger:        env.logger,
		})
		m.LoadWorkshop()
		return writeJSON(out, m.Workshop())
	case "pick":
		return pickFromBag(env, rest, out)
	case "import-packs":
		return importPacks(env, rest, out)
	case "migrate":
		return migrate(env, out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func listCatalog(env *cliEnv, args []string, out io.Writer) error {
	what := "training"
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}
	m := env.manager()
	switch what {
	case "training":
		return writeJSON(out, m.Training())
	case "workshop":
		m.LoadWorkshop()
		return writeJSON(out, m.Workshop())
	case "bag":
		return writeJSON(out, m.Bag())
	default:
		return fmt.Errorf("unknown catalog %q", what)
	}
}

func pickFromBag(env *cliEnv, args []string, out io.Writer) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		n = v
	}

	m := env.manager()
	training := m.Training()
	if len(training) == 0 {
		return fmt.Errorf("training catalog is empty")
	}
	for range n {
		i := m.PickNext()
		if _, err := fmt.Fprintf(out, "%d\t%s\t%s\n", i, training[i].Code, training[i].Name); err != nil {
			return err
		}
	}
	return nil
}

func importPacks(env *cliEnv, args []string, out io.Writer) error {
	path := env.layout.PackCacheFile()
	if len(args) > 0 {
		path = util.ExpandEnvAndHome(args[0])
	}
	f, err := env.fs.Open(path)
	if err != nil {
		return fmt.Errorf("opening pack database: %w", err)
	}
	defer f.Close()

	packs, err := packdb.Decode(f)
	if err != nil {
		return err
	}

	backend, err := openBackend(env)
	if err != nil {
		return err
	}
	defer backend.Close()

	runID := uuid.NewString()
	if err := backend.ReplacePacks(runID, packs); err != nil {
		return fmt.Errorf("importing packs: %w", err)
	}
	_, err = fmt.Fprintf(out, "imported %d packs into %s (run %s)\n", len(packs), config.GetStorageConfig().Type, runID)
	return err
}

// migrate relies on backend Init, which migrates the gorm schema.
func migrate(env *cliEnv, out io.Writer) error {
	backend, err := openBackend(env)
	if err != nil {
		return err
	}
	defer backend.Close()
	_, err = fmt.Fprintf(out, "%s schema up to date\n", config.GetStorageConfig().Type)
	return err
}

func openBackend(env *cliEnv) (storage.Backend, error) {
	backend, err := storage.NewBackend(config.GetStorageConfig(), env.layout, "cli", logging.NewZerolog(nil, "warn"))
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("initializing storage backend: %w", err)
	}
	return backend, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
