package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	api "github.com/ensigniasec/propmap/internal/api"
	"github.com/ensigniasec/propmap/internal/config"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/storage"
	"github.com/ensigniasec/propmap/internal/validate"
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	configFile string
	verbose    bool
	jsonOutput bool
	orgUUID    string
	anonymous  bool

	rootCmd = &cobra.Command{
		Use:   "propmap",
		Short: "Browse property listings on a map from the terminal.",
		Long: `propmap loads property listings from files, a directory, Postgres or the bundled sample, and lets you ` +
			`browse them on a map with price, BHK, carpet area and type filters. Every settled viewport is ` +
			`reported to the listings backend, NATS, or a simulated sync when neither is configured.`,
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to avoid polluting stdout, especially for --json output.
	logrus.SetOutput(os.Stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Optional YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	pf.BoolVar(&jsonOutput, "json", false, "Output results in JSON format instead of rich text")
	pf.StringVar(&orgUUID, "org-uuid", "", "Optional: organization UUID sent with viewport syncs")
	pf.BoolVar(&anonymous, "anonymous", false, "Optional: Do not send any UUIDs or tracking information")
	// Alias for --anonymous
	pf.BoolVar(&anonymous, "anon", false, "Alias of --anonymous")
	config.RegisterFlags(pf)

	listCmd.Flags().StringSlice("price", nil, "Price buckets in crore: 0-1, 1-5, 5+")
	listCmd.Flags().StringSlice("bhk", nil, "Bedroom counts: 1, 2, 3, 4, 5+")
	listCmd.Flags().StringSlice("carpet", nil, "Carpet area buckets in sq ft: 0-1000, 1000-2500, 2500-5000, 5000+")
	listCmd.Flags().StringSlice("type", nil, "Property types: residential, commercial, plot")
	listCmd.Flags().String("region", "", "Only listings inside north,south,east,west")

	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(citiesCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(orgCmd)

	// Wire up org subcommands.
	orgCmd.AddCommand(orgRegisterCmd)
	orgCmd.AddCommand(orgClearCmd)
	orgCmd.AddCommand(orgShowCmd)

	// Built-in version flag: set version string and a custom template.
	if releaseVersion != "dev" {
		api.BuildVersion = releaseVersion
	}
	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func main() {
	Execute()
}

// mustLoadConfig resolves the configuration for cmd and sets the log level.
// Interactive and JSON modes only log warnings unless --verbose is set.
func mustLoadConfig(cmd *cobra.Command, quiet bool) config.Config {
	switch {
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	case quiet || jsonOutput:
		logrus.SetLevel(logrus.WarnLevel)
	}
	cfg, err := config.Load(config.Options{Flags: cmd.Flags(), ConfigFile: configFile})
	if err != nil {
		logrus.Fatal(err)
	}
	return cfg
}

// identity resolves the request identity from flags and storage.
func identity(st *storage.Storage) api.Identity {
	if anonymous {
		return api.Identity{Anonymous: true}
	}
	org := orgUUID
	if org == "" {
		org = st.Data.OrgUUID
	}
	return api.Identity{OrgUUID: org, ClientUUID: st.Data.ClientUUID}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Fprintln(os.Stdout, string(out))
}

func renderTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the reference cities offered by the city selector",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			printJSON(geo.Cities)
			return
		}
		rows := make([][]string, 0, len(geo.Cities))
		for _, c := range geo.Cities {
			name := c.Name
			if name == geo.DefaultCity {
				name += " (default)"
			}
			rows = append(rows, []string{
				name,
				strconv.FormatFloat(c.Lat, 'f', 4, 64),
				strconv.FormatFloat(c.Lng, 'f', 4, 64),
			})
		}
		fmt.Fprintln(os.Stdout, renderTable([]string{"City", "Lat", "Lng"}, rows))
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of listing files",
	Run: func(cmd *cobra.Command, args []string) {
		out, err := listing.SchemaJSON()
		if err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintln(os.Stdout, string(out))
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage organization identity settings",
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var orgRegisterCmd = &cobra.Command{
	Use:   "register [UUID]",
	Short: "Register and persist an organization UUID",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, false)
		s, err := storage.NewOrExistingStorage(cfg.StorageFile)
		if err != nil {
			logrus.Fatal(err)
		}
		if err := validate.Var(args[0], "uuid_rfc4122"); err != nil {
			logrus.Fatalf(
				"Invalid organization UUID: %q. Expected an RFC 4122 UUID (example: 123e4567-e89b-12d3-a456-426614174000).",
				args[0],
			)
		}
		s.Data.OrgUUID = args[0]
		if err := s.Save(); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintf(os.Stdout, "Organization UUID set to %s\n", s.Data.OrgUUID)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var orgClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the persisted organization UUID",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, false)
		s, err := storage.NewOrExistingStorage(cfg.StorageFile)
		if err != nil {
			logrus.Fatal(err)
		}
		s.Data.OrgUUID = ""
		if err := s.Save(); err != nil {
			logrus.Fatal(err)
		}
		fmt.Fprintln(os.Stdout, "Organization UUID cleared")
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var orgShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current organization UUID (if any)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, false)
		s, err := storage.NewOrExistingStorage(cfg.StorageFile)
		if err != nil {
			logrus.Fatal(err)
		}
		if s.Data.OrgUUID == "" {
			fmt.Fprintln(os.Stdout, "No organization UUID set")
			return
		}
		fmt.Fprintf(os.Stdout, "%s\n", s.Data.OrgUUID)
	},
}
