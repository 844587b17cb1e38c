// Package main provides the CLI entrypoint for rollstats.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/rollstats/internal/config"
	"github.com/verte-zerg/rollstats/internal/dice"
	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/i18n"
	"github.com/verte-zerg/rollstats/internal/model"
	"github.com/verte-zerg/rollstats/internal/present"
	"github.com/verte-zerg/rollstats/internal/session"
	"github.com/verte-zerg/rollstats/internal/stats"
	"github.com/verte-zerg/rollstats/internal/statsui"
	"github.com/verte-zerg/rollstats/internal/store"
)

const (
	defaultLocale   = i18n.BaseLocale
	defaultLogLevel = "warn"
	defaultCollapse = true
)

var (
	flagUser     string
	flagLocale   string
	flagCollapse bool
	flagDieOrder string
	flagMedian   string
	flagDB       string
	flagLogLevel string

	statsTUI bool

	recordPlayer   string
	recordTerms    []string
	recordModifier int

	rollPlayer   string
	rollDice     []int
	rollModifier int
	rollSeed     int64

	distFaces int
)

// settings is the resolved configuration after file, env and flags.
type settings struct {
	Stats    model.StatsConfig
	DBPath   string
	LogLevel string
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rollstats [player]",
		Short:         "Dice roll statistics per player",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runStatsCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagUser, "user", "", "requesting player, used for \"me\"")
	flags.StringVar(&flagLocale, "locale", defaultLocale, "display locale")
	flags.BoolVar(&flagCollapse, "collapse", defaultCollapse, "collapse runs of 3+ consecutive values into ranges")
	flags.StringVar(&flagDieOrder, "die-order", model.DieOrderDiscovery, "die row order: discovery or numeric")
	flags.StringVar(&flagMedian, "median", model.MedianOrder, "median convention: order or legacy")
	flags.StringVar(&flagDB, "db", "", "roll log database path")
	flags.StringVar(&flagLogLevel, "log-level", defaultLogLevel, "diagnostic log level")
	rootCmd.Flags().BoolVar(&statsTUI, "tui", false, "open the interactive browser")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newRollCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newDistCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rollstats [player]",
		Aliases: []string{"rs"},
		Short:   "Show roll stats for every player or the given one",
		Args:    cobra.MaximumNArgs(1),
		RunE:    runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "open the interactive browser")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	loc, err := loadLocalizer(cfg.Stats.Locale)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, sess, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st)

	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	tables := sess.Tables(ctx, loc, cfg.Stats)

	if statsTUI {
		player, err := sess.Resolve(cfg.Stats.User, target)
		if err != nil {
			return invalidPlayer(cmd, loc, err)
		}
		ui := statsui.NewModel(tables, loc, sess, cfg.Stats.User, player)
		program := tea.NewProgram(ui, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, pt := range tables {
			if err := writePlayerTable(out, loc, pt); err != nil {
				return err
			}
		}
		return nil
	}
	player, err := sess.Resolve(cfg.Stats.User, target)
	if err != nil {
		return invalidPlayer(cmd, loc, err)
	}
	for _, pt := range tables {
		if pt.Report.Player == player {
			return writePlayerTable(out, loc, pt)
		}
	}
	return nil
}

func writePlayerTable(w io.Writer, loc *i18n.Localizer, pt session.PlayerTable) error {
	if pt.Err != nil {
		logErrf("failed to build stats for %s: %v\n", pt.Report.Player, pt.Err)
		return nil
	}
	if len(pt.Table.Rows) == 0 {
		_, err := fmt.Fprintf(w, "%s\n%s\n\n", pt.Table.Player, loc.T("empty.rolls"))
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	rightAlign := map[int]bool{
		present.ColTotalRolls: true,
		present.ColAverage:    true,
		present.ColMedian:     true,
	}
	if err := stats.RenderTable(w, pt.Table.Player, pt.Table.Headers, pt.Table.Rows, rightAlign); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "List registered players",
		Args:  cobra.NoArgs,
		RunE:  runPlayersCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>...",
		Short: "Register players",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPlayersAddCmd,
	})
	return cmd
}

func runPlayersCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(st)

	players, err := st.ListPlayers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	if len(players) == 0 {
		logErrln("No players registered. Add one with: rollstats players add <name>")
		return nil
	}
	for _, p := range players {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runPlayersAddCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(st)

	for _, name := range args {
		added, err := st.AddPlayer(context.Background(), name)
		if err != nil {
			return fmt.Errorf("failed to add player %q: %w", name, err)
		}
		if !added {
			logErrf("player %q already registered\n", strings.TrimSpace(name))
		}
	}
	return nil
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an evaluated roll",
		Args:  cobra.NoArgs,
		RunE:  runRecordCmd,
	}
	cmd.Flags().StringVar(&recordPlayer, "player", "", "player who rolled (default: --user)")
	cmd.Flags().StringArrayVar(&recordTerms, "term", nil, "die term as faces:outcome,outcome (repeatable)")
	cmd.Flags().IntVar(&recordModifier, "modifier", 0, "flat modifier added to the roll")
	return cmd
}

func runRecordCmd(cmd *cobra.Command, _ []string) error {
	if len(recordTerms) == 0 {
		return fmt.Errorf("--term is required")
	}
	terms := make([]dice.Term, 0, len(recordTerms)*2+1)
	for i, raw := range recordTerms {
		die, err := parseTerm(raw)
		if err != nil {
			return err
		}
		if i > 0 {
			terms = append(terms, dice.Operator{Symbol: "+"})
		}
		terms = append(terms, die)
	}
	switch {
	case recordModifier > 0:
		terms = append(terms, dice.Operator{Symbol: "+"}, dice.Numeric{Value: float64(recordModifier)})
	case recordModifier < 0:
		terms = append(terms, dice.Operator{Symbol: "-"}, dice.Numeric{Value: float64(-recordModifier)})
	}
	roll := dice.Roll{Formula: dice.BuildFormula(terms), Terms: terms}
	return recordRoll(cmd, recordPlayer, roll)
}

// parseTerm reads "faces:o1,o2,..." into a die term.
func parseTerm(raw string) (dice.Die, error) {
	facesPart, outcomesPart, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return dice.Die{}, fmt.Errorf("invalid --term %q (expected faces:outcome,outcome)", raw)
	}
	faces, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(facesPart), "d"))
	if err != nil {
		return dice.Die{}, fmt.Errorf("invalid faces in --term %q: %w", raw, err)
	}
	if !histogram.ValidFaces(faces) {
		return dice.Die{}, fmt.Errorf("invalid faces in --term %q: %w", raw, histogram.ErrInvalidFaces)
	}
	var results []dice.Result
	for _, part := range strings.Split(outcomesPart, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return dice.Die{}, fmt.Errorf("invalid outcome in --term %q: %w", raw, err)
		}
		results = append(results, dice.Result{Value: v, Active: true})
	}
	if len(results) == 0 {
		return dice.Die{}, fmt.Errorf("--term %q has no outcomes", raw)
	}
	return dice.Die{Sides: faces, Results: results}, nil
}

func newRollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Roll dice and record the result",
		Args:  cobra.NoArgs,
		RunE:  runRollCmd,
	}
	cmd.Flags().StringVar(&rollPlayer, "player", "", "player who rolls (default: --user)")
	cmd.Flags().IntSliceVar(&rollDice, "die", nil, "faces of one die to roll (repeatable)")
	cmd.Flags().IntVar(&rollModifier, "modifier", 0, "flat modifier added to the roll")
	cmd.Flags().Int64Var(&rollSeed, "seed", 0, "random seed (default: time based)")
	return cmd
}

func runRollCmd(cmd *cobra.Command, _ []string) error {
	roller := dice.NewRoller()
	if cmd.Flags().Changed("seed") {
		roller = dice.NewSeededRoller(rollSeed)
	}
	roll, err := roller.Roll(dice.SpecsFromFaces(rollDice), rollModifier)
	if err != nil {
		return fmt.Errorf("failed to roll: %w", err)
	}
	return recordRoll(cmd, rollPlayer, roll)
}

func recordRoll(cmd *cobra.Command, player string, roll dice.Roll) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(player) == "" {
		player = cfg.Stats.User
	}
	if strings.TrimSpace(player) == "" {
		return fmt.Errorf("--player is required when no user is configured")
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, sess, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st)

	res, err := sess.Record(ctx, player, roll)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %s\n", strings.TrimSpace(player), roll.Formula, formatTotal(roll.Total())); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if res.Skipped > 0 {
		logErrf("%d outcome(s) skipped, see log for details\n", res.Skipped)
	}
	return nil
}

func formatTotal(total float64) string {
	return strconv.FormatFloat(total, 'f', -1, 64)
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <messages.json>",
		Short: "Import rolls from a host chat export",
		Long: "Import rolls from a host chat export.\n\n" +
			"A roll already in the log for the same player, timestamp and roll data\n" +
			"is counted as a duplicate and not inserted, so an export can be imported again.",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	export, err := model.DecodeExport(data)
	if err != nil {
		return err
	}
	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(st)

	res, err := st.ImportMessages(context.Background(), export, log)
	if err != nil {
		return fmt.Errorf("failed to import messages: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d roll(s), %d new player(s), skipped %d, duplicates %d\n", res.Rolls, res.Players, res.Skipped, res.Duplicates); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newDistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dist [player]",
		Short: "Draw the outcome distribution of one die",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDistCmd,
	}
	cmd.Flags().IntVar(&distFaces, "die", 20, "faces of the die to draw")
	return cmd
}

func runDistCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	loc, err := loadLocalizer(cfg.Stats.Locale)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, sess, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st)

	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	player, err := sess.Resolve(cfg.Stats.User, target)
	if err != nil {
		return invalidPlayer(cmd, loc, err)
	}
	h, err := sess.Store().HistogramFor(player)
	if err != nil {
		return err
	}
	die, ok := h.Die(distFaces)
	if !ok {
		return errors.New(loc.Tf("errors.noDie", player, distFaces))
	}
	title := fmt.Sprintf("%s %s", player, present.DieLabel(loc, distFaces))
	if err := stats.RenderDistribution(cmd.OutOrStdout(), title, die, 0); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadSettings layers the config file, ROLLSTATS_* variables and flags.
func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	return resolveSettings(cmd, fileCfg)
}

func resolveSettings(cmd *cobra.Command, fileCfg config.FileConfig) (settings, error) {
	user, locale, collapse := flagUser, flagLocale, flagCollapse
	dieOrder, median := flagDieOrder, flagMedian
	db, level := flagDB, flagLogLevel
	applyStringConfig(cmd, "user", &user, fileCfg.Stats.User)
	applyStringConfig(cmd, "locale", &locale, fileCfg.Stats.Locale)
	applyBoolConfig(cmd, "collapse", &collapse, fileCfg.Stats.Collapse)
	applyStringConfig(cmd, "die-order", &dieOrder, fileCfg.Stats.DieOrder)
	applyStringConfig(cmd, "median", &median, fileCfg.Stats.Median)
	applyStringConfig(cmd, "db", &db, fileCfg.Storage.DB)
	applyStringConfig(cmd, "log-level", &level, fileCfg.Log.Level)

	cfg := settings{
		Stats: model.StatsConfig{
			User:     strings.TrimSpace(user),
			Locale:   locale,
			Collapse: collapse,
			DieOrder: dieOrder,
			Median:   median,
		},
		DBPath:   db,
		LogLevel: level,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = config.DefaultDBPath()
	}
	if err := validateSettings(cfg); err != nil {
		return settings{}, err
	}
	return cfg, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# rollstats configuration
# Uncomment a value to enable it. ROLLSTATS_* variables override config
# values and CLI flags override both.

[stats]
# user = ""               # Requesting player, used for "me"
# locale = %q        # Display locale
# collapse = %t          # Collapse runs of 3+ consecutive values into ranges
# die-order = %q   # Die row order: discovery or numeric
# median = %q          # Median convention: order or legacy

[storage]
# db = %q

[log]
# level = %q            # panic, fatal, error, warn, info, debug, trace
`,
		defaultLocale,
		defaultCollapse,
		model.DieOrderDiscovery,
		model.MedianOrder,
		config.DefaultDBPath(),
		defaultLogLevel,
	)
}

func validateSettings(cfg settings) error {
	switch cfg.Stats.DieOrder {
	case model.DieOrderDiscovery, model.DieOrderNumeric:
	default:
		return fmt.Errorf("--die-order must be %q or %q", model.DieOrderDiscovery, model.DieOrderNumeric)
	}
	switch cfg.Stats.Median {
	case model.MedianOrder, model.MedianLegacy:
	default:
		return fmt.Errorf("--median must be %q or %q", model.MedianOrder, model.MedianLegacy)
	}
	if cfg.Stats.User == histogram.AllPlayers {
		return fmt.Errorf("--user must name a real player, not %q", histogram.AllPlayers)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	return nil
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return log, nil
}

func loadLocalizer(locale string) (*i18n.Localizer, error) {
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}
	loc := bundle.Localizer(locale)
	requested := strings.ToLower(strings.TrimSpace(locale))
	if requested != "" && loc.Locale() == i18n.BaseLocale && !strings.HasPrefix(requested, "en") {
		logErrf("locale %q not available, using %s\n", locale, loc.Locale())
	}
	return loc, nil
}

func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func openSession(ctx context.Context, cfg settings, log *logrus.Logger) (*store.Store, *session.Session, error) {
	st, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Start(ctx, st, log)
	if err != nil {
		closeStore(st)
		return nil, nil, err
	}
	return st, sess, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// invalidPlayer reports an unknown player in the configured locale and keeps
// cobra from printing the error a second time.
func invalidPlayer(cmd *cobra.Command, loc *i18n.Localizer, err error) error {
	var unknown *histogram.UnknownPlayerError
	if !errors.As(err, &unknown) {
		return err
	}
	logErrln(statsui.InvalidPlayerMessage(loc, err))
	cmd.Root().SilenceErrors = true
	return err
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
