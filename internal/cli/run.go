package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/config"
	"github.com/roach88/cartsync/internal/engine"
	"github.com/roach88/cartsync/internal/journal"
	"github.com/roach88/cartsync/internal/notify"
	"github.com/roach88/cartsync/internal/remote"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Remote   string   // overrides remote.kind
	BaseURL  string   // overrides remote.baseURL
	Database string   // overrides journal.path
	Yes      bool     // confirm every removal without asking
	Seed     []string // product:quantity:price lines already in the cart
}

const runHelp = `Commands:
  add <product> [quantity] [price]   add to the cart (quantity defaults to 1)
  set <product> <quantity>           set the quantity (0 removes)
  + <product> [n]                    increase the quantity by n (default 1)
  - <product> [n]                    decrease the quantity by n (default 1)
  rm <product>                       remove the line
  resync                             refresh totals from the server
  compare [product]                  toggle a product in the compare list, or list it
  show                               print the cart
  notes                              print active notifications
  help                               print this help
  quit                               wait for outstanding requests and exit`

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive cart session",
		Long: `Start an interactive cart session.

Commands are read line by line from stdin. Every change is shown at once;
lines still waiting for the server are marked with "*". Failed requests
roll back and print an error notification. Every mutation is recorded in
the journal database.

` + runHelp + `

Examples:
  cartsync run --seed A123:2:3.50 --seed B777:1:4.25
  cartsync run --remote http --base-url https://shop.example.com/api
  echo "add A1 2 1.50" | cartsync run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Remote, "remote", "", "cart service: scripted|http (default from config)")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "cart service base URL for --remote http")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (default from config)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "remove lines without asking")
	cmd.Flags().StringArrayVar(&opts.Seed, "seed", nil, "confirmed cart line as product:quantity:price (repeatable)")

	return cmd
}

// session is one interactive run. Everything except the input reader and
// the launched remote calls runs on the loop goroutine.
type session struct {
	opts    *RunOptions
	cfg     config.Config
	coord   *engine.Coordinator
	remote  engine.RemoteCartService
	center  *notify.Center
	journal *journal.Store
	logger  *slog.Logger
	out     io.Writer
	prompt  io.Writer // removal prompts; stderr in JSON mode
	text    bool

	lines     <-chan string
	inputDone bool

	// inflight counts launched remote calls; wake fires when one returns.
	inflight atomic.Int64
	wake     chan struct{}

	lastRender string
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	if opts.Remote != "" {
		cfg.Remote.Kind = opts.Remote
	}
	if opts.BaseURL != "" {
		cfg.Remote.BaseURL = opts.BaseURL
	}
	if opts.Database != "" {
		cfg.Journal.Path = opts.Database
	}
	if err := config.Validate(cfg); err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	seed, err := parseSeed(opts.Seed)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --seed", err)
	}

	logger := opts.newLogger(cmd.ErrOrStderr())

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			logger.Error("error closing journal", "error", closeErr)
		}
	}()

	// Resume journal numbering after the entries of earlier sessions.
	lastSeq, err := j.LastSeq(context.Background())
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	svc, err := newRemote(cfg, seed, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to create cart service", err)
	}

	s := &session{
		opts:    opts,
		cfg:     cfg,
		remote:  svc,
		journal: j,
		logger:  logger,
		out:     cmd.OutOrStdout(),
		prompt:  cmd.OutOrStdout(),
		text:    opts.Format != "json",
		wake:    make(chan struct{}, 1),
	}

	centerOpts := []notify.Option{
		notify.WithTTL(cfg.Notifications.TTL),
		notify.WithMaxVisible(cfg.Notifications.MaxVisible),
		notify.WithLogger(logger),
	}
	if s.text {
		centerOpts = append(centerOpts, notify.WithObserver(func(n cart.Notification) {
			renderNotification(s.out, n)
		}))
	} else {
		s.prompt = cmd.ErrOrStderr()
	}
	s.center = notify.New(centerOpts...)
	defer s.center.Close()

	var confirmer engine.Confirmer = engine.ConfirmFunc(s.confirmRemove)
	if opts.Yes {
		confirmer = engine.AlwaysConfirm
	}

	s.coord = engine.New(svc,
		engine.WithLauncher(s.launch),
		engine.WithConfirmer(confirmer),
		engine.WithRecorder(j),
		engine.WithSeqClock(engine.NewClockAt(lastSeq)),
		engine.WithNotifier(s.center),
		engine.WithLogger(logger),
		engine.WithRequestTimeout(cfg.Remote.Timeout),
	)
	if err := s.coord.Seed(seed); err != nil {
		return WrapExitError(ExitCommandError, "failed to seed cart", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()
	s.lines = readLines(ctx, cmd.InOrStdin())

	logger.Info("session starting",
		"remote", cfg.Remote.Kind,
		"journal", cfg.Journal.Path,
		"resync_interval", cfg.Resync.Interval,
	)
	s.say("Type 'help' for commands, 'quit' to exit.")
	s.render(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.loop(gctx)
	})
	if cfg.Resync.Interval > 0 {
		g.Go(func() error {
			return s.tickResync(gctx, cfg.Resync.Interval)
		})
	}
	err = g.Wait()
	s.coord.Stop()
	logger.Info("session stopped")

	if err != nil {
		return WrapExitError(ExitFailure, "session error", err)
	}

	if !s.text {
		return formatter.Success(s.output())
	}
	return nil
}

// SessionOutput is the JSON result of a run.
type SessionOutput struct {
	Cart          CartOutput           `json:"cart"`
	Notifications []NotificationOutput `json:"notifications"`
}

// NotificationOutput is one active notification.
type NotificationOutput struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func (s *session) output() SessionOutput {
	active := s.center.Active()
	notes := make([]NotificationOutput, 0, len(active))
	for _, n := range active {
		notes = append(notes, NotificationOutput{Message: n.Message, Severity: string(n.Severity)})
	}
	return SessionOutput{Cart: cartOutput(s.coord.Snapshot()), Notifications: notes}
}

// loop owns the coordinator: it applies input lines and drains completions
// until input ends and every outstanding request has settled.
func (s *session) loop(ctx context.Context) error {
	for {
		if s.inputDone && s.settled() {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-s.lines:
			if !ok {
				s.endInput()
				continue
			}
			if quit := s.handleLine(ctx, line); quit {
				s.endInput()
			}

		case _, ok := <-s.coord.Ready():
			if !ok {
				return nil
			}
			s.coord.Drain(ctx)
			s.render(false)

		case <-s.wake:
		}
	}
}

func (s *session) endInput() {
	s.inputDone = true
	s.lines = nil
}

// settled reports that no remote call is running and no result is queued.
func (s *session) settled() bool {
	return s.inflight.Load() == 0 && s.coord.QueueLen() == 0
}

// launch runs a remote call on its own goroutine and wakes the loop when it
// returns.
func (s *session) launch(fn func()) {
	s.inflight.Add(1)
	go func() {
		defer func() {
			s.inflight.Add(-1)
			select {
			case s.wake <- struct{}{}:
			default:
			}
		}()
		fn()
	}()
}

func (s *session) tickResync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.coord.Dispatch(engine.Resync{}); errors.Is(err, engine.ErrStopped) {
				return nil
			}
		}
	}
}

// handleLine runs one input line. Returns true on quit.
func (s *session) handleLine(ctx context.Context, line string) bool {
	in, err := parseInput(line)
	if err != nil {
		s.say("Error: %v", err)
		return false
	}

	switch in.verb {
	case "":
		return false
	case "quit":
		return true
	case "help":
		s.say("%s", runHelp)
		return false
	case "show":
		s.render(true)
		return false
	case "notes":
		for _, n := range s.center.Active() {
			if s.text {
				renderNotification(s.out, n)
			}
		}
		return false
	case "compare":
		s.compare(ctx, in.product)
		return false
	}

	if add, ok := in.command.(engine.Add); ok && add.UnitPrice != "" {
		if shop, ok := s.remote.(*remote.Scripted); ok {
			shop.Stock(add.ProductID, add.UnitPrice)
		}
	}
	if err := s.coord.Dispatch(in.command); err != nil {
		s.say("Error: %v", err)
		return false
	}
	s.coord.Drain(ctx)
	s.render(false)
	return false
}

func (s *session) compare(ctx context.Context, id cart.ProductID) {
	if id == "" {
		ids, err := s.journal.CompareList(ctx)
		if err != nil {
			s.logger.Error("failed to read compare list", "error", err)
			return
		}
		if len(ids) == 0 {
			s.say("Compare list is empty")
			return
		}
		for _, id := range ids {
			s.say("  %s", id)
		}
		return
	}

	added, err := toggleCompare(ctx, s.journal, s.center, id, s.cfg.Compare.Max)
	switch {
	case errors.Is(err, journal.ErrCompareFull):
	case err != nil:
		s.logger.Error("failed to update compare list", "error", err)
	case added:
		s.say("%s added to compare list", id)
	default:
		s.say("%s removed from compare list", id)
	}
}

// confirmRemove asks on the output and reads the answer from the next
// input line. End of input declines.
func (s *session) confirmRemove(ctx context.Context, line cart.LineItem) bool {
	if s.inputDone {
		return false
	}
	fmt.Fprintf(s.prompt, "Remove %s from your cart? [y/N] ", line.ProductID)
	select {
	case <-ctx.Done():
		return false
	case answer, ok := <-s.lines:
		if !ok {
			s.endInput()
			fmt.Fprintln(s.prompt)
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

// render prints the cart when it changed since the last print, or always
// when force is set. Text mode only.
func (s *session) render(force bool) {
	if !s.text {
		return
	}
	var buf strings.Builder
	renderCart(&buf, s.coord.Snapshot())
	if !force && buf.String() == s.lastRender {
		return
	}
	s.lastRender = buf.String()
	fmt.Fprint(s.out, s.lastRender)
}

func (s *session) say(format string, args ...any) {
	if s.text {
		fmt.Fprintf(s.out, format+"\n", args...)
	}
}

// input is one parsed command line. command is nil for local verbs.
type input struct {
	verb    string
	command engine.Command
	product cart.ProductID
}

// parseInput parses one REPL line. Blank lines and "#" comments yield an
// empty verb.
func parseInput(line string) (input, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return input{}, nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	product := func() (cart.ProductID, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%s: product is required", verb)
		}
		return cart.NewProductID(args[0]), nil
	}
	intArg := func(i int, def int) (int, error) {
		if len(args) <= i {
			return def, nil
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a whole number", verb, args[i])
		}
		return n, nil
	}

	switch verb {
	case "quit", "exit", "q":
		return input{verb: "quit"}, nil
	case "help", "?":
		return input{verb: "help"}, nil
	case "show", "cart", "ls":
		return input{verb: "show"}, nil
	case "notes":
		return input{verb: "notes"}, nil
	case "resync":
		return input{verb: verb, command: engine.Resync{}}, nil
	case "compare":
		if len(args) == 0 {
			return input{verb: verb}, nil
		}
		return input{verb: verb, product: cart.NewProductID(args[0])}, nil
	}

	id, err := product()
	if err != nil {
		return input{}, err
	}

	switch verb {
	case "add":
		qty, err := intArg(1, 0)
		if err != nil {
			return input{}, err
		}
		var price cart.Price
		if len(args) > 2 {
			price = cart.Price(args[2])
		}
		return input{verb: verb, command: engine.Add{ProductID: id, Quantity: qty, UnitPrice: price}}, nil
	case "set":
		if len(args) < 2 {
			return input{}, fmt.Errorf("set: quantity is required")
		}
		qty, err := intArg(1, 0)
		if err != nil {
			return input{}, err
		}
		return input{verb: verb, command: engine.SetQuantity{ProductID: id, Quantity: qty}}, nil
	case "+", "-":
		n, err := intArg(1, 1)
		if err != nil {
			return input{}, err
		}
		if verb == "-" {
			n = -n
		}
		return input{verb: verb, command: engine.Adjust{ProductID: id, Delta: n}}, nil
	case "rm", "remove":
		return input{verb: "remove", command: engine.Remove{ProductID: id}}, nil
	}
	return input{}, fmt.Errorf("unknown command %q (try 'help')", verb)
}

// parseSeed parses product:quantity:price triples.
func parseSeed(seeds []string) ([]cart.LineItem, error) {
	lines := make([]cart.LineItem, 0, len(seeds))
	for _, raw := range seeds {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("seed %q: want product:quantity:price", raw)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("seed %q: quantity must be a positive whole number", raw)
		}
		line := cart.LineItem{
			ProductID: cart.NewProductID(parts[0]),
			Quantity:  qty,
			UnitPrice: cart.Price(parts[2]),
		}
		if _, err := line.LineTotal(); err != nil {
			return nil, fmt.Errorf("seed %q: %w", raw, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// newRemote builds the configured cart service. The scripted service
// starts with the seeded lines in its own cart.
func newRemote(cfg config.Config, seed []cart.LineItem, logger *slog.Logger) (engine.RemoteCartService, error) {
	switch cfg.Remote.Kind {
	case config.RemoteHTTP:
		client, err := remote.NewHTTPClient(cfg.Remote.BaseURL, remote.WithHTTPLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.RemoteScripted:
		svc := remote.NewScripted(nil)
		svc.Seed(seed)
		return svc, nil
	}
	return nil, fmt.Errorf("unknown remote kind %q", cfg.Remote.Kind)
}

// readLines feeds stdin lines to the loop until EOF or until ctx is done.
// A read already blocked on r finishes with the next line or EOF; the
// reader never blocks handing a line to a loop that has gone.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
