// Pagenav is a headless browser for sites that load their pages in place:
// links and forms are fetched in the background and swapped into the
// current document instead of reloading it.
package main

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
	"syscall"
	"time"

	"golang.org/x/net/html"

	"pagenav/browser"
	"pagenav/config"
	"pagenav/document"
	"pagenav/dom"
	"pagenav/favourites"
	"pagenav/fetcher"
	"pagenav/intercept"
	"pagenav/loader"
	"pagenav/omnibox"
	"pagenav/script"
	"pagenav/swap"
)

func main() {
	url := ""
	printMode := false
	initConfig := false
	restore := false

	for _, arg := range os.Args[1:] {
		switch arg {
		case "-p", "--print":
			printMode = true
		case "--init-config":
			initConfig = true
		case "--restore":
			restore = true
		case "-h", "--help":
			printUsage()
			return
		default:
			if url == "" {
				url = arg
			}
		}
	}

	// Generate default config and exit
	if initConfig {
		fmt.Print(config.DefaultTOML())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	if printMode {
		if err := runPrint(cfg, logger, url); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger, url, restore || cfg.Session.RestoreSession); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Pagenav - Headless Page Navigator

Usage: pagenav [options] [url]

Options:
  -p, --print       Load the page and print its content as markdown
  --init-config     Output default config (redirect to ~/.config/pagenav/config.toml)
  --restore         Reopen the history saved by the last session
  -h, --help        Show this help

Commands:
  links                  List links with their labels
  inputs                 List form inputs with their labels
  click N|label|sel      Click a link by number, label or CSS selector
  go URL|path|terms      Navigate natively, or search the current site
  back, forward          Traverse history
  type label|sel TEXT    Set an input's value
  submit sel             Submit the form matching (or containing) sel
  show                   Print the page as markdown
  title                  Print the page title
  history                List history entries
  preload URL            Fetch URL into the page cache
  clear-cache            Drop cached pages
  fav, favs, unfav N     Bookmark the page, list or remove bookmarks
  quit                   Save the session and exit

Configuration:
  Config file: ~/.config/pagenav/config.toml
  Generate with: pagenav --init-config > ~/.config/pagenav/config.toml`)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// settleTimeout bounds how long a command waits for the page to go quiet.
const (
	settleTimeout = 30 * time.Second
	settlePoll    = 20 * time.Millisecond
)

// app is one browser window with a navigator, driven from the terminal.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	loop *browser.Loop
	win  *browser.Window
	nav  *loader.Navigator
	omni *omnibox.Parser
	favs *favourites.Store
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) *app {
	client := fetcher.New(fetcher.Options{
		UserAgent:      cfg.Fetcher.UserAgent,
		TimeoutSeconds: cfg.Fetcher.TimeoutSeconds,
		ChromePath:     cfg.Fetcher.ChromePath,
		RenderNative:   cfg.Fetcher.RenderNative,
		AdminPrefix:    cfg.Loader.AdminPrefix,
	}, logger)

	loop := browser.NewLoop()
	win := browser.New(loop, client, browser.WithLogger(logger))

	var runner script.Runner = script.Nop{}
	if cfg.Scripts.Execute {
		runner = script.NewVM(win, logger)
	}

	nav := loader.New(win, client,
		loader.WithRules(intercept.Rules{
			AdminPrefix:      cfg.Loader.AdminPrefix,
			NeverIntercept:   cfg.Loader.NeverIntercept,
			LoginPath:        cfg.Loader.LoginPath,
			LoginFormID:      cfg.Loader.LoginFormID,
			SelfManagedForms: cfg.Loader.SelfManagedForms,
		}),
		loader.WithSwapOptions(swap.Options{
			FadeDelay:   cfg.Loader.FadeDelay(),
			ReinitDelay: cfg.Loader.ReinitDelay(),
			AdminPrefix: cfg.Loader.AdminPrefix,
			Stylesheets: swap.DefaultStylesheets,
		}),
		loader.WithInitDelay(cfg.Loader.InitDelay()),
		loader.WithRunner(runner),
		loader.WithLogger(logger),
	)

	return &app{cfg: cfg, logger: logger, out: out, loop: loop, win: win, nav: nav, omni: omnibox.NewParser()}
}

// start runs the loop until ctx is done.
func (a *app) start(ctx context.Context) {
	go func() {
		if err := a.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("event loop stopped", "error", err)
		}
	}()
}

// do runs fn on the loop.
func (a *app) do(fn func()) { a.loop.Do(fn) }

// settle waits until no navigation is in flight and the loop has drained
// its timers.
func (a *app) settle() {
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		busy := true
		a.do(func() { busy = a.nav.Loading() })
		if !busy && a.loop.Pending() == 0 {
			return
		}
		time.Sleep(settlePoll)
	}
	a.logger.Warn("page still busy", "after", settleTimeout)
}

// open loads url natively, or the saved session when restore is set, and
// starts the navigator on the result.
func (a *app) open(ctx context.Context, url string, restore bool) error {
	restored := false
	if restore {
		if path, err := browser.SessionPath(); err == nil {
			if s, err := browser.LoadSession(path); err == nil {
				a.do(func() { restored = a.win.RestoreSession(s) })
			} else if !errors.Is(err, os.ErrNotExist) {
				a.logger.Warn("session not restored", "error", err)
			}
		}
	}
	if !restored {
		target := a.omni.Parse(url, nil).URL
		if target == "" {
			return fmt.Errorf("cannot open %q: give a full url", url)
		}
		a.do(func() { a.win.Open(target) })
	}
	a.settle()

	a.do(func() {
		if !a.nav.Start(ctx) {
			a.logger.Info("dynamic loading off for this page", "url", a.win.Href())
		}
	})
	a.settle()
	return nil
}

func runPrint(cfg *config.Config, logger *slog.Logger, url string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newApp(cfg, logger, os.Stdout)
	a.start(ctx)
	if err := a.open(ctx, url, false); err != nil {
		return err
	}
	return a.show()
}

func run(cfg *config.Config, logger *slog.Logger, url string, restore bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := newApp(cfg, logger, os.Stdout)
	a.start(ctx)
	if err := a.open(ctx, url, restore); err != nil {
		return err
	}

	if favs, err := favourites.Load(); err == nil {
		a.favs = favs
		a.warmFavourites()
	} else {
		logger.Warn("favourites unavailable", "error", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		a.prompt()
		select {
		case <-ctx.Done():
			a.saveSession()
			return nil
		case line, ok := <-lines:
			if !ok {
				a.saveSession()
				return nil
			}
			quit, err := a.exec(line)
			if err != nil {
				fmt.Fprintf(a.out, "error: %v\n", err)
			}
			if quit {
				a.saveSession()
				return nil
			}
		}
	}
}

func (a *app) prompt() {
	var title string
	a.do(func() { title = a.win.Doc.Title() })
	if title == "" {
		title = "pagenav"
	}
	fmt.Fprintf(a.out, "[%s] > ", title)
}

func (a *app) saveSession() {
	path, err := browser.SessionPath()
	if err != nil {
		a.logger.Warn("session not saved", "error", err)
		return
	}
	var s *browser.Session
	a.do(func() { s = a.win.History.Snapshot() })
	if err := browser.SaveSession(path, s); err != nil {
		a.logger.Warn("session not saved", "error", err)
	}
}

// exec runs one command line. It reports whether the user asked to quit.
func (a *app) exec(line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false, nil
	case "quit", "q", "exit":
		return true, nil
	case "links":
		a.listLinks()
	case "inputs":
		a.listInputs()
	case "click":
		return false, a.click(arg)
	case "go":
		return false, a.goTo(arg)
	case "back":
		a.traverse(-1)
	case "forward":
		a.traverse(1)
	case "type":
		return false, a.typeInto(arg)
	case "submit":
		return false, a.submit(arg)
	case "show":
		return false, a.show()
	case "title":
		a.do(func() { fmt.Fprintln(a.out, a.win.Doc.Title()) })
	case "history":
		a.listHistory()
	case "preload":
		if arg == "" {
			return false, errors.New("usage: preload URL")
		}
		a.do(func() { a.nav.Preload(arg) })
		a.settle()
	case "clear-cache":
		a.do(a.nav.ClearCache)
	case "fav":
		return false, a.addFavourite()
	case "favs":
		a.listFavourites()
	case "unfav":
		return false, a.removeFavourite(arg)
	default:
		return false, fmt.Errorf("unknown command %q (try -h)", cmd)
	}
	return false, nil
}

func (a *app) listLinks() {
	a.do(func() {
		for i, l := range document.Links(a.win.Doc, a.win.Location()) {
			fmt.Fprintf(a.out, "%3d %-3s %s -> %s\n", i+1, l.Label, l.Text, l.Href)
		}
	})
}

func (a *app) listInputs() {
	a.do(func() {
		for _, in := range document.Inputs(a.win.Doc) {
			fmt.Fprintf(a.out, "%-3s %s [%s] = %q  (%s %s)\n", in.Label, in.Name, in.Type, in.Value, in.FormMethod, in.FormAction)
		}
	})
}

// findLink resolves a link number, jump label or selector on the loop.
func (a *app) findLink(arg string) *html.Node {
	links := document.Links(a.win.Doc, a.win.Location())
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(links) {
			return links[n-1].Node
		}
		return nil
	}
	for _, l := range links {
		if l.Label == arg {
			return l.Node
		}
	}
	return a.win.Doc.QueryFirst(arg)
}

func (a *app) findInput(arg string) *html.Node {
	for _, in := range document.Inputs(a.win.Doc) {
		if in.Label == arg {
			return in.Node
		}
	}
	return a.win.Doc.QueryFirst(arg)
}

func (a *app) click(arg string) error {
	if arg == "" {
		return errors.New("usage: click N|label|selector")
	}
	var found bool
	a.do(func() {
		if n := a.findLink(arg); n != nil {
			found = true
			a.win.Click(n)
		}
	})
	if !found {
		return fmt.Errorf("nothing matches %q", arg)
	}
	a.settle()
	return nil
}

// goTo navigates natively, as typing in the address bar does.
func (a *app) goTo(arg string) error {
	if arg == "" {
		return errors.New("usage: go URL|path|search terms")
	}
	var r omnibox.Result
	a.do(func() {
		r = a.omni.Parse(arg, a.win.Location())
		if r.URL != "" {
			a.win.Assign(r.URL)
		}
	})
	if r.URL == "" {
		return fmt.Errorf("nowhere to go for %q", arg)
	}
	a.settle()
	return nil
}

func (a *app) traverse(delta int) {
	var ok bool
	a.do(func() { ok = a.win.History.Go(delta) })
	if !ok {
		fmt.Fprintln(a.out, "no history entry there")
		return
	}
	a.settle()
}

func (a *app) typeInto(arg string) error {
	target, text, ok := strings.Cut(arg, " ")
	if !ok || target == "" {
		return errors.New("usage: type label|selector TEXT")
	}
	var found bool
	a.do(func() {
		if n := a.findInput(target); n != nil {
			found = true
			a.win.Input(n, text)
		}
	})
	if !found {
		return fmt.Errorf("no input matches %q", target)
	}
	a.settle()
	return nil
}

func (a *app) submit(arg string) error {
	if arg == "" {
		return errors.New("usage: submit selector")
	}
	var found bool
	a.do(func() {
		n := a.win.Doc.QueryFirst(arg)
		if n == nil {
			return
		}
		if form := dom.Closest(n, "form"); form != nil {
			found = true
			a.win.Submit(form)
		}
	})
	if !found {
		return fmt.Errorf("no form matches %q", arg)
	}
	a.settle()
	return nil
}

func (a *app) show() error {
	var md string
	var err error
	a.do(func() { md, err = document.Markdown(a.win.Doc, a.win.Href()) })
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, md)
	return nil
}

func (a *app) listHistory() {
	a.do(func() {
		cur := a.win.History.Index()
		for i, e := range a.win.History.Entries() {
			mark := " "
			if i == cur {
				mark = ">"
			}
			kind := "native"
			if e.State != nil {
				kind = "dynamic"
			}
			fmt.Fprintf(a.out, "%s %2d %-7s %s\n", mark, i, kind, e.URL)
		}
	})
}

func (a *app) addFavourite() error {
	if a.favs == nil {
		return errors.New("favourites unavailable")
	}
	var url, title string
	a.do(func() { url, title = a.win.Href(), a.win.Doc.Title() })
	if !a.favs.Add(url, title) {
		fmt.Fprintln(a.out, "already a favourite")
		return nil
	}
	return a.favs.Save()
}

// listFavourites prints the bookmarks, starring those already in the
// navigator's cache.
func (a *app) listFavourites() {
	if a.favs == nil {
		return
	}
	for i, f := range a.favs.Favourites {
		mark := " "
		if _, ok := a.nav.Cache().Get(f.URL); ok {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%3d %s %s  %s\n", i+1, mark, f.Title, f.URL)
	}
}

// warmFavourites preloads the bookmarked pages of the site on screen.
func (a *app) warmFavourites() {
	if a.favs == nil {
		return
	}
	a.do(func() {
		for _, f := range a.favs.OnSite(a.win.Location()) {
			if f.URL != a.win.Href() {
				a.nav.Preload(f.URL)
			}
		}
	})
	a.settle()
}

func (a *app) removeFavourite(arg string) error {
	if a.favs == nil {
		return errors.New("favourites unavailable")
	}
	n, err := strconv.Atoi(arg)
	if err != nil || !a.favs.Remove(n-1) {
		return fmt.Errorf("no favourite %q", arg)
	}
	return a.favs.Save()
}
