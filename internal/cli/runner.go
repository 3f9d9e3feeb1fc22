package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"strider/internal/gateway"
	"strider/internal/model"
	"strider/internal/session"
	"strider/internal/state"
	"strider/internal/tui"
	"strider/internal/ui"
)

// Options tune behavior from root flags.
type Options struct {
	Server string // base URL of the walker backend
}

// ---------------------------------------------------
// CLI router
// ---------------------------------------------------

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		fs := flag.NewFlagSet("ls", flag.ContinueOnError)
		filterName := fs.String("filter", "", "initial filter: all|active|completed")
		if err := fs.Parse(a); err != nil {
			return 2
		}
		f, err := model.ParseFilter(*filterName)
		if err != nil {
			ui.Fail("ls: " + err.Error())
			return 2
		}
		return doList(opt, f)

	case "clear":
		return doClear(opt)

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: strider add <text...>")
			return 2
		}
		return doAdd(opt, strings.Join(a, " "))

	case "done":
		if len(a) != 1 {
			ui.Fail("usage: strider done <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("done: not a number: " + a[0])
			return 2
		}
		return doToggle(opt, n)

	case "rm":
		if len(a) != 1 {
			ui.Fail("usage: strider rm <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("rm: not a number: " + a[0])
			return 2
		}
		return doRemove(opt, n)

	case "auth":
		if len(a) == 0 {
			ui.Fail("usage: strider auth <login|signup|logout|status|whoami>")
			return 2
		}
		switch a[0] {
		case "login":
			return doAuthLogin(opt)
		case "signup":
			return doAuthSignup(opt)
		case "logout":
			return doAuthLogout()
		case "status":
			return doAuthStatus()
		case "whoami":
			return doAuthWhoAmI()
		default:
			ui.Fail("usage: strider auth <login|signup|logout|status|whoami>")
			return 2
		}
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(os.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Printf(`strider - a todo client for a walker backend

Usage:
  strider [-server <url>] <subcommand> [args]

Subcommands:
  add <text...>      Add a new todo (text can be multiple words)
  ls [-filter f]     List todos (interactive TUI); f is all|active|completed
  done <index>       Toggle done for the todo at 1-based index
  rm <index>         Remove the todo at 1-based index
  clear              Drop completed todos from the view (server keeps them)
  auth <login|signup|logout|status|whoami>   Session management

Environment:
  STRIDER_SERVER     Backend base URL (default http://127.0.0.1:8000)
  STRIDER_TOKEN      Token override (skips the credentials file)

Examples:
  strider auth signup
  strider add "Buy milk"
  strider ls
  strider done 2
  strider clear
  strider rm 3
`)
}

// newList wires the state container to the configured backend with the
// stored session.
func newList(opt Options) (*state.List, error) {
	gw, err := gateway.NewClient(opt.Server, session.Source{})
	if err != nil {
		return nil, err
	}
	return state.New(gw), nil
}

// ---------------------------------------------------
// Auth subcommands
// ---------------------------------------------------

func promptCredentials(confirm bool) (username, password, confirmed string, err error) {
	fmt.Print("Username: ")
	if _, err = fmt.Scanln(&username); err != nil {
		return
	}
	fmt.Print("Password: ")
	if _, err = fmt.Scanln(&password); err != nil {
		return
	}
	if confirm {
		fmt.Print("Confirm password: ")
		if _, err = fmt.Scanln(&confirmed); err != nil {
			return
		}
	}
	return
}

func doAuthLogin(opt Options) int {
	username, password, _, err := promptCredentials(false)
	if err != nil {
		ui.Fail("read credentials: " + err.Error())
		return 1
	}
	if err := session.Login(context.Background(), opt.Server, username, password); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("logged in as " + username)
	return 0
}

func doAuthSignup(opt Options) int {
	username, password, confirmed, err := promptCredentials(true)
	if err != nil {
		ui.Fail("read credentials: " + err.Error())
		return 1
	}
	if err := session.Signup(context.Background(), opt.Server, username, password, confirmed); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("signed up as " + username)
	return 0
}

func doAuthLogout() int {
	ti, _ := session.GetToken()
	if ti != nil && ti.Source == "env" {
		ui.OK("token is provided by STRIDER_TOKEN env var (nothing to delete)")
		return 0
	}
	if err := session.Logout(); err != nil {
		ui.Fail("logout: " + err.Error())
		return 1
	}
	ui.OK("logged out")
	return 0
}

func doAuthStatus() int {
	ti, _ := session.GetToken()
	if ti == nil {
		fmt.Println(ui.Muted.Render("not logged in"))
		fmt.Println("Run: strider auth login")
		return 0
	}
	lines := []string{"source: " + ti.Source}
	if ti.Username != "" {
		lines = append(lines, "user: "+ti.Username)
	}
	if ti.ExpiresAt != nil {
		lines = append(lines, "expires: "+ti.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		lines = append(lines, "expires: (unknown)")
	}
	lines = append(lines, ui.Muted.Render("env override: STRIDER_TOKEN"))
	ui.Panel(lines)
	return 0
}

func doAuthWhoAmI() int {
	ti, _ := session.GetToken()
	if ti == nil {
		ui.Fail("not logged in. Run: strider auth login")
		return 2
	}
	if ti.Username != "" {
		fmt.Println(ti.Username)
		return 0
	}
	fmt.Println("Opaque token (no stored username).")
	fmt.Println("source:", ti.Source)
	return 0
}

// Require a token for the todo commands.
func ensureAuth() int {
	if !session.IsAuthenticated() {
		ui.Fail("no token found. Set STRIDER_TOKEN or run `strider auth login`")
		return 2
	}
	return 0
}

// ---------------------------------------------------
// Todo subcommands
// ---------------------------------------------------

func doList(opt Options, f model.Filter) int {
	if code := ensureAuth(); code != 0 {
		return code
	}
	lst, err := newList(opt)
	if err != nil {
		ui.Fail("connect: " + err.Error())
		return 1
	}
	lst.SetFilter(f)
	if err := tui.Run(lst); err != nil {
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

// doClear drops completed entries from the local view only. The server
// copy is untouched and they come back on the next load.
func doClear(opt Options) int {
	if code := ensureAuth(); code != 0 {
		return code
	}
	lst, err := newList(opt)
	if err != nil {
		ui.Fail("connect: " + err.Error())
		return 1
	}
	if err := lst.Load(context.Background()); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	before := len(lst.Todos())
	lst.ClearCompleted()
	remaining := lst.Todos()
	for i, td := range remaining {
		box := ui.BoxUnchecked
		if td.Done {
			box = ui.BoxChecked
		}
		fmt.Printf("%2d %s %s\n", i+1, box, td.Text)
	}
	ui.OK(fmt.Sprintf("cleared %d completed, %d left", before-len(remaining), len(remaining)))
	return 0
}

func doAdd(opt Options, text string) int {
	if code := ensureAuth(); code != 0 {
		return code
	}
	text = strings.TrimSpace(text)
	if text == "" {
		ui.Fail("add: empty text")
		return 2
	}
	lst, err := newList(opt)
	if err != nil {
		ui.Fail("connect: " + err.Error())
		return 1
	}
	if err := lst.Add(context.Background(), text); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("added")
	return 0
}

// resolve maps a 1-based index to a server id against a fresh load.
func resolve(lst *state.List, userIndex int) (string, int) {
	if err := lst.Load(context.Background()); err != nil {
		ui.Fail(err.Error())
		return "", 1
	}
	todos := lst.Todos()
	if userIndex < 1 || userIndex > len(todos) {
		ui.Fail(fmt.Sprintf("index out of range: have %d, got %d", len(todos), userIndex))
		fmt.Fprintln(os.Stderr, ui.Muted.Render("Hint: run `strider ls` to see your todos"))
		return "", 2
	}
	return todos[userIndex-1].ID, 0
}

func doToggle(opt Options, userIndex int) int {
	if code := ensureAuth(); code != 0 {
		return code
	}
	lst, err := newList(opt)
	if err != nil {
		ui.Fail("connect: " + err.Error())
		return 1
	}
	id, code := resolve(lst, userIndex)
	if code != 0 {
		return code
	}
	if err := lst.Toggle(context.Background(), id); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("toggled")
	return 0
}

func doRemove(opt Options, userIndex int) int {
	if code := ensureAuth(); code != 0 {
		return code
	}
	lst, err := newList(opt)
	if err != nil {
		ui.Fail("connect: " + err.Error())
		return 1
	}
	id, code := resolve(lst, userIndex)
	if code != 0 {
		return code
	}
	if err := lst.Delete(context.Background(), id); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("removed")
	return 0
}
