package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/Joel254010/myglobyx-go/api"
	"github.com/Joel254010/myglobyx-go/guard"
	"github.com/Joel254010/myglobyx-go/internal/config"
	"github.com/Joel254010/myglobyx-go/internal/utils"
	"github.com/Joel254010/myglobyx-go/session"
	"github.com/Joel254010/myglobyx-go/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)

	client := api.New(c.GetAPIBaseURL(), api.WithTimeout(c.GetRequestTimeout()))
	backends := []store.Backend{
		store.NewFileStore(filepath.Join(c.GetDataFolder(), "session.json")),
		store.NewMemStore(),
	}
	sessions := session.NewManager(backends,
		session.WithBinding(client),
		session.WithLegacyTokens(c.AllowLegacyTokens()),
		session.WithLogoutFunc(func() {
			fmt.Println("Logged out. See you soon!")
		}),
	)
	sessions.Restore()

	if len(args) == 0 {
		usage()
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "login":
		return login(ctx, client, sessions)
	case "signup":
		return signup(ctx, client, sessions)
	case "whoami":
		return whoami(ctx, client, sessions)
	case "logout":
		sessions.Logout()
		return nil
	case "admin-login":
		return adminLogin(ctx, client, sessions)
	case "admin-ping":
		return adminPing(ctx, client, sessions)
	case "admin-products":
		return adminProducts(ctx, client, sessions)
	case "admin-grant":
		return adminGrant(ctx, client, sessions, args[1:])
	case "serve":
		return serve(c, client, sessions)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Println("usage: globyx <login|signup|whoami|logout|admin-login|admin-ping|admin-products|admin-grant|serve>")
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func login(ctx context.Context, client *api.Client, sessions *session.Manager) error {
	email := promptLine("E-mail: ")
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	// Free-tier backends cold start; poke the root so the real call does
	// not eat the spin-up time.
	client.Warmup(ctx)

	resp, err := client.Login(ctx, email, password)
	if err != nil {
		return loginError(err)
	}
	sessions.SetAuth(resp.Token, &session.User{Name: resp.User.Name, Email: resp.User.Email})
	fmt.Printf("Welcome back, %s!\n", resp.User.Name)
	return nil
}

func signup(ctx context.Context, client *api.Client, sessions *session.Manager) error {
	name := promptLine("Name: ")
	email := promptLine("E-mail: ")
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	client.Warmup(ctx)

	resp, err := client.Signup(ctx, name, email, password)
	if err != nil {
		return loginError(err)
	}
	sessions.SetAuth(resp.Token, &session.User{Name: resp.User.Name, Email: resp.User.Email})
	fmt.Printf("Account created. Welcome, %s!\n", resp.User.Name)
	return nil
}

func whoami(ctx context.Context, client *api.Client, sessions *session.Manager) error {
	if !sessions.IsAuthenticated() {
		fmt.Println("Not logged in.")
		return nil
	}
	if user, ok := sessions.User(); ok {
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		return nil
	}
	// No cached snapshot, ask the backend.
	profile, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("could not load profile: %s", api.CodeOf(err))
	}
	fmt.Printf("%s <%s>\n", profile.Name, profile.Email)
	return nil
}

func adminLogin(ctx context.Context, client *api.Client, sessions *session.Manager) error {
	email := promptLine("Admin e-mail: ")
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	// Same login endpoint as the customer flow; only the storage slot
	// differs, so one machine can hold both identities.
	resp, err := client.Login(ctx, email, password)
	if err != nil {
		return loginError(err)
	}
	sessions.SetAdminToken(resp.Token)
	fmt.Println("Admin session saved.")
	return nil
}

func adminPing(ctx context.Context, client *api.Client, sessions *session.Manager) error {
	tok, ok := sessions.AdminToken()
	if !ok {
		fmt.Println("No admin session. Run `globyx admin-login` first.")
		return nil
	}
	resp, err := client.AdminPing(ctx, tok)
	if err != nil {
		return fmt.Errorf("admin ping failed: %s", api.CodeOf(err))
	}
	fmt.Printf("ok=%v isAdmin=%v email=%s\n", resp.OK, resp.IsAdmin, resp.Email)
	return nil
}

func adminProducts(ctx context.Context, client *api.Client, sessions *session.Manager) error {
	tok, ok := sessions.AdminToken()
	if !ok {
		fmt.Println("No admin session. Run `globyx admin-login` first.")
		return nil
	}
	products, err := client.ListProducts(ctx, tok)
	if err != nil {
		return fmt.Errorf("could not list products: %s", api.CodeOf(err))
	}
	for _, p := range products {
		fmt.Printf("%s  %-30s active=%v price=%v\n", p.ID, p.Title, p.Active, utils.Value(p.Price))
	}
	return nil
}

func adminGrant(ctx context.Context, client *api.Client, sessions *session.Manager, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: globyx admin-grant <email> <productId> [expiresAt RFC3339]")
	}
	tok, ok := sessions.AdminToken()
	if !ok {
		fmt.Println("No admin session. Run `globyx admin-login` first.")
		return nil
	}

	var expiresAt *time.Time
	if len(args) >= 3 {
		parsed, err := time.Parse(time.RFC3339, args[2])
		if err != nil {
			return fmt.Errorf("invalid expiry %q: %w", args[2], err)
		}
		expiresAt = utils.Ptr(parsed)
	}

	grant, err := client.GrantAccess(ctx, tok, args[0], args[1], expiresAt)
	if err != nil {
		return fmt.Errorf("could not grant access: %s", api.CodeOf(err))
	}
	fmt.Printf("Granted %s -> %s (id %s)\n", grant.Email, grant.ProductID, grant.ID)
	return nil
}

// serve hosts a local demo of the guarded areas: /app behind the customer
// guard, /admin behind the admin guard.
func serve(c config.Config, client *api.Client, sessions *session.Manager) error {
	displayAppName(c.GetAppName())

	customerGuard := guard.Customer(sessions, client, guard.WithClearOnServerError(c.ClearOnServerError()))
	adminGuard := guard.Admin(sessions, client, guard.WithClearOnServerError(c.ClearOnServerError()))

	mux := http.NewServeMux()
	mux.HandleFunc("/app", guard.Chain(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"area":"customer"}`)
	}, customerGuard.Middleware()))
	mux.HandleFunc("/admin", guard.Chain(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"area":"admin"}`)
	}, adminGuard.Middleware()))
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "login required, return to %s\n", guard.ReturnPath(r, "/app"))
	})
	mux.HandleFunc("/admin/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "admin login required, return to %s\n", guard.ReturnPath(r, "/admin"))
	})

	server := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("demo server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server.ListenAndServe")
		}
	}()
	waitForStopSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppName(appName string) {
	myFigure := figure.NewFigure(appName, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func loginError(err error) error {
	switch api.CodeOf(err) {
	case api.CodeInvalidCredentials:
		return errors.New("invalid e-mail or password")
	case api.CodeNetworkError:
		return errors.New("network failure, check your connection and try again")
	default:
		return fmt.Errorf("could not sign in: %s", api.CodeOf(err))
	}
}

func promptLine(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}
