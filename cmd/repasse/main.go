// Package main runs the repasse client CLI, the reference consumer of the
// publication data and engagement layer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/repasse/repasse-go/internal/app"
	"github.com/repasse/repasse-go/internal/engagement"
	"github.com/repasse/repasse-go/internal/platform/config"
	"github.com/repasse/repasse-go/internal/platform/logging"
	"github.com/repasse/repasse-go/internal/platform/otel"
	"github.com/repasse/repasse-go/internal/platform/timeouts"
	"github.com/repasse/repasse-go/internal/publication"
	"github.com/repasse/repasse-go/internal/query"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: repasse <login|logout|feed|search|mine|liked|like> [args]")
	}

	shutdown, err := otel.Setup(ctx, "repasse-client", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.OTelShutdown)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	client, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	client.Restore(ctx)

	switch args[0] {
	case "login":
		return runLogin(ctx, client, args[1:])
	case "logout":
		return client.Logout(ctx)
	case "feed":
		result, err := client.LoadFeed(ctx)
		if err != nil {
			return err
		}
		printResult(client, result)
		return nil
	case "search":
		fs := flag.NewFlagSet("search", flag.ContinueOnError)
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		result, err := client.Search(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		printResult(client, result)
		return nil
	case "mine":
		if !client.IsAuthenticated() {
			return errors.New("mine requires a session; run login first")
		}
		result, err := client.LoadByAuthor(ctx, client.Session().UserID)
		if err != nil {
			return err
		}
		printResult(client, result)
		return nil
	case "liked":
		if !client.IsAuthenticated() {
			return errors.New("liked requires a session; run login first")
		}
		result, err := client.LoadLiked(ctx, client.Session().UserID)
		if err != nil {
			return err
		}
		printResult(client, result)
		return nil
	case "like":
		return runLike(ctx, client, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runLogin(ctx context.Context, client *app.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}
	sess, err := client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as user %d\n", sess.UserID)
	return nil
}

func runLike(ctx context.Context, client *app.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: repasse like <publication-id>")
	}
	publicationID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("publication id must be numeric: %w", err)
	}

	settled := make(chan engagement.Update, 4)
	unsubscribe := client.SubscribeEngagement(func(u engagement.Update) {
		settled <- u
	})
	defer unsubscribe()

	view, err := client.ToggleLike(ctx, publicationID)
	if err != nil {
		return err
	}
	fmt.Printf("publication %d: liked=%v count=%d (pending)\n", publicationID, view.Liked, view.DisplayedCount)

	timer := time.NewTimer(timeouts.HTTPRequest)
	defer timer.Stop()
	for {
		select {
		case update := <-settled:
			if update.PublicationID != publicationID {
				continue
			}
			if update.RolledBack {
				return update.Err
			}
			fmt.Printf("publication %d: liked=%v count=%d\n", publicationID, update.Liked, update.DisplayedCount)
			return nil
		case <-timer.C:
			return errors.New("timed out waiting for the like to settle")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printResult(client *app.Client, result query.Result) {
	if result.Superseded {
		return
	}
	for _, pub := range result.Publications {
		printPublication(client, pub)
	}
	if len(result.Publications) == 0 {
		fmt.Println("no publications")
	}
}

func printPublication(client *app.Client, pub publication.Publication) {
	view := client.Engagement(pub.ID)
	fmt.Printf("#%d [%s] %s (%s/%s) %d likes\n",
		pub.ID, pub.Status, pub.Description, pub.Location.City, pub.Location.State, view.DisplayedCount)
}
