package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"farmlink/internal/auth"
	"farmlink/internal/client"
	"farmlink/internal/models"
	"farmlink/internal/router"
	"farmlink/internal/session"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	loginLocal    bool
	loginWatch    bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print the session and landing route",
	Long: `Signs in through the session store and prints the resolved role and the
route the client would land on.

By default the store talks to a running server. With --local it talks to the
configured database directly. With --watch it keeps running and prints every
session change (for example an admin changing the role) until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	loginCmd.Flags().BoolVar(&loginLocal, "local", false, "use the database instead of the API")
	loginCmd.Flags().BoolVar(&loginWatch, "watch", false, "keep printing session changes")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		provider session.IdentityProvider
		roles    session.RoleStore
	)
	if loginLocal {
		db, err := openDatabase(true)
		if err != nil {
			return err
		}
		defer db.Close()

		authSvc, _ := newAuthService(db, nil)
		local := auth.NewLocalProvider(authSvc)
		defer local.Close()
		provider, roles = local, authSvc
	} else {
		c := client.New(apiURL(), client.WithLogger(logger))
		defer c.Close()
		provider, roles = c, c
	}

	store := session.NewStore(provider, roles,
		session.WithLogger(logger.Named("session")),
		session.WithLoadingTimeout(cfg.Auth.LoadingTimeout))
	defer store.Close()

	changes, cancel := store.ObserveAuthChanges()
	defer cancel()
	if err := waitLoaded(ctx, changes); err != nil {
		return err
	}

	sess, err := store.SignIn(ctx, models.Credentials{Email: loginEmail, Password: loginPassword})
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}
	out := cmd.OutOrStdout()
	printSession(cmd, sess)

	if !loginWatch {
		signOutCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		store.SignOut(signOutCtx)
		return nil
	}

	fmt.Fprintln(out, "watching for session changes, Ctrl-C to stop")
	last := sess
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-changes:
			if !ok {
				return nil
			}
			if s.Role != last.Role || s.IsAuthenticated != last.IsAuthenticated {
				printSession(cmd, s)
				last = s
			}
		}
	}
}

func waitLoaded(ctx context.Context, changes <-chan models.Session) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-changes:
			if !ok {
				return fmt.Errorf("session store closed")
			}
			if !s.Loading {
				return nil
			}
		}
	}
}

func printSession(cmd *cobra.Command, sess models.Session) {
	out := cmd.OutOrStdout()
	if !sess.IsAuthenticated {
		fmt.Fprintln(out, "signed out")
		return
	}
	fmt.Fprintf(out, "signed in as %s <%s>\n", sess.UserName, sess.Email)
	fmt.Fprintf(out, "  role:    %s\n", sess.Role)
	fmt.Fprintf(out, "  landing: %s\n", router.LandingRoute(sess))
	for _, path := range []string{"/farmer/orders", "/consumer/orders", "/admin/users"} {
		fmt.Fprintf(out, "  %-17s %s\n", path, router.Check(path, sess))
	}
}
