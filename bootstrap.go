package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stanford-rc/acp-go/internal/config"
	"github.com/stanford-rc/acp-go/internal/globus"
	"github.com/stanford-rc/acp-go/internal/transfer"
)

// runBootstrap is the root command: make sure a usable Globus session
// exists, greet the user, and walk them through collection selection.
func runBootstrap(cmd *cobra.Command, _ []string) error {
	caps := globus.ProbeCapabilities()

	return withSession(cmd, func(ctx context.Context, mgr *globus.Manager, cfg *config.Config, logger *slog.Logger) error {
		if err := ensureLogin(ctx, mgr, caps, os.Stdin); err != nil {
			return err
		}

		greet(ctx, mgr, logger)

		// Anything downstream of the bootstrap is interactive-only.
		if !caps.Interactive {
			statusf("Sorry, batch mode is not supported yet!\n")
			return errBatchUnsupported
		}

		api := transfer.NewClient(
			transfer.DefaultBaseURL,
			defaultHTTPClient(),
			mgr.ScopeTokenSource(transferScope(cfg)),
			logger,
		)

		col, err := pickCollection(ctx, api, os.Stdin, os.Stdout)
		if err != nil {
			return err
		}

		fmt.Printf("Selected collection %s (%s)\n", col.DisplayName, col.ID)

		return nil
	})
}

// ensureLogin checks the cached session and, if stale, drives a fresh
// login through the flow the environment supports. in is the terminal
// input used for the "press Return" prompt.
func ensureLogin(ctx context.Context, mgr *globus.Manager, caps globus.Capabilities, in io.Reader) error {
	needed, err := mgr.NeedsLogin(ctx)
	if err != nil {
		return err
	}

	if !needed {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Globus credentials are either missing or expired.")
	fmt.Fprintln(os.Stderr, "A fresh Globus login is required.")

	// Make sure no stale partial state survives into the flow.
	if err := mgr.Logout(ctx); err != nil {
		return err
	}

	flow, err := globus.SelectFlow(caps)
	if errors.Is(err, globus.ErrInteractiveRequired) {
		fmt.Fprintln(os.Stderr, "This requires an interactive session in order to proceed.")
		fmt.Fprintln(os.Stderr, "Please re-run acp in an interactive session.")

		return err
	}

	if err != nil {
		return err
	}

	if flow == globus.FlowBrowser {
		fmt.Fprint(os.Stderr, "Press Return to open a web browser and authenticate to Globus.")
		awaitReturn(in)
	}

	if err := mgr.Login(ctx, flow, displayDeviceAuth, openBrowser); err != nil {
		if errors.Is(err, globus.ErrAuthFailure) {
			fmt.Fprintln(os.Stderr, "An error occurred.  Please try again later.")
		}

		return err
	}

	statusf("Thank you!\n")

	return nil
}

// greet says hello using the id-token claims. Best-effort: a session
// without usable claims is still a valid session.
func greet(ctx context.Context, mgr *globus.Manager, logger *slog.Logger) {
	id, err := mgr.Identity(ctx)
	if err != nil {
		logger.Debug("no identity claims available", "error", err.Error())
		return
	}

	name := id.Name
	if name == "" {
		name = id.Username
	}

	if name != "" {
		fmt.Println("Hello " + name)
	}
}

// awaitReturn consumes one line of input.
func awaitReturn(in io.Reader) {
	reader := bufio.NewReader(in)
	_, _ = reader.ReadString('\n')
}

// displayDeviceAuth shows the device-code prompt. Always on stderr and
// never suppressed by --quiet, since the login cannot proceed without it.
func displayDeviceAuth(da globus.DeviceAuth) {
	fmt.Fprintf(os.Stderr, "To sign in, visit: %s\n", da.VerificationURI)
	fmt.Fprintf(os.Stderr, "Enter code: %s\n", da.UserCode)
}

// openBrowser launches the default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// transferScope picks the transfer-API scope out of the configured scope
// set, so the picker's bearer tokens cover the right resource server.
func transferScope(cfg *config.Config) string {
	for _, scope := range cfg.Scopes {
		if strings.Contains(scope, "transfer.api.globus.org") {
			return scope
		}
	}

	return "urn:globus:auth:scope:transfer.api.globus.org:all"
}
