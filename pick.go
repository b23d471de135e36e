package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/stanford-rc/acp-go/internal/transfer"
)

// recentLimit bounds the recently-used collection listing.
const recentLimit = 10

// collectionLister is the slice of the transfer client the picker needs.
type collectionLister interface {
	RecentlyUsed(ctx context.Context, limit int) ([]transfer.Collection, error)
	Endpoint(ctx context.Context, id uuid.UUID) (*transfer.Collection, error)
}

// errNoMatch means the user's input matched nothing; the loop re-prompts.
var errNoMatch = errors.New("no matching collection")

// pickCollection lists recently-used collections and prompts until the
// user picks one by number, UUID, or display-name fragment. Unknown UUIDs
// and unmatched input re-prompt; only I/O failures abort.
func pickCollection(ctx context.Context, api collectionLister, in io.Reader, out io.Writer) (*transfer.Collection, error) {
	collections, err := api.RecentlyUsed(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	printCollections(out, collections)

	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "Collection [number, UUID, or name]: ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading collection choice: %w", err)
			}

			return nil, errors.New("input closed before a collection was chosen")
		}

		choice := strings.TrimSpace(scanner.Text())
		if choice == "" {
			continue
		}

		col, err := resolveChoice(ctx, api, collections, choice)

		switch {
		case errors.Is(err, transfer.ErrNotFound):
			fmt.Fprintf(out, "%s is not a collection.  Please try again.\n", choice)
		case errors.Is(err, errNoMatch):
			fmt.Fprintf(out, "Nothing matches %q.  Please try again.\n", choice)
		case err != nil:
			return nil, err
		default:
			return col, nil
		}
	}
}

// resolveChoice interprets user input as a listing number, a collection
// UUID (validated against the Transfer API), or a caseless display-name
// fragment, in that order.
func resolveChoice(ctx context.Context, api collectionLister, collections []transfer.Collection, choice string) (*transfer.Collection, error) {
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(collections) {
			return nil, errNoMatch
		}

		return &collections[n-1], nil
	}

	if id, err := uuid.Parse(choice); err == nil {
		return api.Endpoint(ctx, id)
	}

	fold := cases.Fold()
	needle := fold.String(choice)

	for i := range collections {
		if strings.Contains(fold.String(collections[i].DisplayName), needle) {
			return &collections[i], nil
		}
	}

	return nil, errNoMatch
}

// printCollections writes the numbered listing.
func printCollections(out io.Writer, collections []transfer.Collection) {
	if len(collections) == 0 {
		fmt.Fprintln(out, "No recently-used collections found.")
		fmt.Fprintln(out, "Enter a collection UUID to continue.")

		return
	}

	num := color.New(color.FgCyan)
	name := color.New(color.Bold)

	fmt.Fprintln(out, "Recently-used collections:")

	for i, c := range collections {
		line := fmt.Sprintf("%s %s", num.Sprintf("[%d]", i+1), name.Sprint(c.DisplayName))

		if c.Host != "" {
			line += fmt.Sprintf(" (%s)", c.Host)
		}

		fmt.Fprintf(out, "  %s\n      %s\n", line, c.ID)
	}
}
