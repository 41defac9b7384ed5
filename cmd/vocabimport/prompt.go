package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/japaniel/vocabimport/pkg/dictionary"
	"github.com/japaniel/vocabimport/pkg/wordlist"
)

// errCancelled is returned when the user declines or gives no path.
var errCancelled = errors.New("cancelled by user")

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resolvePath picks the file to import: the argument, else the first
// existing default location, else a path read from stdin.
func (a *app) resolvePath(ctx context.Context, profile dictionary.Profile, arg string) (string, error) {
	p := strings.TrimSpace(arg)
	if p == "" {
		if found, ok := wordlist.Discover(profile.Candidates); ok {
			fmt.Fprintf(a.out, "Found %s word list at %s\n", profile.Name, found)
			p = found
		} else {
			line, err := a.prompt(ctx, fmt.Sprintf("Path to the %s word list: ", profile.Name))
			if err != nil {
				return "", err
			}
			p = line
		}
	}
	if p == "" {
		return "", errCancelled
	}
	return a.localPath(ctx, p)
}

// localPath downloads remote lists into the cache directory.
func (a *app) localPath(ctx context.Context, p string) (string, error) {
	if !wordlist.IsRemote(p) {
		return p, nil
	}
	fmt.Fprintf(a.out, "Fetching %s...\n", p)
	local, err := wordlist.Fetch(ctx, nil, p, a.cfg.Import.CacheDir)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", p, err)
	}
	return local, nil
}

// confirm asks a y/n question. --yes answers it; without a terminal the
// answer is no. An interrupt while waiting returns the context error.
func (a *app) confirm(ctx context.Context, question string) (bool, error) {
	if a.flags.yes {
		return true, nil
	}
	if !a.interactive {
		fmt.Fprintln(a.out, "Standard input is not a terminal; pass --yes to import without confirmation.")
		return false, nil
	}
	answer, err := a.prompt(ctx, question+" [y/N]: ")
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

type promptAnswer struct {
	line string
	err  error
}

// prompt prints question and reads one line. The read runs in its own
// goroutine so an interrupt ends the wait at once.
func (a *app) prompt(ctx context.Context, question string) (string, error) {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(a.in)
	}
	fmt.Fprint(a.out, question)

	answers := make(chan promptAnswer, 1)
	go func() {
		line, err := a.stdin.ReadString('\n')
		answers <- promptAnswer{line: line, err: err}
	}()

	var ans promptAnswer
	select {
	case <-ctx.Done():
		fmt.Fprintln(a.out)
		return "", ctx.Err()
	case ans = <-answers:
	}
	if ans.err != nil && !(errors.Is(ans.err, io.EOF) && ans.line != "") {
		if errors.Is(ans.err, io.EOF) {
			return "", errCancelled
		}
		return "", ans.err
	}
	return strings.TrimSpace(ans.line), nil
}
