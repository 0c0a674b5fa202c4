// Package shell is the interactive front end of minise-search: it reads one
// query per line and prints the ranked hits with snippets.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/executor"
)

const maxLine = 1 << 20

type Info struct {
	Method string
	Docs   int
	Path   string
	Terms  int
	Size   int
}

// PrintHeader writes the index summary shown before the first prompt.
func PrintHeader(w io.Writer, info Info) {
	fmt.Fprintf(w, "method: %s\n", info.Method)
	fmt.Fprintf(w, "  docN: %d\n", info.Docs)
	fmt.Fprintf(w, " index: %s\n", info.Path)
	fmt.Fprintf(w, " termN: %d\n", info.Terms)
	fmt.Fprintf(w, "  size: %d\n", info.Size)
}

type Shell struct {
	exec *executor.Executor
	opts executor.Options
}

func New(exec *executor.Executor, opts executor.Options) *Shell {
	return &Shell{exec: exec, opts: opts}
}

// Run prompts on out and answers each line read from in until in is
// exhausted or ctx is done. A failing query is reported and the loop goes
// on.
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	w := bufio.NewWriter(out)
	defer w.Flush()

	for {
		fmt.Fprint(w, ">")
		if err := w.Flush(); err != nil {
			return err
		}
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		query := strings.TrimSuffix(scanner.Text(), "\r")
		fmt.Fprintf(w, "query:[%s]\n", query)

		res, err := s.exec.Execute(ctx, query, s.opts)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "time: %.3f milli seconds.\n", res.ElapsedMs)
		PrintResult(w, res)
	}
}

// PrintResult writes one query's hits in the shell's format.
func PrintResult(w io.Writer, res *executor.SearchResult) {
	fmt.Fprintf(w, "Hit %d documents. %d positions.\n", res.TotalDocs, res.TotalPositions)
	for _, hit := range res.Results {
		fmt.Fprintf(w, " Title: %s\n", hit.Title)
		fmt.Fprintf(w, " DocID: %d\n", hit.DocID)
		fmt.Fprintf(w, "HitPos: %d\n", hit.HitPos)
		for _, sn := range hit.Snippets {
			fmt.Fprintf(w, "%10d\t%s\t\n", sn.Offset, oneLine(sn.Text))
		}
		fmt.Fprintln(w)
	}
}

func oneLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}
