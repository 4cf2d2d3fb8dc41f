// tfidf scores a directory of plain-text documents and prints the
// highest-weighted terms of each one.
//
//	tfidf --dir corpus/ --top 10
//	tfidf --stem --format json austen/*.txt
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dir           string
	top           int
	stem          bool
	keepStopWords bool
	minLength     int
	format        string
	logLevel      string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("tfidf", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.dir, "dir", "d", "", "directory of *.txt documents")
	flagSet.IntVarP(&opts.top, "top", "k", 10, "terms per document (0 for all)")
	flagSet.BoolVar(&opts.stem, "stem", false, "apply the Snowball English stemmer")
	flagSet.BoolVar(&opts.keepStopWords, "keep-stopwords", false, "keep English stop-words")
	flagSet.IntVar(&opts.minLength, "min-length", 1, "drop tokens shorter than this many characters")
	flagSet.StringVarP(&opts.format, "format", "f", "text", "output format: text or json")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "usage: tfidf [flags] [file.txt ...]\n\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	logger.SetupWriter(stderr, opts.logLevel, "text")

	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.top < 0 {
		return fmt.Errorf("--top must not be negative")
	}

	tokOpts := tokenizer.Options{
		Lowercase:       true,
		RemoveStopWords: !opts.keepStopWords,
		Stem:            opts.stem,
		MinLength:       opts.minLength,
	}
	docs, err := loadCorpus(opts.dir, flagSet.Args(), tokOpts)
	if err != nil {
		return err
	}
	table, err := tfidf.ScoreCorpus(ctx, docs)
	if err != nil {
		return err
	}
	top := tfidf.TopK(table, opts.top)

	if opts.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"fingerprint": corpus.Fingerprint(docs),
			"documents":   len(docs),
			"terms":       table.Terms(),
			"top":         top,
		})
	}
	return writeTable(stdout, top)
}

func loadCorpus(dir string, files []string, opts tokenizer.Options) (tfidf.Corpus, error) {
	if dir == "" && len(files) == 0 {
		return nil, errors.New("no input: pass --dir or one or more files")
	}
	var docs tfidf.Corpus
	if dir != "" {
		loaded, err := corpus.LoadDir(dir, opts)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	for _, path := range files {
		doc, err := corpus.LoadFile(path, opts)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// writeTable prints one aligned row per ranked term, documents in ID order.
func writeTable(w io.Writer, top map[string][]tfidf.Score) error {
	ids := make([]string, 0, len(top))
	for id := range top {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tRANK\tTERM\tN\tTF\tIDF\tTF-IDF\t")
	for _, id := range ids {
		for i, s := range top[id] {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\t\n",
				id, i+1, s.Term, s.N, formatFloat(s.TF), formatFloat(s.IDF), formatFloat(s.TFIDF))
		}
	}
	return tw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
