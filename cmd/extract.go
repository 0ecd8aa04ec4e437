package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"grebe/internal/config"
	"grebe/internal/history"
	"grebe/internal/httputil"
	"grebe/internal/media"
	"grebe/internal/provider"
	"grebe/internal/subtitle"
)

// newRegistry wires the provider pipelines with their configured
// credentials and format policies. Each invocation gets fresh provider
// instances: sessions never outlive one run.
func newRegistry() *provider.Registry {
	client := httputil.NewClient()
	return provider.NewRegistry(
		provider.NewPrima(client, cfg.Credentials("prima"), cfg.EnabledFormats("prima")),
		provider.NewPrimaCNN(client, cfg.EnabledFormats("prima-cnn")),
		provider.NewVRT(client, cfg.Credentials("vrt"), cfg.EnabledFormats("vrt")),
		provider.NewVideoKen(client),
	)
}

// extractRun is the default command: grebe <url>
func extractRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no URL given")
	}
	rawURL := args[0]

	registry := newRegistry()
	p, err := registry.Find(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s", err, rawURL)
	}
	logrus.Debugf("dispatching %s to provider %s", rawURL, p.Name())

	seq, err := p.Extract(rawURL)
	if err != nil {
		return describeFailure(err)
	}

	var store *history.Store
	if cfg.History {
		if store, err = openHistory(); err != nil {
			logrus.Warnf("history disabled: %v", err)
		} else {
			defer store.Close()
		}
	}

	count := 0
	for {
		if flagLimit > 0 && count >= flagLimit {
			break
		}
		result, ok := seq.Next()
		if !ok {
			break
		}
		count++

		if err := printResult(p.Name(), result); err != nil {
			return err
		}
		record(store, p.Name(), rawURL, result)
	}

	if count == 0 {
		return fmt.Errorf("no items found at %s", rawURL)
	}
	return nil
}

func openHistory() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func record(store *history.Store, providerName, rawURL string, result media.Result) {
	if store == nil || result.Delegated() {
		return
	}
	d := result.Descriptor
	if err := store.Record(history.Entry{
		Provider: providerName,
		ID:       d.ID,
		Title:    d.Title,
		URL:      rawURL,
	}); err != nil {
		logrus.Warnf("recording history: %v", err)
	}
}

func printResult(providerName string, result media.Result) error {
	if flagJSON {
		return printJSON(providerName, result)
	}

	if result.Delegated() {
		fmt.Printf("-> %s %s\n   %s\n", result.Provider, result.ID, result.URL)
		return nil
	}

	d := result.Descriptor
	fmt.Printf("%s [%s]\n", d.Title, d.ID)
	if d.Series != "" {
		fmt.Printf("  %s", d.Series)
		if d.Season != "" {
			fmt.Printf(" · season %s", d.Season)
		}
		if d.Episode > 0 {
			fmt.Printf(" · episode %d", d.Episode)
		}
		fmt.Println()
	}
	if d.Duration > 0 {
		fmt.Printf("  duration: %.1fs\n", d.Duration)
	}

	for _, f := range d.Formats {
		line := fmt.Sprintf("  %-14s %s", f.ID, f.URL)
		if f.Language != "" {
			line += " (" + f.Language + ")"
		}
		fmt.Println(line)
	}

	tracks := subtitle.Filter(d.Subtitles, cfg.SubsLanguage)
	if cfg.SubsLanguage != "" {
		for _, tr := range tracks {
			fmt.Printf("  sub [%s] %s\n", cfg.SubsLanguage, tr.URL)
		}
	} else {
		for lang, trs := range d.Subtitles {
			for _, tr := range trs {
				fmt.Printf("  sub [%s] %s\n", lang, tr.URL)
			}
		}
	}
	return nil
}

func printJSON(providerName string, result media.Result) error {
	var out any
	if result.Delegated() {
		out = map[string]any{
			"delegated": true,
			"provider":  result.Provider,
			"id":        result.ID,
			"url":       result.URL,
		}
	} else {
		out = map[string]any{
			"provider":   providerName,
			"descriptor": result.Descriptor,
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// describeFailure rewords pipeline errors for the terminal. Geo denial
// gets special treatment so the user learns why playback is refused.
func describeFailure(err error) error {
	if countries, ok := media.IsGeoDenied(err); ok {
		return fmt.Errorf("this stream only plays in: %s", strings.Join(countries, ", "))
	}
	switch {
	case errors.Is(err, media.ErrLoginRequired):
		return fmt.Errorf("this provider requires login; add credentials to the config file")
	case errors.Is(err, media.ErrAuthFailed):
		return fmt.Errorf("login failed, check your credentials: %w", err)
	}
	return err
}
