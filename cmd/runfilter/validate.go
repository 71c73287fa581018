package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/internal/config"
)

// errInvalidFilters is returned when at least one filter fails validation.
var errInvalidFilters = errors.New("invalid flow run filters")

func validateCmd() *cobra.Command {
	var (
		parallelism int
		normalize   bool
	)

	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate flow run filters from JSON or YAML files",
		Long: `Validate flow run filters read from files or stdin.

Each document holds one filter object or a list of them. Files ending in
.yaml or .yml are read as YAML; anything else, including stdin ("-" or no
arguments), is read as JSON. Every filter is checked and reported; the
command fails if any filter is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewFilter(parallelism, nil, slog.New(slog.DiscardHandler))
			defer svc.Close()
			if len(args) == 0 {
				args = []string{"-"}
			}
			v := validator{svc: svc, out: cmd.OutOrStdout(), stdin: cmd.InOrStdin(), normalize: normalize}
			return v.run(cmd, args)
		},
	}

	cmd.Flags().IntVar(&parallelism, "parallelism", config.DefaultValidationParallelism, "Filters validated concurrently")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Print each valid filter in normalised JSON form")

	return cmd
}

type validator struct {
	svc       *service.Filter
	out       io.Writer
	stdin     io.Reader
	normalize bool
}

func (v validator) run(cmd *cobra.Command, sources []string) error {
	failed := 0
	for _, src := range sources {
		n, err := v.validateSource(cmd, src)
		if err != nil {
			return err
		}
		failed += n
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d failed", errInvalidFilters, failed)
	}
	return nil
}

// validateSource reports every filter in src and returns how many failed.
func (v validator) validateSource(cmd *cobra.Command, src string) (int, error) {
	data, err := v.read(src)
	if err != nil {
		return 0, err
	}
	name := src
	if src == "-" {
		name = "stdin"
	}

	candidates, list, err := decodeDocument(src, data)
	if err != nil {
		_, _ = fmt.Fprintf(v.out, "FAIL %s: %v\n", name, err)
		return 1, nil
	}

	filters, err := v.svc.ValidateAll(cmd.Context(), candidates)
	failures := indexFailures(err)
	if err != nil && len(failures) == 0 {
		return 0, err
	}

	failed := 0
	for i := range candidates {
		label := name
		if list {
			label = fmt.Sprintf("%s[%d]", name, i)
		}
		if ferr, ok := failures[i]; ok {
			failed++
			_, _ = fmt.Fprintf(v.out, "FAIL %s: %v\n", label, ferr)
			continue
		}
		f := filters[i]
		_, _ = fmt.Fprintf(v.out, "ok %s: property=%s family=%s\n", label, f.Property(), f.Family())
		if v.normalize {
			data, err := f.MarshalJSON()
			if err != nil {
				return failed, fmt.Errorf("encode %s: %w", label, err)
			}
			_, _ = fmt.Fprintf(v.out, "   %s\n", data)
		}
	}
	return failed, nil
}

func (v validator) read(src string) ([]byte, error) {
	if src == "-" {
		data, err := io.ReadAll(v.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return data, nil
}

// decodeDocument returns the filter candidates in data and whether the
// document was a list.
func decodeDocument(src string, data []byte) ([]any, bool, error) {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

// decodeJSON keeps each filter as raw JSON so repeated keys are still detected.
func decodeJSON(data []byte) ([]any, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty document")
	}
	if trimmed[0] != '[' {
		return []any{json.RawMessage(trimmed)}, false, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, true, fmt.Errorf("decode JSON list: %w", err)
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out, true, nil
}

func decodeYAML(data []byte) ([]any, bool, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode YAML: %w", err)
	}
	switch d := doc.(type) {
	case nil:
		return nil, false, errors.New("empty document")
	case []any:
		return d, true, nil
	default:
		return []any{d}, false, nil
	}
}

// indexFailures maps each failing position in a ValidateAll error to its cause.
func indexFailures(err error) map[int]error {
	if err == nil {
		return nil
	}
	var parts []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts = joined.Unwrap()
	} else {
		parts = []error{err}
	}
	out := make(map[int]error, len(parts))
	for _, part := range parts {
		var ierr *filter.IndexError
		if errors.As(part, &ierr) {
			out[ierr.Index] = ierr.Err
		}
	}
	return out
}
