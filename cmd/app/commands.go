package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/provtrack/internal"
	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/export"
	"github.com/starford/provtrack/internal/files"
	"github.com/starford/provtrack/internal/recorder"
	"github.com/starford/provtrack/internal/record"
)

func runAdd(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	if !cmd.Args().Present() {
		return fmt.Errorf("add: %w: at least one file is required", apperr.ErrMalformed)
	}
	custom, err := parseFields(cmd.StringSlice("field"))
	if err != nil {
		return err
	}
	for _, path := range cmd.Args().Slice() {
		h, err := s.Recorder.Add(ctx, path, recorder.AddOptions{
			Transient: cmd.Bool("transient"),
			Custom:    custom,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.Root().Writer, h.Location())
	}
	return nil
}

func runLog(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	custom, err := parseFields(cmd.StringSlice("field"))
	if err != nil {
		return err
	}
	hs, err := s.Recorder.Log(ctx, recorder.LogRequest{
		New:            cmd.Args().Slice(),
		Transformation: cmd.String("transformation"),
		Parents:        cmd.StringSlice("parent"),
		Code:           cmd.String("code"),
		Logtext:        cmd.String("logtext"),
		Script:         cmd.String("script"),
		Transient:      cmd.Bool("transient"),
		Custom:         custom,
	})
	if err != nil {
		return err
	}
	for _, h := range hs {
		fmt.Fprintln(cmd.Root().Writer, h.Location())
	}
	return nil
}

func runRecord(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	custom, err := parseFields(cmd.StringSlice("field"))
	if err != nil {
		return err
	}
	req := recorder.RecordRequest{
		Command:   cmd.Args().Slice(),
		New:       cmd.String("out"),
		Transient: cmd.Bool("transient"),
		Custom:    custom,
	}
	if cmd.IsSet("in") {
		req.Parents = cmd.StringSlice("in")
	}
	h, err := s.Recorder.Record(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, h.Location())
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("show: %w: exactly one file is required", apperr.ErrMalformed)
	}
	h, err := s.Repository.ByLocation(cmd.Args().First())
	if err != nil {
		return err
	}
	return deliver(cmd, func() (string, error) {
		return s.Exporter.Export(ctx, h, cmd.String("format"), cmd.String("medium"))
	})
}

func runSubject(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("subject: %w: exactly one subject is required", apperr.ErrMalformed)
	}
	recs, err := s.Repository.BySubject(cmd.Args().First())
	if err != nil {
		return err
	}
	hs := make([]*files.Handle, 0, len(recs))
	for _, rec := range recs {
		hs = append(hs, s.Registry.FromProvenance(rec))
	}
	return deliver(cmd, func() (string, error) {
		return s.Exporter.ExportList(ctx, hs, cmd.String("format"), cmd.String("medium"))
	})
}

func runExport(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	var hs []*files.Handle
	switch {
	case cmd.Bool("all"):
		all, err := s.Repository.Handles()
		if err != nil {
			return err
		}
		hs = all
	case cmd.Args().Present():
		for _, path := range cmd.Args().Slice() {
			h, err := s.Repository.ByLocation(path)
			if err != nil {
				return err
			}
			hs = append(hs, h)
		}
	default:
		return fmt.Errorf("export: %w: give files or --all", apperr.ErrMalformed)
	}
	return deliver(cmd, func() (string, error) {
		return s.Exporter.ExportList(ctx, hs, cmd.String("format"), cmd.String("medium"))
	})
}

func runMCP(ctx context.Context, cmd *cli.Command, s *internal.Session) error {
	return s.Serve(ctx, cmd.Root().Reader, cmd.Root().Writer)
}

// deliver runs an export. Direct output is printed; file-backed mediums
// report where the output went.
func deliver(cmd *cli.Command, run func() (string, error)) error {
	out, err := run()
	if err != nil {
		return err
	}
	switch cmd.String("medium") {
	case export.MediumDirect:
		fmt.Fprintln(cmd.Root().Writer, out)
	case export.MediumFile, export.MediumViewer:
		fmt.Fprintln(cmd.Root().ErrWriter, "written to", out)
	}
	return nil
}

// parseFields turns key=value pairs into record fields. Values are read as
// YAML scalars so numbers and booleans keep their type; timestamps stay
// strings and are parsed by record.Decode.
func parseFields(pairs []string) (record.Record, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("field %q: %w: expected key=value", pair, apperr.ErrMalformed)
		}
		if slices.Contains(record.TimeFields, key) {
			m[key] = raw
			continue
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		if _, nested := v.(map[string]any); nested {
			v = raw
		}
		m[key] = v
	}
	rec, err := record.Decode(m)
	if err != nil {
		return nil, fmt.Errorf("field: %w", err)
	}
	return rec, nil
}
