package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/CTAG07/philterz/pkg/templating"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	dataPath  string
	vars      map[string]string
	outPath   string
	native    bool
	translate bool
}

func renderCmd(state *cliState) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a loaded template, a template file or stdin",
		Long: `Render writes the output of a template to stdout or --out.

The argument is either the name of a template in template_dir, a path to a
template file, or "-" (the default) to read the template from stdin. Files
ending in .tmpl.html, and stdin with --native, use Go template syntax;
everything else is read as Django syntax.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "-"
			if len(args) == 1 {
				target = args[0]
			}
			return runRender(cmd, state, opts, target)
		},
	}

	cmd.Flags().StringVarP(&opts.dataPath, "data", "d", "", "JSON, YAML or TOML file with render data")
	cmd.Flags().StringToStringVar(&opts.vars, "var", nil, "extra string variables (name=value)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.native, "native", false, "treat stdin as Go template syntax")
	cmd.Flags().BoolVar(&opts.translate, "translate", false, "print the Go template text instead of rendering")
	return cmd
}

func runRender(cmd *cobra.Command, state *cliState, opts *renderOptions, target string) error {
	app, err := NewApp(state.config, state.logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	data, err := app.TableData(cmd.Context())
	if err != nil {
		return err
	}
	if opts.dataPath != "" {
		content, err := os.ReadFile(opts.dataPath)
		if err != nil {
			return fmt.Errorf("failed to read data file: %w", err)
		}
		fileData, err := decodeData(opts.dataPath, content)
		if err != nil {
			return err
		}
		data = mergeData(data, fileData)
	}
	for k, v := range opts.vars {
		data[k] = v
	}

	var buf bytes.Buffer
	switch {
	case target != "-" && slices.Contains(app.tm.GetTemplateNames(), target):
		if opts.translate {
			return fmt.Errorf("--translate needs a template file or stdin, not a loaded template name")
		}
		err = app.tm.Execute(&buf, target, data)

	default:
		var src []byte
		if target == "-" {
			src, err = io.ReadAll(cmd.InOrStdin())
		} else {
			src, err = os.ReadFile(target)
		}
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		native := opts.native || strings.HasSuffix(target, templating.NativeSuffix) || strings.HasSuffix(target, templating.PartialSuffix)
		switch {
		case opts.translate && native:
			buf.Write(src)
		case opts.translate:
			var translated string
			translated, err = app.tm.Translate(target, string(src))
			buf.WriteString(translated)
		case native:
			err = app.tm.ExecuteTemplateString(&buf, string(src), data)
		default:
			err = app.tm.ExecuteDjangoString(&buf, string(src), data)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", target, err)
	}

	if opts.outPath == "" {
		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	size := buf.Len()
	if err = atomic.WriteFile(opts.outPath, &buf); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	state.logger.Info("Rendered template", "template", target, "out", opts.outPath, "bytes", size)
	return nil
}
