package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/schemagraph/internal/configdoc"
	"github.com/dusk-indust/schemagraph/internal/editor"
	"github.com/dusk-indust/schemagraph/internal/mcptools"
	"github.com/dusk-indust/schemagraph/internal/nodetype"
	"github.com/dusk-indust/schemagraph/internal/workflow"
)

// session is an opened workspace plus the logger commands report through.
type session struct {
	ws  *editor.Workspace
	log hclog.Logger
}

// openSession opens the project workspace and loads any extra schema files.
// It returns the schema name of the last file loaded.
func openSession(cmd *cobra.Command, flags *globalFlags, schemaFiles ...string) (*session, string, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, "", err
	}
	log := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	ctx := cmd.Context()
	ws, err := editor.Open(ctx, flags.ProjectRoot, cfg, log)
	if err != nil {
		return nil, "", err
	}

	var name string
	for _, path := range schemaFiles {
		code, err := os.ReadFile(path)
		if err != nil {
			_ = ws.Close()
			return nil, "", fmt.Errorf("read schema: %w", err)
		}
		name = editor.SchemaName(path)
		if _, err := ws.LoadSchema(ctx, name, string(code)); err != nil {
			_ = ws.Close()
			return nil, "", fmt.Errorf("load schema %s: %w", path, err)
		}
	}
	return &session{ws: ws, log: log}, name, nil
}

func (s *session) Close() error { return s.ws.Close() }

func (s *session) reportSkipped(what string, count int) {
	if count > 0 {
		s.log.Warn("some items were skipped", "document", what, "count", count)
	}
}

// outputFormat returns the --format value, or the input file's format.
func outputFormat(flag, input string) (configdoc.Format, error) {
	switch configdoc.Format(flag) {
	case "":
		return configdoc.FormatFor(input), nil
	case configdoc.FormatJSON, configdoc.FormatYAML:
		return configdoc.Format(flag), nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", flag)
	}
}

// ---------- types ----------

func newTypesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types <schema-file>...",
		Short: "Print the node types generated from schema files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openSession(cmd, flags, args...)
			if err != nil {
				return err
			}
			defer s.Close()

			var types []*nodetype.NodeType
			for _, path := range args {
				types = append(types, s.ws.NodeTypes(editor.SchemaName(path))...)
			}
			return writeJSON(cmd.OutOrStdout(), types)
		},
	}
}

// ---------- convert ----------

func newConvertCmd(flags *globalFlags) *cobra.Command {
	var schemaFile, to, format string

	cmd := &cobra.Command{
		Use:   "convert <document>",
		Short: "Convert a config document to a workflow or a workflow to a config document",
		Long: `Convert between the two document shapes of a schema.

Examples:
  schemagraph convert --schema app.py --to workflow app.yaml
  schemagraph convert --schema app.py --to config --format yaml app.workflow.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			outFmt, err := outputFormat(format, input)
			if err != nil {
				return err
			}
			s, name, err := openSession(cmd, flags, schemaFile)
			if err != nil {
				return err
			}
			defer s.Close()

			switch to {
			case "workflow":
				doc, err := configdoc.ReadFile(input)
				if err != nil {
					return err
				}
				res, err := s.ws.ImportConfig(name, doc)
				if err != nil {
					return err
				}
				s.reportSkipped(input, res.SkippedCount())
				wf, _, err := s.ws.ExportWorkflow(name)
				if err != nil {
					return err
				}
				return workflow.Encode(cmd.OutOrStdout(), wf, outFmt)
			case "config":
				wf, err := workflow.ReadFile(input)
				if err != nil {
					return err
				}
				res, err := s.ws.ImportWorkflow(name, wf)
				if err != nil {
					return err
				}
				s.reportSkipped(input, res.SkippedCount())
				doc, exp, err := s.ws.ExportConfig(name)
				if err != nil {
					return err
				}
				s.reportSkipped("export", exp.SkippedCount())
				return configdoc.Encode(cmd.OutOrStdout(), doc, outFmt)
			default:
				return fmt.Errorf("--to must be workflow or config, got %q", to)
			}
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file describing the document")
	cmd.Flags().StringVar(&to, "to", "", "target shape: workflow or config")
	cmd.Flags().StringVar(&format, "format", "", "output encoding: json or yaml (default: input's)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// ---------- roundtrip ----------

func newRoundtripCmd(flags *globalFlags) *cobra.Command {
	var schemaFile, format string

	cmd := &cobra.Command{
		Use:   "roundtrip <config>",
		Short: "Import a config document into a graph and export it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			outFmt, err := outputFormat(format, input)
			if err != nil {
				return err
			}
			s, name, err := openSession(cmd, flags, schemaFile)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := configdoc.ReadFile(input)
			if err != nil {
				return err
			}
			res, err := s.ws.ImportConfig(name, doc)
			if err != nil {
				return err
			}
			s.reportSkipped(input, res.SkippedCount())
			out, exp, err := s.ws.ExportConfig(name)
			if err != nil {
				return err
			}
			s.reportSkipped("export", exp.SkippedCount())
			return configdoc.Encode(cmd.OutOrStdout(), out, outFmt)
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file describing the document")
	cmd.Flags().StringVar(&format, "format", "", "output encoding: json or yaml (default: input's)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// ---------- diagram ----------

func newDiagramCmd(flags *globalFlags) *cobra.Command {
	var schemaFile string
	var fromWorkflow, asJSON bool

	cmd := &cobra.Command{
		Use:   "diagram <document>",
		Short: "Print a Mermaid diagram of the graph a document imports to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			s, name, err := openSession(cmd, flags, schemaFile)
			if err != nil {
				return err
			}
			defer s.Close()

			if fromWorkflow {
				wf, err := workflow.ReadFile(input)
				if err != nil {
					return err
				}
				res, err := s.ws.ImportWorkflow(name, wf)
				if err != nil {
					return err
				}
				s.reportSkipped(input, res.SkippedCount())
			} else {
				doc, err := configdoc.ReadFile(input)
				if err != nil {
					return err
				}
				res, err := s.ws.ImportConfig(name, doc)
				if err != nil {
					return err
				}
				s.reportSkipped(input, res.SkippedCount())
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s.ws.Summary(name))
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), s.ws.Diagram(name))
			return err
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file describing the document")
	cmd.Flags().BoolVar(&fromWorkflow, "workflow", false, "read the document as a workflow instead of a config")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON summary of nodes and links instead of Mermaid")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// ---------- serve-mcp ----------

func newServeMCPCmd(flags *globalFlags) *cobra.Command {
	var schemaFiles []string
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run the graph editor as an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := openSession(cmd, flags, schemaFiles...)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mcptools.NewEditorMCPServer(s.ws)
			if httpAddr != "" {
				s.log.Info("serving MCP over HTTP", "addr", httpAddr, "session", s.ws.ID())
				return mcptools.RunHTTP(ctx, server, httpAddr)
			}
			s.log.Info("serving MCP on stdio", "session", s.ws.ID())
			return mcptools.RunStdio(ctx, server)
		},
	}
	cmd.Flags().StringArrayVar(&schemaFiles, "schema", nil, "schema file to load at startup (repeatable)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
