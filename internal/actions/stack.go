package actions

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// Stack output formats
const (
	FormatTree = "tree"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// StackOptions contains options for the stack command
type StackOptions struct {
	Format string
}

// StackAction prints the branch graph without changing anything
func StackAction(ctx *runtime.Context, opts StackOptions) error {
	g := ctx.Engine.Graph()

	switch opts.Format {
	case "", FormatTree:
		if g.Len() == 0 {
			ctx.Splog.Info("No tracked branches.")
			ctx.Splog.Tip("Track one with %s.", tui.ColorCyan("cascade track <branch> --onto <parent>"))
			return nil
		}
		current, _ := ctx.Repo.CurrentBranch()
		ctx.Splog.Page(tui.RenderStackTree(g, current) + "\n")
		if name, ok := g.Conflicted(); ok {
			ctx.Splog.Newline()
			ctx.Splog.Warn("A cascade halted at %s. Run %s or %s.", name, tui.ColorCyan("cascade continue"), tui.ColorCyan("cascade abort"))
		}
		return nil
	case FormatJSON:
		data, err := json.MarshalIndent(g.Document(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode graph: %w", err)
		}
		ctx.Splog.Page(string(data) + "\n")
		return nil
	case FormatYAML:
		data, err := yaml.Marshal(g.Document())
		if err != nil {
			return fmt.Errorf("failed to encode graph: %w", err)
		}
		ctx.Splog.Page(string(data))
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected %s, %s or %s)", opts.Format, FormatTree, FormatJSON, FormatYAML)
	}
}
