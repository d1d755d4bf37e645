package utils

import (
	"bytes"
	"fmt"
	"text/template"
	"text/template/parse"
)

// PromptTemplate represents a template for generating prompts with variables
type PromptTemplate struct {
	Template string
	parser   *template.Template
	fields   []string
}

// NewPromptTemplate creates a new prompt template
func NewPromptTemplate(templateStr string) (*PromptTemplate, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	// Record the top-level variables the template references so Render can
	// default the ones the caller does not supply
	referenced := make(map[string]bool)
	collectFields(tmpl.Tree.Root, referenced)

	fields := make([]string, 0, len(referenced))
	for name := range referenced {
		fields = append(fields, name)
	}

	return &PromptTemplate{
		Template: templateStr,
		parser:   tmpl,
		fields:   fields,
	}, nil
}

// Render renders the template with the given variables. Referenced variables
// the caller does not supply render as empty text.
func (pt *PromptTemplate) Render(variables map[string]any) (string, error) {
	data := make(map[string]any, len(pt.fields)+len(variables))
	for _, name := range pt.fields {
		data[name] = ""
	}
	for key, value := range variables {
		data[key] = value
	}

	var buf bytes.Buffer
	if err := pt.parser.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// collectFields walks the parse tree and records the top-level field names
// the template references
func collectFields(node parse.Node, fields map[string]bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectFields(child, fields)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, fields)
	case *parse.IfNode:
		collectBranch(n.BranchNode, fields)
	case *parse.RangeNode:
		collectBranch(n.BranchNode, fields)
	case *parse.WithNode:
		collectBranch(n.BranchNode, fields)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				collectFields(arg, fields)
			}
		}
	case *parse.FieldNode:
		if len(n.Ident) > 0 {
			fields[n.Ident[0]] = true
		}
	}
}

func collectBranch(branch parse.BranchNode, fields map[string]bool) {
	collectFields(branch.Pipe, fields)
	collectFields(branch.List, fields)
	collectFields(branch.ElseList, fields)
}
