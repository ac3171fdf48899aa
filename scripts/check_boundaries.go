package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "ranklist"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the in-module packages a layer may import, relative to its
// own bounded-context root. Third-party and stdlib imports are governed by
// thirdParty.
type layerRule struct {
	allowed    []string
	shared     []string
	thirdParty bool
}

var layerRules = map[string]layerRule{
	"domain": {
		allowed: []string{"domain"},
	},
	"ports": {
		allowed: []string{"domain"},
		shared:  []string{"internal/shared/events"},
	},
	"application": {
		allowed: []string{"application", "domain", "ports"},
		shared:  []string{"internal/shared/events"},
	},
	"adapters": {
		allowed:    []string{"adapters", "application", "domain", "ports", "transport"},
		shared:     []string{"internal/shared"},
		thirdParty: true,
	},
	"transport": {
		allowed:    []string{"transport", "application", "domain", "ports"},
		thirdParty: true,
	},
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, relErr := filepath.Rel(filepath.Dir(root), path)
		if relErr != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 5 || parts[0] != "contexts" {
			return nil
		}
		contextRoot := strings.Join([]string{modulePath, "contexts", parts[1], parts[2]}, "/")
		violations = append(violations, validateFile(path, filepath.ToSlash(rel), parts[3], contextRoot)...)
		return nil
	})

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})
	return violations
}

func validateFile(path string, display string, layer string, contextRoot string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: display, Line: 1, Rule: "file must parse"}}
	}

	rule, known := layerRules[layer]
	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		if reason := checkImport(importPath, contextRoot, rule, known); reason != "" {
			violations = append(violations, violation{
				File:   display,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   reason,
			})
		}
	}
	return violations
}

func checkImport(importPath string, contextRoot string, rule layerRule, known bool) string {
	switch {
	case hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, contextRoot):
		return "cross-context imports are forbidden"
	case !known:
		return ""
	case hasPrefix(importPath, contextRoot):
		for _, layer := range rule.allowed {
			if hasPrefix(importPath, contextRoot+"/"+layer) {
				return ""
			}
		}
		return "layer import is outside its allowlist"
	case hasPrefix(importPath, modulePath):
		for _, shared := range rule.shared {
			if hasPrefix(importPath, modulePath+"/"+shared) {
				return ""
			}
		}
		return "layer must not import runtime infrastructure"
	case isStdlib(importPath) || rule.thirdParty:
		return ""
	default:
		return "third-party imports belong in adapters or transport"
	}
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return first != modulePath && !strings.Contains(first, ".")
}
