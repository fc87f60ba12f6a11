// Package tree lists a repository working tree for the chat view.
package tree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node is one entry in the rendered directory tree. Paths are relative
// to the repository root, using forward slashes.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	IsDir    bool    `json:"isDir"`
	Attached bool    `json:"attached,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Directories skipped regardless of the hidden-entry rule.
var excluded = map[string]bool{
	"node_modules": true,
}

// Build recursively lists the working tree under root, skipping hidden
// and excluded entries. Directories sort before files, alphabetically
// within each group. Files whose relative path appears in attached are
// marked. Output is a pure function of the filesystem state.
func Build(root string, attached []string) ([]*Node, error) {
	attachedSet := make(map[string]bool, len(attached))
	for _, p := range attached {
		attachedSet[p] = true
	}
	return walk(root, "", attachedSet)
}

func walk(dir, rel string, attached map[string]bool) ([]*Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var nodes []*Node
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || excluded[name] {
			continue
		}
		relPath := name
		if rel != "" {
			relPath = rel + "/" + name
		}
		node := &Node{
			Name:  name,
			Path:  relPath,
			IsDir: entry.IsDir(),
		}
		if entry.IsDir() {
			children, err := walk(filepath.Join(dir, name), relPath, attached)
			if err != nil {
				return nil, err
			}
			node.Children = children
		} else {
			node.Attached = attached[relPath]
		}
		nodes = append(nodes, node)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsDir != nodes[j].IsDir {
			return nodes[i].IsDir
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}
