package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"trvd/internal/common/fsutil"
	"trvd/internal/config"
	"trvd/pkg/types"
)

// Build resolves the configured role bindings into an artifact registry.
// Every configured role must name an existing file; the size recorded here
// feeds the slot manager's memory budget check.
func Build(roles map[string]config.RoleConfig) ([]types.Artifact, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("no roles configured")
	}
	var out []types.Artifact
	for name, rc := range roles {
		role := types.Role(name)
		if !knownRole(role) {
			return nil, fmt.Errorf("unknown role %q (known: %v)", name, types.KnownRoles)
		}
		p, err := fsutil.ExpandHome(rc.Path)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", name, err)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("role %s: abs path: %w", name, err)
		}
		fi, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("role %s: artifact %s: %w", name, abs, err)
		}
		if fi.IsDir() {
			return nil, fmt.Errorf("role %s: artifact %s is a directory", name, abs)
		}
		display := rc.Name
		if display == "" {
			display = filepath.Base(abs)
		}
		out = append(out, types.Artifact{
			Role:      role,
			Name:      display,
			Path:      abs,
			CtxSize:   rc.CtxSize,
			GPULayers: rc.GPULayers,
			SizeMB:    sizeMB(fi.Size()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// Required roles for a functioning pipeline: translator and reasoner.
// Critic is optional (the phase can be disabled); bridge is optional.
func Validate(arts []types.Artifact) error {
	have := map[types.Role]bool{}
	for _, a := range arts {
		have[a.Role] = true
	}
	for _, r := range []types.Role{types.RoleTranslator, types.RoleReasoner} {
		if !have[r] {
			return fmt.Errorf("required role %s is not configured", r)
		}
	}
	return nil
}

func knownRole(r types.Role) bool {
	for _, k := range types.KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

func sizeMB(n int64) int {
	mb := int(n / (1024 * 1024))
	if mb <= 0 {
		// Conservative minimum so budget checks never see zero.
		mb = 1
	}
	return mb
}
