package kv

import (
	"fmt"
	"hash/fnv"
)

// Key is the (name, home_node) pair described by §3: keys have value
// semantics and equality is structural, which a plain comparable struct
// gives for free.
type Key struct {
	Name     string
	HomeNode int
}

// NewKey pairs a name with an explicit home node — used directly by
// internal/dcolumn, which already knows the home node a chunk key was
// generated against.
func NewKey(name string, homeNode int) Key {
	return Key{Name: name, HomeNode: homeNode}
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d", k.Name, k.HomeNode)
}

// HomeNodeForName derives a deterministic home node for a caller-chosen
// key name (as opposed to the explicit placement internal/dcolumn assigns
// its generated chunk keys). Used by user-facing Put/Get/WaitAndGet calls
// that only supply a name.
func HomeNodeForName(name string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return int(h.Sum32() % uint32(n))
}

// NamedKey builds a Key for a caller-chosen name against the current
// cluster size, using HomeNodeForName.
func NamedKey(name string, n int) Key {
	return NewKey(name, HomeNodeForName(name, n))
}
