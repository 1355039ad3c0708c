package supervisor

import (
	"net/netip"

	"github.com/google/go-cmp/cmp"

	"github.com/hamed0406/bgpcheck/internal/config"
)

// Changes lists the check names a reload affects.
type Changes struct {
	Start   []string
	Stop    []string
	Restart []string
}

func (c Changes) Empty() bool {
	return len(c.Start) == 0 && len(c.Stop) == 0 && len(c.Restart) == 0
}

var equalOpts = cmp.Options{
	cmp.Comparer(func(a, b netip.Prefix) bool { return a == b }),
	cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
}

// Equal reports whether two check definitions are identical.
func Equal(a, b config.Check) bool {
	return cmp.Equal(a, b, equalOpts)
}

// Plan matches checks by name. Checks identical in both lists are left out so
// their routes are not disturbed.
func Plan(old, next []config.Check) Changes {
	var ch Changes
	prev := make(map[string]config.Check, len(old))
	for _, c := range old {
		prev[c.Name] = c
	}
	seen := make(map[string]bool, len(next))
	for _, c := range next {
		seen[c.Name] = true
		o, ok := prev[c.Name]
		switch {
		case !ok:
			ch.Start = append(ch.Start, c.Name)
		case !Equal(o, c):
			ch.Restart = append(ch.Restart, c.Name)
		}
	}
	for _, c := range old {
		if !seen[c.Name] {
			ch.Stop = append(ch.Stop, c.Name)
		}
	}
	return ch
}
