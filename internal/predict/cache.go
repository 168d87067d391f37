package predict

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"ckdserve/internal/artifact"
	"ckdserve/internal/features"
)

type outcome struct {
	label      string
	confidence float64
}

// memo caches outcomes per (artifact version, normalized input). Entries of an
// older artifact are never hit again and age out of the LRU.
type memo struct {
	c *lru.Cache[string, outcome]
}

// newMemo returns nil when size <= 0; a nil memo never hits.
func newMemo(size int) (*memo, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, outcome](size)
	if err != nil {
		return nil, err
	}
	return &memo{c: c}, nil
}

func memoKey(a *artifact.Artifact, vec features.Vector) string {
	return strconv.FormatInt(a.ModTime.UnixNano(), 10) + "/" + strconv.FormatInt(a.Size, 10) + "|" + vec.Key()
}

func (m *memo) get(a *artifact.Artifact, vec features.Vector) (outcome, bool) {
	if m == nil {
		return outcome{}, false
	}
	return m.c.Get(memoKey(a, vec))
}

func (m *memo) put(a *artifact.Artifact, vec features.Vector, o outcome) {
	if m == nil {
		return
	}
	m.c.Add(memoKey(a, vec), o)
}

func (m *memo) len() int {
	if m == nil {
		return 0
	}
	return m.c.Len()
}
