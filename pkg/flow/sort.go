package flow

import (
	"context"
	"sort"

	"github.com/reifydb/reifydb/pkg/types"
)

// SortKey names one column to order by and the direction.
type SortKey struct {
	Column     types.ColumnID
	Descending bool
}

// SortOperator reorders rows, spec section 4.6's Sort(sort_keys)
// transform. Since a flow's change set is an unordered diff bag rather
// than a materialized row sequence, Sort has no per-batch effect on
// which diffs are emitted — it only affects the order diffs are handed
// downstream (and, ultimately, the order they are applied to the sink),
// which matters when downstream state (e.g. Take) depends on
// application order.
type SortOperator struct {
	index uint32
	keys  []SortKey
}

// NewSortOperator constructs a SortOperator at the given graph index.
func NewSortOperator(index uint32, keys []SortKey) *SortOperator {
	return &SortOperator{index: index, keys: keys}
}

// Index implements Operator.
func (s *SortOperator) Index() uint32 { return s.index }

// Apply implements Operator.
func (s *SortOperator) Apply(ctx context.Context, input ChangeSet) (ChangeSet, error) {
	out := make(ChangeSet, len(input))
	copy(out, input)
	sort.SliceStable(out, func(i, j int) bool {
		return s.less(out[i], out[j])
	})
	return out, nil
}

func (s *SortOperator) less(a, b types.Diff) bool {
	ra, rb := sortRow(a), sortRow(b)
	for _, k := range s.keys {
		c := compareValues(ra[k.Column], rb[k.Column])
		if c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

func sortRow(d types.Diff) types.Row {
	if d.Post != nil {
		return d.Post
	}
	return d.Pre
}

func compareValues(a, b types.Value) int {
	if a.IsNull && b.IsNull {
		return 0
	}
	if a.IsNull {
		return -1
	}
	if b.IsNull {
		return 1
	}
	switch a.Type {
	case types.Utf8, types.Blob:
		switch {
		case string(a.Bytes) < string(b.Bytes):
			return -1
		case string(a.Bytes) > string(b.Bytes):
			return 1
		default:
			return 0
		}
	case types.Float4, types.Float8:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		default:
			return 0
		}
	case types.Uint1, types.Uint2, types.Uint4, types.Uint8, types.Uint16:
		switch {
		case a.Uint < b.Uint:
			return -1
		case a.Uint > b.Uint:
			return 1
		default:
			return 0
		}
	default:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	}
}
