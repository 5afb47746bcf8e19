package flow

import (
	"context"
	"testing"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestMergeOperatorUnionsBothSidesUnchanged(t *testing.T) {
	m := NewMergeOperator(0)
	ctx := context.Background()

	left, err := m.LeftApply(ctx, ChangeSet{{RowNumber: 1, Operation: types.OpInsert}})
	require.NoError(t, err)
	right, err := m.RightApply(ctx, ChangeSet{{RowNumber: 2, Operation: types.OpInsert}})
	require.NoError(t, err)

	combined := append(left, right...)
	require.Len(t, combined, 2)
}
