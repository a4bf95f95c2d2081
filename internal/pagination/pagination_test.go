package pagination_test

import (
	"testing"

	"github.com/robertarktes/hotel-reservations/internal/pagination"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, pagination.Params{Page: 1, Limit: 10}, pagination.Normalize(0, 0))
	require.Equal(t, pagination.Params{Page: 1, Limit: 10}, pagination.Normalize(-3, -1))
	require.Equal(t, pagination.Params{Page: 2, Limit: 100}, pagination.Normalize(2, 500))
	require.Equal(t, pagination.Params{Page: 4, Limit: 25}, pagination.Normalize(4, 25))
}

func TestOffset(t *testing.T) {
	require.Equal(t, 0, pagination.Normalize(1, 10).Offset())
	require.Equal(t, 30, pagination.Normalize(4, 10).Offset())
}

func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(21, pagination.Normalize(2, 10))
	require.Equal(t, pagination.Meta{Total: 21, Page: 2, TotalPages: 3, Limit: 10}, meta)

	empty := pagination.NewMeta(0, pagination.Normalize(1, 10))
	require.Equal(t, 0, empty.TotalPages)
}
