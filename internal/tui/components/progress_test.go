package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressView(t *testing.T) {
	t.Parallel()

	t.Run("renders with zero total", func(t *testing.T) {
		t.Parallel()
		view := NewProgress(0).View(0)
		require.Contains(t, view, "0/0")
	})

	t.Run("renders with partial completion", func(t *testing.T) {
		t.Parallel()
		view := NewProgress(10).View(5)
		require.Contains(t, view, "5/10")
	})

	t.Run("renders with full completion", func(t *testing.T) {
		t.Parallel()
		view := NewProgress(10).View(10)
		require.Contains(t, view, "10/10")
	})

	t.Run("caps the ratio beyond the total", func(t *testing.T) {
		t.Parallel()
		view := NewProgress(10).View(15)
		require.Contains(t, view, "15/10")
		require.NotEmpty(t, view)
	})

	t.Run("contains the bar in addition to the label", func(t *testing.T) {
		t.Parallel()
		view := NewProgress(100).View(50)
		require.True(t, len(strings.TrimSpace(view)) > len("50/100"),
			"expected view to contain a bar in addition to the label")
	})
}
